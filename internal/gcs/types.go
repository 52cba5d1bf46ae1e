// Package gcs declares the object storage port for uploaded images.
package gcs

import (
	"context"
)

// ObjectStore keeps uploaded files under slash-separated object names.
type ObjectStore interface {
	// Put writes data under name, replacing any existing object.
	Put(ctx context.Context, name, contentType string, data []byte) error

	// Get reads the object. A missing object yields domain.ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
}
