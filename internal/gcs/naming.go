package gcs

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/google/uuid"
)

var imageTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// File is an uploaded file held in memory.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageExt returns the lower-cased extension of filename when it is an
// accepted image type.
func ImageExt(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if _, ok := imageTypes[ext]; !ok {
		return "", fmt.Errorf("%w: invalid file type", domain.ErrValidation)
	}
	return ext, nil
}

// ImageObjectName builds <prefix>/<yyyy>/<mm>/<dd>/<uuid>.<ext>.
func ImageObjectName(prefix, filename string, now time.Time) (string, error) {
	ext, err := ImageExt(filename)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s.%s", prefix, now.Format("2006/01/02"), uuid.New().String(), ext), nil
}

// ContentType maps an object name to the image MIME type it was stored as.
func ContentType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ct, ok := imageTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
