package gcsuploader

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
)

func TestDirStore_RoundTrip(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "receipts/2024/03/01/a.png", "image/png", []byte("img")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := store.Get(ctx, "receipts/2024/03/01/a.png")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "img" {
		t.Errorf("Get() = %q", got)
	}

	if _, err := store.Get(ctx, "receipts/missing.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing object error = %v, want ErrNotFound", err)
	}
}

func TestCheckName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"receipts/2024/01/02/x.jpg", false},
		{"x.jpg", false},
		{"", true},
		{"/etc/passwd", true},
		{"../secret", true},
		{"receipts/../../secret", true},
		{"receipts//x.jpg", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}
