// Package storage holds car images in a blob store.
package storage

import (
	"context"
	"errors"
	"io"
	"strconv"
)

var ErrObjectNotFound = errors.New("object not found")

// MaxImageSize is the default upload limit (10 MB).
const MaxImageSize int64 = 10 << 20

// AllowedContentTypes lists the image types accepted for upload.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Storage defines the interface for file storage operations.
type Storage interface {
	// Upload stores a file and returns the result with key and URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes a file by its key.
	Delete(ctx context.Context, key string) error

	// GetURL returns a URL the browser can load the object from.
	GetURL(ctx context.Context, key string) (string, error)
}

type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

type UploadResult struct {
	Key string
	URL string
}

// CarImageKey is the object key of a car's image.
func CarImageKey(carID int64) string {
	return "cars/" + strconv.FormatInt(carID, 10)
}
