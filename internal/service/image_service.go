package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/webp" // register the webp decoder

	"wendle/internal/models"
	"wendle/internal/storage"
)

const (
	// DefaultMaxImageBytes caps uploads at 5 MB.
	DefaultMaxImageBytes = 5 << 20

	webpQuality = 80
)

// ImageService validates uploads and normalizes every stored image to webp.
type ImageService struct {
	store    storage.BlobStore
	maxBytes int64
}

func NewImageService(store storage.BlobStore, maxBytes int64) *ImageService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageService{
		store:    store,
		maxBytes: maxBytes,
	}
}

// Process checks size and format, re-encodes to webp, stores the result,
// and returns its public URL.
func (s *ImageService) Process(ctx context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewValidationError("No image uploaded")
	}
	if int64(len(content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("Image too large (max %dMB)", s.maxBytes>>20))
	}

	detected := http.DetectContentType(content)
	switch detected {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return "", models.NewValidationError("Unsupported image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}

	var out bytes.Buffer
	if err := webp.Encode(&out, decoded, &webp.Options{Quality: webpQuality}); err != nil {
		return "", models.NewInternalError(err)
	}

	name := storage.ObjectName(".webp")
	if err := s.store.Save(ctx, name, &out); err != nil {
		return "", models.NewInternalError(err)
	}
	return s.store.PublicURL(name), nil
}
