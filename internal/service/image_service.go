package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"net/http"
	"time"

	"worldnews/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadBytes = 5 * 1024 * 1024
	ImageMaxEdge               = 1600
	WebPQuality                = 80
	// ImageMaxPixels caps declared dimensions before any pixel buffer is allocated.
	ImageMaxPixels = 40_000_000
)

// ObjectStore persists uploaded media and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

type UploadImageInput struct {
	Filename string
	Content  []byte
}

// UploadedImage describes a stored upload.
type UploadedImage struct {
	URL    string `json:"url"`
	Key    string `json:"key"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int    `json:"size"`
}

type ImageService struct {
	store    ObjectStore
	maxBytes int64
	now      func() time.Time
}

func NewImageService(store ObjectStore, maxBytes int64) *ImageService {
	if maxBytes <= 0 {
		maxBytes = DefaultImageMaxUploadBytes
	}
	return &ImageService{store: store, maxBytes: maxBytes, now: time.Now}
}

// Upload validates, normalizes and stores a post image as WebP.
func (s *ImageService) Upload(ctx context.Context, actor Actor, in UploadImageInput) (*UploadedImage, error) {
	if err := requireMutator(actor); err != nil {
		return nil, err
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return nil, models.NewValidationError("Invalid image type")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > ImageMaxPixels {
		return nil, models.NewValidationError(fmt.Sprintf("Image dimensions too large (%dx%d)", cfg.Width, cfg.Height))
	}
	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	resized := resizeToFit(decoded, ImageMaxEdge, ImageMaxEdge)
	var buf bytes.Buffer
	if err := webp.Encode(&buf, resized, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, models.NewInternalError(err)
	}

	key := fmt.Sprintf("posts/%d/%d_%s.webp", actor.UserID, s.now().UnixMilli(), uuid.New().String())
	url, err := s.store.Put(ctx, key, buf.Bytes())
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	b := resized.Bounds()
	return &UploadedImage{URL: url, Key: key, Width: b.Dx(), Height: b.Dy(), Size: buf.Len()}, nil
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
