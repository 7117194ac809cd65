package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"worldnews/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key string, data []byte) (string, error) {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return "/media/" + key, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageService_UploadDownscalesToWebP(t *testing.T) {
	store := &memoryStore{}
	svc := NewImageService(store, 5<<20)
	svc.now = fixedClock(time.UnixMilli(1700000000000))

	out, err := svc.Upload(context.Background(), Actor{UserID: 4}, UploadImageInput{
		Filename: "wide.png",
		Content:  pngBytes(t, 3200, 800),
	})
	require.NoError(t, err)
	assert.Equal(t, 1600, out.Width)
	assert.Equal(t, 400, out.Height)
	assert.True(t, strings.HasPrefix(out.Key, "posts/4/1700000000000_"), out.Key)
	assert.True(t, strings.HasSuffix(out.Key, ".webp"))
	assert.Equal(t, "/media/"+out.Key, out.URL)

	stored := store.objects[out.Key]
	require.NotEmpty(t, stored)
	assert.Equal(t, "RIFF", string(stored[:4]))
	assert.Equal(t, "WEBP", string(stored[8:12]))
}

func TestImageService_Rejections(t *testing.T) {
	store := &memoryStore{}
	svc := NewImageService(store, 1024)
	ctx := context.Background()

	_, err := svc.Upload(ctx, GuestActor(), UploadImageInput{Content: pngBytes(t, 4, 4)})
	assertUnauthorizedError(t, err)

	_, err = svc.Upload(ctx, Actor{UserID: 1}, UploadImageInput{})
	assertValidationError(t, err)

	_, err = svc.Upload(ctx, Actor{UserID: 1}, UploadImageInput{Content: make([]byte, 2048)})
	assertValidationError(t, err)

	_, err = svc.Upload(ctx, Actor{UserID: 1}, UploadImageInput{Content: []byte("plain text, not an image")})
	assertValidationError(t, err)

	assert.Empty(t, store.objects, "nothing is written for rejected uploads")
}

func TestImageService_WithLocalStore(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)
	svc := NewImageService(store, 5<<20)

	out, err := svc.Upload(context.Background(), Actor{UserID: 9}, UploadImageInput{Content: pngBytes(t, 10, 10)})
	require.NoError(t, err)
	assert.Equal(t, 10, out.Width)
	assert.True(t, strings.HasPrefix(out.URL, "/media/posts/9/"))
}

// withDeclaredSize rewrites a PNG's IHDR dimensions without touching its pixel data.
func withDeclaredSize(t *testing.T, raw []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), raw...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestImageService_RejectsOversizedDimensions(t *testing.T) {
	store := &memoryStore{}
	svc := NewImageService(store, 5<<20)

	bomb := withDeclaredSize(t, pngBytes(t, 4, 4), 100_000, 100_000)
	require.Less(t, len(bomb), 1024, "tiny on the wire")

	_, err := svc.Upload(context.Background(), Actor{UserID: 1}, UploadImageInput{Filename: "huge.png", Content: bomb})
	assertValidationError(t, err)
	assert.Contains(t, err.Error(), "dimensions")
	assert.Empty(t, store.objects)
}
