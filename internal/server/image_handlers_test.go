package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"worldnews/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		img.Set(w/2, y, color.RGBA{B: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartImage(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestUploadAndServeImage(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.seedUser(t, "photographer", false)

	body, contentType := multipartImage(t, "image", "img.png", tinyPNG(t, 40, 40))
	req := httptest.NewRequest(http.MethodPost, "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.tokenFor(t, user.ID))
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	uploaded := decode[service.UploadedImage](t, resp)
	assert.True(t, strings.HasPrefix(uploaded.URL, "/media/posts/"), uploaded.URL)
	assert.Equal(t, 40, uploaded.Width)

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, uploaded.URL, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	served, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "WEBP", string(served[8:12]))

	resp = env.do(t, http.MethodPost, "/api/posts", env.tokenFor(t, user.ID), map[string]string{
		"title":    "Sunrise",
		"content":  "From the balcony.",
		"country":  "AU",
		"category": "lifestyle",
		"image":    uploaded.URL,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "uploaded paths are valid post images")
}

func TestUploadImage_Rejections(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.seedUser(t, "photographer", false)
	token := env.tokenFor(t, user.ID)

	send := func(field string, content []byte, token string) int {
		body, contentType := multipartImage(t, field, "file.bin", content)
		req := httptest.NewRequest(http.MethodPost, "/api/images", body)
		req.Header.Set("Content-Type", contentType)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, send("image", tinyPNG(t, 4, 4), ""))
	assert.Equal(t, http.StatusBadRequest, send("file", tinyPNG(t, 4, 4), token), "wrong field name")
	assert.Equal(t, http.StatusBadRequest, send("image", []byte("#!/bin/sh\necho hi\n"), token))
	assert.Equal(t, http.StatusBadRequest, send("image", make([]byte, 5<<20+1), token), "over the size limit")
}
