package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxHandler_AddsRequestScopedAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ctxHandler{slog.NewJSONHandler(&buf, nil)}).With("component", "test")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, uint(9))
	logger.InfoContext(ctx, "hello")

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"user_id":9`)
	assert.Contains(t, out, `"component":"test"`)
}
