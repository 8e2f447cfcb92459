// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 katarogu Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katarogu/katarogu/pkg/errutil"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("USER_CREATE_FAILED").
		With("user_id", "u-1").
		Errorf("insert failed")

	errutil.LogError(logger, "registration failed", err)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "registration failed", entry["msg"])
	assert.Equal(t, "USER_CREATE_FAILED", entry["code"])
	ctx, ok := entry["context"].(map[string]any)
	require.True(t, ok, "context should be an object")
	assert.Equal(t, "u-1", ctx["user_id"])
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", errors.New("connection reset"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "connection reset")
	assert.NotContains(t, entry, "code")
}

func TestLogErrorContext_PassesContextToHandler(t *testing.T) {
	type key struct{}
	var seen context.Context
	handler := &ctxCapture{Handler: slog.NewJSONHandler(&bytes.Buffer{}, nil), seen: &seen}
	logger := slog.New(handler)

	ctx := context.WithValue(context.Background(), key{}, "marker")
	errutil.LogErrorContext(ctx, logger, "failed", errors.New("boom"))

	require.NotNil(t, seen)
	assert.Equal(t, "marker", seen.Value(key{}))
}

type ctxCapture struct {
	slog.Handler
	seen *context.Context
}

func (h *ctxCapture) Handle(ctx context.Context, r slog.Record) error {
	*h.seen = ctx
	return h.Handler.Handle(ctx, r)
}
