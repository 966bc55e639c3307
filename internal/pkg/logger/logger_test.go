package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Format: FormatJSON, Output: &buf, Service: "church-admin"})

	l.Info("dropped")
	l.Warn("kept", "booking_id", "b-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "church-admin", line["service"])
	assert.Equal(t, "b-1", line["booking_id"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: "TEXT", Output: &buf}).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestContextLogger(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	l := Discard()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}
