package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New(&buf, "debug", "json"))
	t.Cleanup(func() { SetDefault(New(&bytes.Buffer{}, "info", "text")) })

	ExitMethodWithError("rentalService.ApproveRental", errors.New("boom"), "rentalID", "r1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "rentalService.ApproveRental", entry["method"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "r1", entry["rentalID"])
	assert.Equal(t, "rentloop", entry["app"])
}

func TestHTTPRequestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New(&buf, "info", "text"))
	t.Cleanup(func() { SetDefault(New(&bytes.Buffer{}, "info", "text")) })

	HTTPRequest(http.MethodGet, "/api/v1/items", http.StatusOK, 5*time.Millisecond)
	assert.Contains(t, buf.String(), "level=INFO")

	buf.Reset()
	HTTPRequest(http.MethodPatch, "/api/v1/rentals/1/approve", http.StatusPaymentRequired, time.Millisecond)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "status=402")

	buf.Reset()
	Debug("hidden")
	assert.Empty(t, buf.String())
}
