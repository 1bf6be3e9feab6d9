package logging

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown", "plan", "equiv")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "plan=equiv")

	buf.Reset()
	NewWithWriter(&buf, true).Debug("detail")
	assert.Contains(t, buf.String(), "detail")
}

func TestNewWithWriter_DropsEmptyStrings(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, false).Info("msg", "empty", "", "kept", "x")
	assert.NotContains(t, buf.String(), "empty=")
	assert.Contains(t, buf.String(), "kept=x")
}

func TestFormatRFC3339Millis(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 45, 123456789, time.FixedZone("X", 3600))
	assert.Equal(t, "2024-03-01T11:30:45.123Z", formatRFC3339Millis(ts))
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(t.Context(), slog.LevelError))
}
