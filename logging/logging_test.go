package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_JSONCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(&buf, "info", "json"), "auctions")

	log.Info("auction settled", "month", 1)
	log.Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "auction settled", entry["msg"])
	assert.Equal(t, "auctions", entry["component"])
	assert.Equal(t, float64(1), entry["month"])
}

func TestNew_TextUsesTintWithoutColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "text").Debug("payment recorded", "status", "PARTIAL")

	out := buf.String()
	assert.Contains(t, out, "payment recorded")
	assert.Contains(t, out, "status=PARTIAL")
	assert.NotContains(t, out, "\x1b[", "no ANSI escapes when not writing to a terminal")
}
