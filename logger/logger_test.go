package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestInitConsole(t *testing.T) {
	var buf bytes.Buffer
	log := Init(Options{Level: "warn", Writer: &buf})

	log.Info("hidden")
	log.Warn("document skipped", "file", "fr.json", "error", errors.New("bad json"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "document skipped")
	assert.Contains(t, out, "file=fr.json")
	assert.Contains(t, out, "bad json")
	assert.NotContains(t, out, "\x1b[", "non-terminal output must not be coloured")
}

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Writer: &buf})

	Debug("wrote file", "path", "values/strings.xml")

	line := strings.TrimSpace(buf.String())
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "wrote file", rec["msg"])
	assert.Equal(t, "values/strings.xml", rec["path"])
}
