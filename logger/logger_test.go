package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("qualquer"))
}

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, Config{Level: "warn"}))
	l.Info("descartado")
	l.Warn("negociação rejeitada", "offer_id", "o-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "negociação rejeitada", entry["msg"])
	assert.Equal(t, "o-1", entry["offer_id"])

	buf.Reset()
	slog.New(NewHandler(&buf, Config{Format: "text"})).Info("oi", "k", "v")
	assert.Contains(t, buf.String(), "k=v")
}

func TestNewWritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "fracionado.log")
	l, err := New(Config{Level: "info", FilePath: path})
	require.NoError(t, err)
	l.Info("servidor HTTP iniciado", "addr", ":8080")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "servidor HTTP iniciado")
	assert.Same(t, l, slog.Default())
}
