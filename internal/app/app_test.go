package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portaria/internal/config"
)

func TestNewLoggerJSONRespectsLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	log := newLogger(&buf, config.LogConfig{Level: "WARN", Format: "json"})
	log.Info("hidden")
	log.Warn("shown", slog.String("act_id", "a1"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "a1", line["act_id"])
}

func TestOpenUsesWorkspaceConfig(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("institute:\n  name: IFTEST\nnumbering:\n  format: \"%d-%d\"\n"), 0o644))

	a, err := Open(context.Background(), Options{Workspace: dir, LogLevel: "error"})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Equal(t, "IFTEST", a.Config.Institute.Name)
	assert.Equal(t, "%d-%d", a.Engine.Repo.NumberFormat)
	assert.FileExists(t, filepath.Join(dir, ".portaria", "portaria.db"))
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("log:\n  level: loud\n"), 0o644))
	_, err := Open(context.Background(), Options{Workspace: dir})
	assert.ErrorContains(t, err, "load config")
}
