package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "mermaid", cfg.Render.DefaultTarget)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
}

func TestLoad_ReadsFileAndAppliesEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layercake.yaml")
	contents := "storage:\n  backend: postgres\n  postgres_dsn: postgres://localhost/layercake\nredis:\n  addr: localhost:6379\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	t.Setenv("LAYERCAKE_STORAGE_BACKEND", "sqlite")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	// explicit applyEnvOverrides takes precedence over the file value
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := Default()
	cfg.Storage.Backend = BackendSQLite
	cfg.Storage.SQLitePath = "custom.db"
	require.NoError(t, cfg.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, reloaded.Storage.Backend)
	assert.Equal(t, "custom.db", reloaded.Storage.SQLitePath)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "layercake.yaml"), expandPath("~/layercake.yaml"))
	assert.Equal(t, "/etc/layercake.yaml", expandPath("/etc/layercake.yaml"))
}
