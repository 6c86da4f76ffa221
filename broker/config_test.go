package broker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWithNoPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().PoolCapacity, cfg.PoolCapacity)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte("pool_capacity = 256\nmax_watchers = 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 256, cfg.PoolCapacity)
	require.Equal(t, 2, cfg.MaxWatchers)
	require.Equal(t, DefaultConfig().HighWatermark, cfg.HighWatermark, "fields absent from the file keep their default")
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poolCapacity: 512\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 512, cfg.PoolCapacity)
}

func TestLoadRejectsUnrecognizedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.ini")
	require.NoError(t, os.WriteFile(path, []byte("pool_capacity=1"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestApplyEnvOverridesParsesIntegers(t *testing.T) {
	t.Setenv("FSBROKER_POOL_CAPACITY", "777")
	t.Setenv("FSBROKER_MAX_WATCHERS", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 777, cfg.PoolCapacity)
	require.Equal(t, 3, cfg.MaxWatchers)
}

func TestApplyEnvOverridesRejectsNonInteger(t *testing.T) {
	t.Setenv("FSBROKER_POOL_CAPACITY", "not-a-number")

	_, err := Load("")
	require.Error(t, err)
}

func TestEnvOverrideTakesPrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte("pool_capacity = 256\n"), 0o644))
	t.Setenv("FSBROKER_POOL_CAPACITY", "999")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 999, cfg.PoolCapacity)
}
