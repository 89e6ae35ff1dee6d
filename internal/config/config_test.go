package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{"TRIAI_BASE_URL", "TRIAI_STATE_DIR", "TRIAI_TIMEOUT", "TRIAI_POLL_INTERVAL", "TRIAI_RPS", "TRIAI_DISABLE_NETWORK"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().BaseURL, cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, filepath.Join(".triai", "logs", "triai.log"), cfg.LogPath())
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://council.local:8080
poll_interval: 500ms
history_limit: 50
providers: [openai, google]
`), 0o644))

	t.Setenv("TRIAI_TIMEOUT", "30s")
	t.Setenv("TRIAI_DISABLE_NETWORK", "yes")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://council.local:8080", cfg.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, []string{"openai", "google"}, cfg.Providers)
	assert.True(t, cfg.DisableNetwork)
	assert.Equal(t, path, cfg.Source)
}

func TestLoadStateDirConfig(t *testing.T) {
	dir := isolate(t)
	state := filepath.Join(dir, "state")
	require.NoError(t, os.MkdirAll(state, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(state, "config.yaml"), []byte("requests_per_second: 2.5\n"), 0o644))
	t.Setenv("TRIAI_STATE_DIR", state)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
	assert.Equal(t, state, cfg.StateDir)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.Unsetenv("TRIAI_BASE_URL"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TRIAI_BASE_URL=http://from-dotenv:5000\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("TRIAI_BASE_URL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://from-dotenv:5000", cfg.BaseURL)
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("providers: [openai, mistral]\n"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "invalid config")

	t.Setenv("TRIAI_POLL_INTERVAL", "soon")
	_, err = Load("")
	assert.ErrorContains(t, err, "TRIAI_POLL_INTERVAL")
}

func TestValidateRejectsTinyInterval(t *testing.T) {
	cfg := Default()
	cfg.PollInterval = time.Millisecond
	assert.ErrorContains(t, cfg.Validate(), "PollInterval")
}
