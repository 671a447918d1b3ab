package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"deposition_dashboard/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "ws://localhost:8003/ws/state", cfg.Telemetry.URL)
	assert.Equal(t, 3*time.Second, cfg.Telemetry.ReconnectDelay)
	assert.Equal(t, store.MergeReplace, cfg.Telemetry.MergePolicy)
	assert.Equal(t, "http://localhost:8003", cfg.Commands.BaseURL)
	assert.False(t, cfg.Simulator.Enabled)
	assert.False(t, cfg.TUI)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeConfig(t, `
port: "9090"
log:
  level: warn
telemetry:
  url: ws://apparatus:8003/ws/state
  reconnect_delay: 500ms
  merge_policy: deep
commands:
  base_url: http://apparatus:8003/
simulator:
  enabled: true
  interval: 250ms
`)
	t.Setenv("DEPDASH_PORT", "7070")

	cfg, err := Load([]string{"--config", path, "--log-level", "debug", "--tui"})
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port, "env overrides file")
	assert.Equal(t, "debug", cfg.Log.Level, "flag overrides file")
	assert.Equal(t, "ws://apparatus:8003/ws/state", cfg.Telemetry.URL)
	assert.Equal(t, 500*time.Millisecond, cfg.Telemetry.ReconnectDelay)
	assert.Equal(t, store.MergeDeep, cfg.Telemetry.MergePolicy)
	assert.Equal(t, "http://apparatus:8003", cfg.Commands.BaseURL)
	assert.True(t, cfg.Simulator.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Simulator.Interval)
	assert.True(t, cfg.TUI)
}

func TestLoad_NestedEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DEPDASH_TELEMETRY_URL", "ws://override:1/ws")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "ws://override:1/ws", cfg.Telemetry.URL)
}

func TestLoad_RejectsUnknownMergePolicy(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeConfig(t, "telemetry:\n  merge_policy: shallow\n")

	_, err := Load([]string{"--config", path})
	assert.ErrorIs(t, err, store.ErrUnknownMergePolicy)
}

func TestLoad_RejectsNonPositiveDelay(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeConfig(t, "telemetry:\n  reconnect_delay: 0s\n")

	_, err := Load([]string{"--config", path})
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "nope.yml")})
	assert.Error(t, err)
}
