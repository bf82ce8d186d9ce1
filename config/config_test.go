package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partnerdash/api/models"
)

func TestLoadTrackingFileMissing(t *testing.T) {
	base := DefaultTracking()
	got, err := LoadTrackingFile(filepath.Join(t.TempDir(), "nope.toml"), base)
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestLoadTrackingFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.toml")
	content := `
[tracking]
track-hovers = true
sample-rate = 0.25
sample-mode = "event"
exclude-elements = ["input", "textarea"]
scroll-debounce-ms = 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := LoadTrackingFile(path, DefaultTracking())
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.True(t, got.TrackHovers)
	assert.Equal(t, 0.25, got.SampleRate)
	assert.Equal(t, models.SampleModeEvent, got.SampleMode)
	assert.Equal(t, []string{"input", "textarea"}, got.ExcludeElements)
	assert.Equal(t, 250, got.ScrollDebounceMs)
	assert.Equal(t, 1000, got.LogLimit)
}

func TestLoadTrackingFileRejectsBadSampleRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.toml")
	require.NoError(t, os.WriteFile(path, []byte("[tracking]\nsample-rate = 1.5\n"), 0o644))
	_, err := LoadTrackingFile(path, DefaultTracking())
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_STORE_DRIVER", "memory")
	t.Setenv("ADMIN_EMAILS", "ops@example.com, Root@Example.com")
	t.Setenv("CLICKHOUSE_HOST", "")
	t.Setenv("TRACKING_CONFIG", "")
	t.Setenv("TRACK_SESSION_IDLE_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.LogDriver)
	assert.False(t, cfg.ClickHouse.Enabled())
	assert.True(t, cfg.IsAdminEmail("root@example.com"))
	assert.False(t, cfg.IsAdminEmail("partner@example.com"))
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
}

func TestLoadSessionIdleTimeout(t *testing.T) {
	t.Setenv("LOG_STORE_DRIVER", "memory")
	t.Setenv("CLICKHOUSE_HOST", "")
	t.Setenv("TRACKING_CONFIG", "")
	t.Setenv("TRACK_SESSION_IDLE_TIMEOUT", "90s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.SessionIdleTimeout)

	t.Setenv("TRACK_SESSION_IDLE_TIMEOUT", "soon")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("LOG_STORE_DRIVER", "redis")
	_, err := Load()
	assert.Error(t, err)
}
