package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv(APIKeyPathEnvVar, filepath.Join(t.TempDir(), "missing"))
	t.Setenv(APIKeyEnvVar, "test_api_key")
	t.Setenv("MODEL", "test_model")
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("HOTKEY_CAPTURE", "Ctrl+Shift+T")
	t.Setenv("GEMINI_ENDPOINT", "http://localhost:9999/v1/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test_api_key", cfg.APIKey)
	assert.Equal(t, "test_model", cfg.Model)
	assert.True(t, cfg.EnableFileLogging)
	assert.Equal(t, "Ctrl+Shift+T", cfg.CaptureHotkey)
	assert.Equal(t, DefaultQuitKey, cfg.QuitHotkey)
	assert.Equal(t, DefaultToggleKey, cfg.ToggleHotkey)
	assert.Equal(t, "http://localhost:9999/v1", cfg.Endpoint)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(APIKeyPathEnvVar, filepath.Join(t.TempDir(), "missing"))
	t.Setenv(APIKeyEnvVar, "")
	t.Setenv("MODEL", "")
	t.Setenv(CaptureModeEnvVar, "")
	t.Setenv("REQUEST_TIMEOUT_SEC", "-4")
	t.Setenv("JPEG_QUALITY", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, CaptureModeFull, cfg.CaptureMode)
	assert.Equal(t, 30, cfg.RequestTimeoutSec)
	assert.Equal(t, 100, cfg.JPEGQuality)
	assert.Equal(t, 2048, cfg.MaxImageDimension)
	assert.Len(t, cfg.Validate(), 1)
}

func TestAPIKeyFileTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("  file_key\n"), 0600))

	t.Setenv(APIKeyPathEnvVar, filepath.Join(dir, "other"))
	t.Setenv(APIKeyEnvVar, "env_key")

	cfg, err := LoadWithOptions(LoadOptions{APIKeyPathOverride: keyFile})
	require.NoError(t, err)
	assert.Equal(t, "file_key", cfg.APIKey)
	assert.Equal(t, keyFile, cfg.APIKeyPath)
}

func TestCaptureModeOverride(t *testing.T) {
	t.Setenv(CaptureModeEnvVar, "fullscreen")

	cfg, err := LoadWithOptions(LoadOptions{CaptureModeOverride: "Rect"})
	require.NoError(t, err)
	assert.Equal(t, CaptureModeRegion, cfg.CaptureMode)
}

func TestResolveCaptureMode(t *testing.T) {
	tests := map[string]string{
		"":          CaptureModeFull,
		"region":    CaptureModeRegion,
		" SELECT ":  CaptureModeRegion,
		"rectangle": CaptureModeRegion,
		"stealth":   CaptureModeFull,
	}
	for in, want := range tests {
		assert.Equal(t, want, ResolveCaptureMode(in), "input %q", in)
	}
}
