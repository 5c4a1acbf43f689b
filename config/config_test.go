package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "http://localhost:8000/api/auth", cfg.AuthURL())
	assert.Equal(t, "http://localhost:8000/api/voz/comando", cfg.CommandURL())
	assert.Equal(t, "es-ES", cfg.Tag().String())
	assert.Equal(t, time.Second, cfg.NavigateDelay())
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, DefaultRecorder, cfg.Recorder)
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"base_url": "https://lab.example.com/",
		"locale": "es-MX",
		"navigate_delay_ms": 0,
		"recorder": "parecord"
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv("LABVOZ_RECORDER", "rec")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "https://lab.example.com/api/voz/comando", cfg.CommandURL())
	assert.Equal(t, "https://lab.example.com/inventario", cfg.PageURL("/inventario"))
	assert.Equal(t, "es-MX", cfg.Locale)
	assert.Zero(t, cfg.NavigateDelay(), "explicit zero is kept")
	assert.Equal(t, "rec", cfg.Recorder, "env overrides file")
	assert.Equal(t, "sk-env", cfg.OpenAIAPIKey)
	assert.Equal(t, DefaultAuthPath, cfg.AuthPath)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed json", `{"base_url":`},
		{"relative base url", `{"base_url":"lab.local"}`},
		{"bad locale", `{"locale":"not a tag!"}`},
		{"negative delay", `{"navigate_delay_ms":-5}`},
		{"negative timeout", `{"http_timeout_ms":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o600))

			_, err := LoadFrom(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFrom_BadEnv(t *testing.T) {
	t.Setenv("LABVOZ_HTTP_TIMEOUT_MS", "soon")

	_, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	cfg.BaseURL = "https://lab.example.com"
	cfg.Hotkey = "alt+v"
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://lab.example.com", got.BaseURL)
	assert.Equal(t, "alt+v", got.Hotkey)
}

func TestSessionPath(t *testing.T) {
	cfg := &Config{SessionDir: "/tmp/labvoz-session"}
	p, err := cfg.SessionPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/labvoz-session", p)
}
