package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "gemini", cfg.Provider.Kind)
	assert.Equal(t, time.Duration(0), cfg.Provider.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Speech.ProbeTimeout)
	assert.Equal(t, 50, cfg.Speech.CacheSize)
	assert.Equal(t, 300, cfg.Speech.MaxChars)
	assert.False(t, cfg.Defaults.TTSEnabled)
	assert.True(t, cfg.Defaults.AutoScroll)
	assert.False(t, cfg.Defaults.DarkMode)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_PROVIDER", "openai")
	t.Setenv("PROVIDER_TIMEOUT", "15s")
	t.Setenv("KOKORO_TTS_URL", "http://tts:8080")
	t.Setenv("SPEECH_CACHE_SIZE", "3")
	t.Setenv("DEFAULT_TTS_ENABLED", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("SPEECH_MAX_CHARS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "openai", cfg.Provider.Kind)
	assert.Equal(t, 15*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "http://tts:8080", cfg.Speech.URL)
	assert.Equal(t, 3, cfg.Speech.CacheSize)
	assert.True(t, cfg.Defaults.TTSEnabled)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 300, cfg.Speech.MaxChars)
}

func TestDSN(t *testing.T) {
	cfg := Load()
	cfg.Database.Host = "db"
	cfg.Database.Name = "chat"

	assert.Contains(t, cfg.DSN(), "host=db")
	assert.Contains(t, cfg.DSN(), "dbname=chat")
}
