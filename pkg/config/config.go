package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port              string
		Env               string
		Timeout           time.Duration
		AllowedOrigins    []string
		OpenAPIValidation bool
		// Sessions unused for SessionIdleTTL are dropped from memory; zero keeps them
		SessionIdleTTL time.Duration
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// AI provider configuration
	Provider struct {
		Kind          string
		GeminiAPIKey  string
		GeminiModel   string
		OpenAIAPIKey  string
		OpenAIModel   string
		OpenAIBaseURL string
		LocalModelURL string
		// Timeout of zero means wait for the provider indefinitely
		Timeout       time.Duration
		FastPrewarm   bool
		FastCacheSize int
	}

	// Speech synthesis configuration
	Speech struct {
		URL          string
		ProbeTimeout time.Duration
		Timeout      time.Duration
		CacheSize    int
		MaxChars     int
		FallbackCmd  string
		PlayerCmd    string
	}

	// Persistent store configuration
	Storage struct {
		Backend        string
		Path           string
		RedisURL       string
		ConnectRetries int
	}

	// Database configuration for the postgres storage backend
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
	}

	// Defaults applied to user settings that were never saved
	Defaults struct {
		TTSEnabled bool
		AutoScroll bool
		DarkMode   bool
	}

	Characters struct {
		File string
	}

	Vault struct {
		Enabled     bool
		Address     string
		Token       string
		Namespace   string
		SecretsPath string
	}

	Observability struct {
		TracingEnabled bool
		MetricsEnabled bool
	}

	Health struct {
		CheckPeriod time.Duration
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates the singleton Config from the environment, loading .env first.
func New() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		instance = Load()
	})
	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Load builds a fresh Config from the current environment without touching
// the singleton.
func Load() *Config {
	cfg := &Config{}

	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
	cfg.Server.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
	cfg.Server.OpenAPIValidation = getEnvBool("OPENAPI_VALIDATION", true)
	cfg.Server.SessionIdleTTL = getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute)

	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	cfg.Provider.Kind = getEnvString("API_PROVIDER", "gemini")
	cfg.Provider.GeminiAPIKey = getEnvString("GEMINI_API_KEY", "")
	cfg.Provider.GeminiModel = getEnvString("GEMINI_MODEL", "gemini-2.0-flash")
	cfg.Provider.OpenAIAPIKey = getEnvString("OPENAI_API_KEY", "")
	cfg.Provider.OpenAIModel = getEnvString("OPENAI_MODEL", "gpt-4o-mini")
	cfg.Provider.OpenAIBaseURL = getEnvString("OPENAI_BASE_URL", "")
	cfg.Provider.LocalModelURL = getEnvString("LOCAL_MODEL_URL", "http://localhost:5000/generate")
	cfg.Provider.Timeout = getEnvDuration("PROVIDER_TIMEOUT", 0)
	cfg.Provider.FastPrewarm = getEnvBool("FAST_PREWARM", true)
	cfg.Provider.FastCacheSize = getEnvInt("FAST_CACHE_SIZE", 50)

	cfg.Speech.URL = getEnvString("KOKORO_TTS_URL", "")
	cfg.Speech.ProbeTimeout = getEnvDuration("SPEECH_PROBE_TIMEOUT", 2*time.Second)
	cfg.Speech.Timeout = getEnvDuration("SPEECH_TIMEOUT", 0)
	cfg.Speech.CacheSize = getEnvInt("SPEECH_CACHE_SIZE", 50)
	cfg.Speech.MaxChars = getEnvInt("SPEECH_MAX_CHARS", 300)
	cfg.Speech.FallbackCmd = getEnvString("SPEECH_FALLBACK_CMD", "")
	cfg.Speech.PlayerCmd = getEnvString("SPEECH_PLAYER_CMD", "")

	cfg.Storage.Backend = getEnvString("STORAGE_BACKEND", "file")
	cfg.Storage.Path = getEnvString("STORAGE_PATH", defaultStoragePath())
	cfg.Storage.RedisURL = getEnvString("REDIS_URL", "localhost:6379")
	cfg.Storage.ConnectRetries = getEnvInt("STORAGE_CONNECT_RETRIES", 5)

	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "roleplay-chat")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)

	cfg.Defaults.TTSEnabled = getEnvBool("DEFAULT_TTS_ENABLED", false)
	cfg.Defaults.AutoScroll = getEnvBool("DEFAULT_AUTO_SCROLL", true)
	cfg.Defaults.DarkMode = getEnvBool("DEFAULT_DARK_MODE", false)

	cfg.Characters.File = getEnvString("CHARACTERS_FILE", "")

	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", "")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.Namespace = getEnvString("VAULT_NAMESPACE", "")
	cfg.Vault.SecretsPath = getEnvString("VAULT_SECRETS_PATH", "roleplay-chat")

	cfg.Observability.TracingEnabled = getEnvBool("TRACING_ENABLED", false)
	cfg.Observability.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)

	cfg.Health.CheckPeriod = getEnvDuration("HEALTH_CHECK_PERIOD", time.Minute)

	return cfg
}

// IsProduction reports whether APP_ENV selects production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func defaultStoragePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + string(os.PathSeparator) + "roleplay-chat"
	}
	return ".roleplay-chat"
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
