package secrets

import (
	"context"
	"errors"
	"os"
	"strings"
)

// Well-known secret keys
const (
	KeyGeminiAPIKey = "gemini-api-key"
	KeyOpenAIAPIKey = "openai-api-key"
)

// ErrSecretNotFound is returned when no source holds the key
var ErrSecretNotFound = errors.New("secret not found")

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret with a default value if not found
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

// EnvKey converts a secret key such as "gemini-api-key" into its
// environment variable name, GEMINI_API_KEY.
func EnvKey(key string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return strings.ToUpper(r.Replace(key))
}

// EnvManager reads secrets from the process environment only
type EnvManager struct{}

// GetSecret implements Manager
func (EnvManager) GetSecret(_ context.Context, key string) (string, error) {
	if value := os.Getenv(EnvKey(key)); value != "" {
		return value, nil
	}
	return "", ErrSecretNotFound
}

// GetSecretWithDefault implements Manager
func (m EnvManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	if value, err := m.GetSecret(ctx, key); err == nil {
		return value
	}
	return defaultValue
}
