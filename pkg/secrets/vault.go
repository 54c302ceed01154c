package secrets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"roleplay-chat/backend/pkg/config"
	"roleplay-chat/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

var (
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// kvReader is the slice of the Vault KV v2 API we depend on
type kvReader interface {
	Get(ctx context.Context, secretPath string) (*vault.KVSecret, error)
}

// VaultManager reads provider credentials from a Vault KV v2 mount and
// falls back to the environment when a key is missing there
type VaultManager struct {
	kv          kvReader
	secretsPath string
	env         EnvManager
	log         *logger.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// New returns a VaultManager when Vault is enabled in cfg and an
// EnvManager otherwise
func New(cfg *config.Config, log *logger.Logger) (Manager, error) {
	if !cfg.Vault.Enabled {
		return EnvManager{}, nil
	}
	return NewVaultManager(cfg, log)
}

// NewVaultManager creates a new Vault manager instance
func NewVaultManager(cfg *config.Config, log *logger.Logger) (*VaultManager, error) {
	if cfg.Vault.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if cfg.Vault.Token == "" {
		return nil, ErrNoVaultToken
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Vault.Address
	vaultConfig.Timeout = 10 * time.Second
	vaultConfig.MaxRetries = 3

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Vault.Token)
	if cfg.Vault.Namespace != "" {
		client.SetNamespace(cfg.Vault.Namespace)
	}

	return newVaultManager(client.KVv2("secret"), cfg.Vault.SecretsPath, log), nil
}

func newVaultManager(kv kvReader, path string, log *logger.Logger) *VaultManager {
	return &VaultManager{
		kv:          kv,
		secretsPath: path,
		log:         logger.OrNop(log).WithComponent("secrets"),
		cache:       make(map[string]string),
	}
}

// GetSecret retrieves a secret from Vault, with fallback to environment variable
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	cached, found := m.cache[key]
	m.mu.RUnlock()
	if found {
		return cached, nil
	}

	value, err := m.getFromVault(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrSecretNotFound) {
			m.log.LogWarn(err, "Vault read failed, falling back to environment", "key", key)
		}
		return m.env.GetSecret(ctx, key)
	}

	m.mu.Lock()
	m.cache[key] = value
	m.mu.Unlock()

	return value, nil
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}

func (m *VaultManager) getFromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.kv.Get(ctx, m.secretsPath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	value, ok := secret.Data[key].(string)
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}
