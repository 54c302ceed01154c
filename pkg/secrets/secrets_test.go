package secrets

import (
	"context"
	"errors"
	"testing"

	"roleplay-chat/backend/pkg/config"

	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	data  map[string]any
	err   error
	reads int
}

func (f *fakeKV) Get(context.Context, string) (*vault.KVSecret, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	return &vault.KVSecret{Data: f.data}, nil
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "GEMINI_API_KEY", EnvKey(KeyGeminiAPIKey))
	assert.Equal(t, "A_B_C", EnvKey("a.b-c"))
}

func TestEnvManager(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	m := EnvManager{}

	v, err := m.GetSecret(context.Background(), KeyOpenAIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", v)

	assert.Equal(t, "fallback", m.GetSecretWithDefault(context.Background(), "missing-key", "fallback"))
}

func TestVaultManagerCachesAndFallsBack(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	kv := &fakeKV{data: map[string]any{KeyGeminiAPIKey: "from-vault"}}
	m := newVaultManager(kv, "roleplay-chat", nil)
	ctx := context.Background()

	v, err := m.GetSecret(ctx, KeyGeminiAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "from-vault", v)
	_, _ = m.GetSecret(ctx, KeyGeminiAPIKey)
	assert.Equal(t, 1, kv.reads)

	v, err = m.GetSecret(ctx, KeyOpenAIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	kv.err = errors.New("sealed")
	_, err = m.GetSecret(ctx, "unknown-key")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestNewDisabledVaultUsesEnvironment(t *testing.T) {
	cfg := config.Load()
	cfg.Vault.Enabled = false

	m, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, EnvManager{}, m)

	cfg.Vault.Enabled = true
	cfg.Vault.Address = ""
	_, err = New(cfg, nil)
	assert.ErrorIs(t, err, ErrNoVaultAddress)
}
