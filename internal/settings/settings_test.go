package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleplay-chat/backend/internal/models"
	"roleplay-chat/backend/internal/store"
	"roleplay-chat/backend/pkg/config"
)

func TestDefaultsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Defaults.TTSEnabled = true
	cfg.Defaults.AutoScroll = false
	cfg.Provider.Kind = "openai"

	s := Defaults(cfg)
	assert.True(t, s.TTSEnabled)
	assert.False(t, s.AutoScroll)
	assert.Equal(t, "openai", s.APIProvider)

	assert.Equal(t, models.DefaultSettings(), Defaults(nil))
}

func TestLoadMergesPartialRecordOntoDefaults(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	require.NoError(t, backend.Write(ctx, store.KeyUserSettings, []byte(`{"ttsEnabled":true}`)))

	s := New(store.New(backend, nil), models.DefaultSettings())
	got := s.Load(ctx)

	assert.True(t, got.TTSEnabled)
	assert.True(t, got.AutoScroll)
	assert.Equal(t, models.ProviderGemini, got.APIProvider)
}

func TestUpdatePersists(t *testing.T) {
	ctx := context.Background()
	kv := store.New(store.NewMemoryBackend(), nil)

	s := New(kv, models.DefaultSettings())
	on := true
	got := s.Update(ctx, models.SettingsPatch{TTSEnabled: &on})
	assert.True(t, got.TTSEnabled)

	reopened := New(kv, models.DefaultSettings())
	assert.True(t, reopened.Load(ctx).TTSEnabled)
}

func TestEmptyPatchDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	s := New(store.New(backend, nil), models.DefaultSettings())

	s.Update(ctx, models.SettingsPatch{})

	_, err := backend.Read(ctx, store.KeyUserSettings)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
