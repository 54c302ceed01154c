// Package settings persists the process-wide user preferences.
package settings

import (
	"context"
	"sync"

	"roleplay-chat/backend/internal/models"
	"roleplay-chat/backend/internal/store"
	"roleplay-chat/backend/pkg/config"
)

// Defaults derives the initial settings from configuration
func Defaults(cfg *config.Config) models.Settings {
	s := models.DefaultSettings()
	if cfg == nil {
		return s
	}
	s.TTSEnabled = cfg.Defaults.TTSEnabled
	s.AutoScroll = cfg.Defaults.AutoScroll
	s.DarkMode = cfg.Defaults.DarkMode
	if cfg.Provider.Kind != "" {
		s.APIProvider = cfg.Provider.Kind
	}
	return s
}

// Store loads and saves the settings record
type Store struct {
	kv       *store.Store
	defaults models.Settings

	mu      sync.Mutex
	current models.Settings
	loaded  bool
}

// New creates a settings store. defaults fill any field never saved.
func New(kv *store.Store, defaults models.Settings) *Store {
	return &Store{kv: kv, defaults: defaults}
}

// Load reads the stored record merged onto defaults. The result is cached.
func (s *Store) Load(ctx context.Context) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) models.Settings {
	if s.loaded {
		return s.current
	}
	// decoding onto a copy of the defaults leaves absent fields untouched
	merged := s.defaults
	if !s.kv.Get(ctx, store.KeyUserSettings, &merged) {
		merged = s.defaults
	}
	s.current = merged
	s.loaded = true
	return s.current
}

// Update merges patch into the current settings and saves them
func (s *Store) Update(ctx context.Context, patch models.SettingsPatch) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.loadLocked(ctx).Apply(patch)
	if patch.Empty() {
		return next
	}
	s.current = next
	s.kv.Set(ctx, store.KeyUserSettings, next)
	return next
}

// Save overwrites the stored settings
func (s *Store) Save(ctx context.Context, v models.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = v
	s.loaded = true
	s.kv.Set(ctx, store.KeyUserSettings, v)
}
