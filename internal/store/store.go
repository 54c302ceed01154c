// Package store is the persistent key-value layer under chat history and
// settings. Reads and writes never fail outward: errors are logged and
// treated as "no data" or "no-op".
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"roleplay-chat/backend/pkg/logger"
)

// Fixed record keys
const (
	KeyChatHistory       = "roleplay_chat_history"
	KeyUserSettings      = "roleplay_user_settings"
	KeySelectedCharacter = "roleplay_selected_character"
)

// ErrNotFound is returned by a Backend for an absent key
var ErrNotFound = errors.New("store: key not found")

// Backend is a raw byte-oriented key-value store
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Store wraps a Backend with JSON encoding and failure tolerance
type Store struct {
	backend   Backend
	namespace string
	log       *logger.Logger
}

// New creates a Store on top of backend
func New(backend Backend, log *logger.Logger) *Store {
	return &Store{
		backend: backend,
		log:     logger.OrNop(log).WithComponent("store"),
	}
}

// Namespace returns a Store whose keys are prefixed with ns. Each
// conversation session gets its own namespace.
func (s *Store) Namespace(ns string) *Store {
	cp := *s
	cp.namespace = ns
	if ns != "" {
		cp.log = s.log.WithSessionID(ns)
	}
	return &cp
}

func (s *Store) key(k string) string {
	if s.namespace == "" {
		return k
	}
	return s.namespace + ":" + k
}

// Get decodes the value under key into dst. It reports false when the key is
// absent or anything went wrong.
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	raw, err := s.backend.Read(ctx, s.key(key))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.LogWarn(err, "Error reading from store", "key", key)
		}
		return false
	}
	if len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.LogWarn(err, "Corrupted store record", "key", key)
		return false
	}
	return true
}

// Set encodes value under key
func (s *Store) Set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.LogWarn(err, "Error encoding store record", "key", key)
		return
	}
	if err := s.backend.Write(ctx, s.key(key), raw); err != nil {
		s.log.LogWarn(err, "Error writing to store", "key", key)
	}
}

// Remove deletes key
func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, s.key(key)); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.LogWarn(err, "Error removing from store", "key", key)
	}
}

// Ping checks the backend; used by health checks
func (s *Store) Ping(ctx context.Context) error {
	if err := s.backend.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	return nil
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}
