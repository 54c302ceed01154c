// Package history keeps per-character chat transcripts in one persisted
// record keyed by character id.
package history

import (
	"context"
	"sync"
	"time"

	"roleplay-chat/backend/internal/models"
	"roleplay-chat/backend/internal/store"
)

// Entry is one character's slot in the history record
type Entry struct {
	Messages    []models.Message `json:"messages"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

// Record is the whole persisted chat history
type Record map[string]Entry

// Store is the Chat History Store
type Store struct {
	kv  *store.Store
	now func() time.Time

	// serializes the read-modify-write of the shared record
	mu sync.Mutex
}

// New creates a history store over kv
func New(kv *store.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

func (s *Store) record(ctx context.Context) Record {
	rec := Record{}
	if !s.kv.Get(ctx, store.KeyChatHistory, &rec) || rec == nil {
		return Record{}
	}
	return rec
}

// Save replaces the transcript for characterID
func (s *Store) Save(ctx context.Context, characterID string, msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(ctx)
	rec[characterID] = Entry{
		Messages:    models.CloneMessages(msgs),
		LastUpdated: s.now().UTC(),
	}
	s.kv.Set(ctx, store.KeyChatHistory, rec)
}

// Load returns the transcript for characterID, empty when none was saved
func (s *Store) Load(ctx context.Context, characterID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.record(ctx)[characterID]
	if !ok {
		return []models.Message{}
	}
	return models.CloneMessages(entry.Messages)
}

// Clear drops only characterID's transcript
func (s *Store) Clear(ctx context.Context, characterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(ctx)
	delete(rec, characterID)
	s.kv.Set(ctx, store.KeyChatHistory, rec)
}

// LastUpdated reports when characterID's transcript was last saved
func (s *Store) LastUpdated(ctx context.Context, characterID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.record(ctx)[characterID]
	return entry.LastUpdated, ok
}

// SaveSelected remembers the last selected character
func (s *Store) SaveSelected(ctx context.Context, characterID string) {
	if characterID == "" {
		s.kv.Remove(ctx, store.KeySelectedCharacter)
		return
	}
	s.kv.Set(ctx, store.KeySelectedCharacter, characterID)
}

// LoadSelected returns the last selected character id, if any
func (s *Store) LoadSelected(ctx context.Context) (string, bool) {
	var id string
	if !s.kv.Get(ctx, store.KeySelectedCharacter, &id) || id == "" {
		return "", false
	}
	return id, true
}
