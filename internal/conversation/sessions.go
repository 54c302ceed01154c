package conversation

import (
	"context"
	"sync"
	"time"
)

// Factory builds the orchestrator for a new session id
type Factory func(ctx context.Context, sessionID string) (*Orchestrator, error)

// FastFactory builds the demo session for a new session id
type FastFactory func(ctx context.Context, sessionID string) (*FastSession, error)

type entry[T any] struct {
	value    T
	lastUsed time.Time
}

// Sessions keeps one conversation and one demo session per session id.
// Sessions left idle can be dropped with Evict; their history and settings
// stay in the store and come back on the next use.
type Sessions struct {
	newConv Factory
	newFast FastFactory
	now     func() time.Time

	mu    sync.Mutex
	convs map[string]*entry[*Orchestrator]
	fast  map[string]*entry[*FastSession]
}

// NewSessions creates an empty registry
func NewSessions(newConv Factory, newFast FastFactory) *Sessions {
	return &Sessions{
		newConv: newConv,
		newFast: newFast,
		now:     time.Now,
		convs:   make(map[string]*entry[*Orchestrator]),
		fast:    make(map[string]*entry[*FastSession]),
	}
}

// Get returns the conversation for id, creating it on first use
func (s *Sessions) Get(ctx context.Context, id string) (*Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.convs[id]; ok {
		e.lastUsed = s.now()
		return e.value, nil
	}
	o, err := s.newConv(ctx, id)
	if err != nil {
		return nil, err
	}
	s.convs[id] = &entry[*Orchestrator]{value: o, lastUsed: s.now()}
	return o, nil
}

// Fast returns the demo session for id, creating it on first use
func (s *Sessions) Fast(ctx context.Context, id string) (*FastSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.fast[id]; ok {
		e.lastUsed = s.now()
		return e.value, nil
	}
	f, err := s.newFast(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fast[id] = &entry[*FastSession]{value: f, lastUsed: s.now()}
	return f, nil
}

// Len is the number of live conversations
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// Evict drops sessions unused for longer than maxIdle. A conversation with
// subscribers or a pending reply is kept. It returns how many were dropped.
func (s *Sessions) Evict(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	n := 0
	for id, e := range s.convs {
		if e.lastUsed.Before(cutoff) && e.value.Idle() {
			delete(s.convs, id)
			n++
		}
	}
	for id, e := range s.fast {
		if e.lastUsed.Before(cutoff) && !e.value.Snapshot().Processing {
			delete(s.fast, id)
			n++
		}
	}
	return n
}

// StartEviction runs Evict every interval until ctx is done. A zero maxIdle
// keeps every session.
func (s *Sessions) StartEviction(ctx context.Context, interval, maxIdle time.Duration) {
	if maxIdle <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Evict(maxIdle)
			}
		}
	}()
}
