package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleplay-chat/backend/pkg/config"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileBackend(filepath.Join(dir, "files"))
	require.NoError(t, err)
	sqlite, err := NewSQLiteBackend(context.Background(), filepath.Join(dir, "db", "roleplay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   file,
		"sqlite": sqlite,
	}
}

func TestBackendsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Read(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Write(ctx, "k", []byte(`{"a":1}`)))
			got, err := b.Read(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `{"a":1}`, string(got))

			require.NoError(t, b.Write(ctx, "k", []byte(`{"a":2}`)))
			got, err = b.Read(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `{"a":2}`, string(got))

			require.NoError(t, b.Delete(ctx, "k"))
			require.NoError(t, b.Delete(ctx, "k"))
			_, err = b.Read(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, b.Ping(ctx))
		})
	}
}

func TestStoreGetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), nil)

	var p payload
	assert.False(t, s.Get(ctx, KeyUserSettings, &p))

	s.Set(ctx, KeyUserSettings, payload{Name: "x", Count: 3})
	require.True(t, s.Get(ctx, KeyUserSettings, &p))
	assert.Equal(t, payload{Name: "x", Count: 3}, p)

	s.Remove(ctx, KeyUserSettings)
	assert.False(t, s.Get(ctx, KeyUserSettings, &p))
}

func TestStoreCorruptRecordReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	require.NoError(t, b.Write(ctx, KeyChatHistory, []byte("{not json")))

	s := New(b, nil)
	var v map[string]any
	assert.False(t, s.Get(ctx, KeyChatHistory, &v))
}

type brokenBackend struct{}

var errBroken = errors.New("disk on fire")

func (brokenBackend) Read(context.Context, string) ([]byte, error) { return nil, errBroken }
func (brokenBackend) Write(context.Context, string, []byte) error  { return errBroken }
func (brokenBackend) Delete(context.Context, string) error         { return errBroken }
func (brokenBackend) Ping(context.Context) error                   { return errBroken }
func (brokenBackend) Close() error                                 { return nil }

func TestStoreSwallowsBackendFailures(t *testing.T) {
	ctx := context.Background()
	s := New(brokenBackend{}, nil)

	assert.NotPanics(t, func() {
		s.Set(ctx, KeyChatHistory, payload{Name: "a"})
		s.Remove(ctx, KeyChatHistory)
	})
	var p payload
	assert.False(t, s.Get(ctx, KeyChatHistory, &p))
	assert.ErrorIs(t, s.Ping(ctx), errBroken)
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	root := New(NewMemoryBackend(), nil)
	a := root.Namespace("session-a")
	b := root.Namespace("session-b")

	a.Set(ctx, KeySelectedCharacter, "gandalf")

	var got string
	assert.True(t, a.Get(ctx, KeySelectedCharacter, &got))
	assert.Equal(t, "gandalf", got)
	assert.False(t, b.Get(ctx, KeySelectedCharacter, &got))
	assert.False(t, root.Get(ctx, KeySelectedCharacter, &got))
}

func TestOpenBackendSelection(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	cfg.Storage.Path = t.TempDir()

	cfg.Storage.Backend = "memory"
	b, err := OpenBackend(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	cfg.Storage.Backend = "file"
	b, err = OpenBackend(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	cfg.Storage.Backend = "sqlite"
	b, err = OpenBackend(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, b)
	b.Close()

	cfg.Storage.Backend = "cassette"
	_, err = OpenBackend(ctx, cfg)
	assert.Error(t, err)
}
