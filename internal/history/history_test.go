package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleplay-chat/backend/internal/models"
	"roleplay-chat/backend/internal/store"
)

func newHistory(t *testing.T) (*Store, *store.MemoryBackend) {
	t.Helper()
	backend := store.NewMemoryBackend()
	h := New(store.New(backend, nil))
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return h, backend
}

func transcript(n int, charID string) []models.Message {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	out := make([]models.Message, 0, n)
	for i := 0; i < n; i++ {
		sender, cid := models.SenderUser, ""
		if i%2 == 1 {
			sender, cid = models.SenderAI, charID
		}
		out = append(out, models.NewMessage(sender, fmt.Sprintf("turn %d", i), cid, base.Add(time.Duration(i)*time.Second)))
	}
	return out
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	h, _ := newHistory(t)

	msgs := transcript(6, "sherlock")
	h.Save(ctx, "sherlock", msgs)

	got := h.Load(ctx, "sherlock")
	require.Len(t, got, 6)
	assert.Equal(t, msgs, got)

	updated, ok := h.LastUpdated(ctx, "sherlock")
	assert.True(t, ok)
	assert.Equal(t, 2024, updated.Year())
}

func TestLoadUnknownCharacterIsEmpty(t *testing.T) {
	h, _ := newHistory(t)
	got := h.Load(context.Background(), "nobody")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClearOnlyTouchesOneCharacter(t *testing.T) {
	ctx := context.Background()
	h, _ := newHistory(t)

	h.Save(ctx, "gandalf", transcript(5, "gandalf"))
	h.Save(ctx, "alien-dj", transcript(2, "alien-dj"))

	h.Clear(ctx, "gandalf")

	assert.Empty(t, h.Load(ctx, "gandalf"))
	assert.Len(t, h.Load(ctx, "alien-dj"), 2)
}

func TestRecordLayout(t *testing.T) {
	ctx := context.Background()
	h, backend := newHistory(t)
	h.Save(ctx, "gandalf", transcript(1, "gandalf"))

	raw, err := backend.Read(ctx, store.KeyChatHistory)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"gandalf":{"messages":[`)
	assert.Contains(t, string(raw), `"lastUpdated":"2024-05-01T12:00:00Z"`)
}

func TestCorruptRecordLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	h, backend := newHistory(t)
	require.NoError(t, backend.Write(ctx, store.KeyChatHistory, []byte("][")))

	assert.Empty(t, h.Load(ctx, "gandalf"))

	h.Save(ctx, "gandalf", transcript(1, "gandalf"))
	assert.Len(t, h.Load(ctx, "gandalf"), 1)
}

func TestSelectedCharacter(t *testing.T) {
	ctx := context.Background()
	h, _ := newHistory(t)

	_, ok := h.LoadSelected(ctx)
	assert.False(t, ok)

	h.SaveSelected(ctx, "sherlock")
	id, ok := h.LoadSelected(ctx)
	assert.True(t, ok)
	assert.Equal(t, "sherlock", id)

	h.SaveSelected(ctx, "")
	_, ok = h.LoadSelected(ctx)
	assert.False(t, ok)
}
