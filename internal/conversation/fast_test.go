package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleplay-chat/backend/internal/character"
	"roleplay-chat/backend/internal/models"
	"roleplay-chat/backend/internal/speech"
	apperrors "roleplay-chat/backend/pkg/errors"
)

func TestFastSessionSend(t *testing.T) {
	client := &fakeClient{reply: "Bleep bloop, party time!"}
	sp := &fakeSpeaker{}
	f := NewFastSession(character.Default(), client, sp, nil, nil)

	_, err := f.SendMessage(context.Background(), "hi")
	assert.True(t, apperrors.Is(err, apperrors.ErrNoCharacterSelected))

	require.NoError(t, f.SelectCharacter(character.AlienDJ))
	reply, err := f.SendMessage(context.Background(), "  play something ")
	require.NoError(t, err)
	assert.Equal(t, character.AlienDJ, reply.CharacterID)

	s := f.Snapshot()
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "play something", s.Messages[0].Text)
	assert.Equal(t, models.SenderAI, s.Messages[1].Sender)
	assert.False(t, s.Processing)
	assert.Empty(t, s.Error)
	assert.GreaterOrEqual(t, s.ResponseTimeMs, int64(0))

	assert.Nil(t, client.lastCall().history)
	assert.Equal(t, []string{"Bleep bloop, party time!"}, sp.spoken())
	assert.Equal(t, speech.FastVoice(character.AlienDJ), sp.voices[0])
}

func TestFastSessionResponseTime(t *testing.T) {
	f := NewFastSession(character.Default(), &fakeClient{reply: "ok"}, nil, nil, nil)
	base := time.Unix(1700000000, 0)
	ticks := []time.Time{base, base.Add(420 * time.Millisecond), base.Add(421 * time.Millisecond)}
	f.now = func() time.Time {
		now := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return now
	}

	require.NoError(t, f.SelectCharacter(character.Sherlock))
	_, err := f.SendMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.EqualValues(t, 420, f.Snapshot().ResponseTimeMs)

	f.ClearMessages()
	s := f.Snapshot()
	assert.Empty(t, s.Messages)
	assert.Zero(t, s.ResponseTimeMs)
}

func TestFastSessionFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("API_KEY_INVALID")}
	sp := &fakeSpeaker{}
	f := NewFastSession(character.Default(), client, sp, nil, nil)
	require.NoError(t, f.SelectCharacter(character.Gandalf))

	_, err := f.SendMessage(context.Background(), "hello")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidCredentials))

	s := f.Snapshot()
	assert.Len(t, s.Messages, 1)
	assert.Equal(t, apperrors.ErrInvalidCredentials.Message, s.Error)
	assert.False(t, s.Processing)
	assert.Empty(t, sp.spoken())

	f.ClearError()
	assert.Empty(t, f.Snapshot().Error)
}

func TestFastSessionGate(t *testing.T) {
	client := &fakeClient{reply: "ok", release: make(chan struct{})}
	f := NewFastSession(character.Default(), client, nil, nil, nil)
	require.NoError(t, f.SelectCharacter(character.Sherlock))

	done := make(chan error, 1)
	go func() {
		_, err := f.SendMessage(context.Background(), "first")
		done <- err
	}()
	assert.Eventually(t, func() bool { return f.Snapshot().Processing }, time.Second, 5*time.Millisecond)

	_, err := f.SendMessage(context.Background(), "second")
	assert.True(t, apperrors.Is(err, apperrors.ErrRequestInFlight))
	assert.Len(t, f.Snapshot().Messages, 1)

	close(client.release)
	require.NoError(t, <-done)
	assert.Len(t, f.Snapshot().Messages, 2)
}

func TestFastSessionSelectClears(t *testing.T) {
	f := NewFastSession(character.Default(), &fakeClient{reply: "ok"}, nil, nil, nil)
	require.NoError(t, f.SelectCharacter(character.Sherlock))
	_, err := f.SendMessage(context.Background(), "hi")
	require.NoError(t, err)

	require.NoError(t, f.SelectCharacter(character.Gandalf))
	assert.Empty(t, f.Snapshot().Messages)
	assert.Error(t, f.SelectCharacter("nobody"))
}

func TestFastSessionDropsReplyAfterSwitch(t *testing.T) {
	client := &fakeClient{reply: "Elementary.", release: make(chan struct{})}
	sp := &fakeSpeaker{}
	f := NewFastSession(character.Default(), client, sp, nil, nil)
	require.NoError(t, f.SelectCharacter(character.Sherlock))

	done := make(chan error, 1)
	go func() {
		_, err := f.SendMessage(context.Background(), "who are you")
		done <- err
	}()
	assert.Eventually(t, func() bool { return client.callCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.SelectCharacter(character.Gandalf))
	assert.False(t, f.Snapshot().Processing)

	close(client.release)
	assert.ErrorIs(t, <-done, ErrDiscarded)

	s := f.Snapshot()
	assert.Equal(t, character.Gandalf, s.Character.ID)
	assert.Empty(t, s.Messages)
	assert.False(t, s.Processing)
	assert.Empty(t, sp.spoken())
}

func TestSessionsReuseInstances(t *testing.T) {
	built := 0
	s := NewSessions(
		func(ctx context.Context, id string) (*Orchestrator, error) {
			built++
			if id == "bad" {
				return nil, errors.New("no store")
			}
			return New(ctx, Deps{Catalog: character.Default(), Providers: &fakeProviders{}}), nil
		},
		func(context.Context, string) (*FastSession, error) {
			return NewFastSession(character.Default(), &fakeClient{}, nil, nil, nil), nil
		},
	)

	a, err := s.Get(context.Background(), "one")
	require.NoError(t, err)
	b, err := s.Get(context.Background(), "one")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = s.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, built)

	fa, err := s.Fast(context.Background(), "one")
	require.NoError(t, err)
	fb, err := s.Fast(context.Background(), "one")
	require.NoError(t, err)
	assert.Same(t, fa, fb)
}

func TestSessionsEvictIdle(t *testing.T) {
	built := 0
	s := NewSessions(
		func(ctx context.Context, id string) (*Orchestrator, error) {
			built++
			return New(ctx, Deps{Catalog: character.Default(), Providers: &fakeProviders{}}), nil
		},
		func(context.Context, string) (*FastSession, error) {
			return NewFastSession(character.Default(), &fakeClient{}, nil, nil, nil), nil
		},
	)
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	ctx := context.Background()
	idle, err := s.Get(ctx, "idle")
	require.NoError(t, err)
	watched, err := s.Get(ctx, "watched")
	require.NoError(t, err)
	_, unsubscribe := watched.Subscribe(1)
	defer unsubscribe()
	_, err = s.Fast(ctx, "idle")
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)
	_, err = s.Get(ctx, "recent")
	require.NoError(t, err)

	now = now.Add(25 * time.Minute)
	assert.Equal(t, 2, s.Evict(30*time.Minute))
	assert.Equal(t, 2, s.Len())

	again, err := s.Get(ctx, "idle")
	require.NoError(t, err)
	assert.NotSame(t, idle, again)
	same, err := s.Get(ctx, "watched")
	require.NoError(t, err)
	assert.Same(t, watched, same)
	assert.Equal(t, 4, built)
}
