// Package speech reads character replies aloud. A remote synthesis endpoint
// is preferred; a local speech command takes over when it is down.
package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"roleplay-chat/backend/pkg/cache"
	apperrors "roleplay-chat/backend/pkg/errors"
	"roleplay-chat/backend/pkg/logger"
	"roleplay-chat/backend/pkg/observability"
)

// DefaultCacheSize bounds the clip cache
const DefaultCacheSize = 50

// Utterance is one Speak request
type Utterance struct {
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

// Finished returns an utterance that already ended with err
func Finished(err error) *Utterance {
	u := &Utterance{done: make(chan struct{}), cancel: func() {}, err: err}
	close(u.done)
	return u
}

// Done is closed when the utterance has finished, failed or been cancelled
func (u *Utterance) Done() <-chan struct{} { return u.done }

// Wait blocks until Done and returns the outcome
func (u *Utterance) Wait() error {
	<-u.done
	return u.err
}

// Cancel stops the utterance
func (u *Utterance) Cancel() { u.cancel() }

// Client serializes utterances: starting one cancels the previous and waits
// for it to release the audio device.
type Client struct {
	remote   Synthesizer
	fallback Speaker
	player   Player
	clips    *cache.FIFO[string, *Clip]
	metrics  *observability.Metrics
	log      *logger.Logger

	mu       sync.Mutex
	current  *Utterance
	speaking atomic.Bool
	loading  atomic.Bool
}

// Option configures a Client
type Option func(*Client)

// WithMetrics records speech outcomes
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithCacheSize overrides DefaultCacheSize
func WithCacheSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.clips = cache.NewFIFO[string, *Clip](n)
		}
	}
}

// NewClient wires the two synthesis paths. Any of them may be nil.
func NewClient(remote Synthesizer, player Player, fallback Speaker, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		remote:   remote,
		fallback: fallback,
		player:   player,
		clips:    cache.NewFIFO[string, *Clip](DefaultCacheSize),
		log:      logger.OrNop(log).WithComponent("speech"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Supported reports whether either path can currently produce speech
func (c *Client) Supported() bool {
	return c.remoteReady() || (c.fallback != nil && c.fallback.Available())
}

func (c *Client) remoteReady() bool {
	return c.remote != nil && c.player != nil && c.remote.Available()
}

// IsSpeaking reports whether audio is playing
func (c *Client) IsSpeaking() bool { return c.speaking.Load() }

// IsLoading reports whether a clip is being synthesized
func (c *Client) IsLoading() bool { return c.loading.Load() }

// CacheLen is the number of cached clips
func (c *Client) CacheLen() int { return c.clips.Len() }

// ClearCache drops every cached clip
func (c *Client) ClearCache() { c.clips.Flush() }

// Speak cancels whatever is playing and reads text aloud once it stopped.
// Blank text yields an already finished utterance.
func (c *Client) Speak(ctx context.Context, text string, v Voice) *Utterance {
	text = strings.TrimSpace(text)
	if text == "" {
		return Finished(nil)
	}

	uctx, cancel := context.WithCancel(ctx)
	u := &Utterance{done: make(chan struct{}), cancel: cancel}

	c.mu.Lock()
	prev := c.current
	c.current = u
	c.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}

	go func() {
		defer close(u.done)
		defer cancel()
		if prev != nil {
			<-prev.Done()
		}
		u.err = c.run(uctx, text, v)

		c.mu.Lock()
		if c.current == u {
			c.current = nil
		}
		c.mu.Unlock()
	}()

	return u
}

// Stop cancels the current utterance. It is a no-op when idle.
func (c *Client) Stop() {
	c.mu.Lock()
	cur := c.current
	c.current = nil
	c.mu.Unlock()

	if cur != nil {
		cur.Cancel()
	}
	c.speaking.Store(false)
	c.loading.Store(false)
}

func (c *Client) run(ctx context.Context, text string, v Voice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer func() {
		c.speaking.Store(false)
		c.loading.Store(false)
	}()

	remoteErr := c.speakRemote(ctx, text, v)
	if remoteErr == nil || ctx.Err() != nil {
		return ctxErrOr(ctx, remoteErr)
	}

	if c.fallback == nil || !c.fallback.Available() {
		c.log.LogWarn(remoteErr, "Speech unavailable")
		c.metrics.ObserveSpeech("fallback", "unavailable")
		return apperrors.ErrSpeechUnavailable.WithCause(remoteErr)
	}

	c.speaking.Store(true)
	err := c.fallback.Speak(ctx, text, v)
	switch {
	case ctx.Err() != nil:
		c.metrics.ObserveSpeech("fallback", "cancelled")
		return ctx.Err()
	case err != nil:
		c.log.LogWarn(err, "Built-in speech failed")
		c.metrics.ObserveSpeech("fallback", "error")
		return apperrors.ErrSpeechUnavailable.WithCause(errors.Join(remoteErr, err))
	}
	c.metrics.ObserveSpeech("fallback", "ok")
	return nil
}

var errRemoteUnavailable = errors.New("speech endpoint unavailable")

func (c *Client) speakRemote(ctx context.Context, text string, v Voice) error {
	if !c.remoteReady() {
		return errRemoteUnavailable
	}

	key := CacheKey(text, v)
	path := "cache"
	clip, ok := c.clips.Get(key)
	if !ok {
		path = "remote"
		c.loading.Store(true)
		var err error
		clip, err = c.remote.Synthesize(ctx, text, v)
		c.loading.Store(false)
		if err != nil {
			if ctx.Err() == nil {
				c.log.LogWarn(err, "Remote synthesis failed, using built-in speech")
				c.metrics.ObserveSpeech(path, "error")
			}
			return err
		}
		c.clips.Set(key, clip)
	}

	c.speaking.Store(true)
	if err := c.player.Play(ctx, clip); err != nil {
		if ctx.Err() != nil {
			c.metrics.ObserveSpeech(path, "cancelled")
			return ctx.Err()
		}
		c.log.LogWarn(err, "Audio playback failed, using built-in speech")
		c.metrics.ObserveSpeech(path, "error")
		return err
	}
	c.metrics.ObserveSpeech(path, "ok")
	return nil
}

func ctxErrOr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
