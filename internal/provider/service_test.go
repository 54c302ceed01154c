package provider

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "roleplay-chat/backend/pkg/errors"
	"roleplay-chat/backend/pkg/observability"
)

type fakeBackend struct {
	mu      sync.Mutex
	prompts []string
	configs []GenerationConfig
	reply   Result
	chunks  []string
	err     error
	delay   time.Duration
}

func (f *fakeBackend) Kind() Kind { return KindGemini }

func (f *fakeBackend) record(prompt string, cfg GenerationConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.configs = append(f.configs, cfg)
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeBackend) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (Result, error) {
	f.record(prompt, cfg)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeBackend) GenerateStream(ctx context.Context, prompt string, cfg GenerationConfig, sink func(string)) (Result, error) {
	f.record(prompt, cfg)
	if f.err != nil {
		return Result{}, f.err
	}
	for _, c := range f.chunks {
		sink(c)
	}
	return Result{Text: strings.Join(f.chunks, ""), Tokens: f.reply.Tokens}, nil
}

func TestSendMessageTrimsAndUsesStandardConfig(t *testing.T) {
	backend := &fakeBackend{reply: Result{Text: "  Elementary, my dear fellow.\n", Tokens: 9}}
	svc := NewService(backend, nil)

	res, err := svc.SendMessage(context.Background(), "Hello", sherlock(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "Elementary, my dear fellow.", res.Text)
	assert.Equal(t, 9, res.Tokens)
	require.Len(t, backend.configs, 1)
	assert.Equal(t, StandardConfig, backend.configs[0])
	assert.True(t, strings.HasSuffix(backend.prompts[0], "Human: Hello\nSherlock Holmes:"))
}

func TestSendMessageEmptyResponse(t *testing.T) {
	svc := NewService(&fakeBackend{reply: Result{Text: "   "}}, nil)
	_, err := svc.SendMessage(context.Background(), "Hello", sherlock(t), nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrEmptyResponse))
}

func TestSendMessageMapsErrorsAndCountsThem(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	svc := NewService(&fakeBackend{err: errors.New("rpc error: QUOTA_EXCEEDED")}, nil, WithMetrics(metrics))

	_, err := svc.SendMessage(context.Background(), "Hello", sherlock(t), nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrQuotaExceeded))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProviderRequests.WithLabelValues("gemini", "standard", apperrors.CodeQuotaExceeded)))
}

func TestSendMessageTimeout(t *testing.T) {
	svc := NewService(&fakeBackend{delay: time.Second, reply: Result{Text: "late"}}, nil, WithTimeout(20*time.Millisecond))
	_, err := svc.SendMessage(context.Background(), "Hello", sherlock(t), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendMessageStream(t *testing.T) {
	backend := &fakeBackend{chunks: []string{"Elementary, ", "my dear ", "fellow. "}, reply: Result{Tokens: 4}}
	svc := NewService(backend, nil)

	var seen []string
	var last string
	res, err := svc.SendMessageStream(context.Background(), "Hello", sherlock(t), nil, func(chunk, full string) {
		seen = append(seen, chunk)
		last = full
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Elementary, ", "my dear ", "fellow. "}, seen)
	assert.Equal(t, "Elementary, my dear fellow. ", last)
	assert.Equal(t, "Elementary, my dear fellow.", res.Text)
	assert.Equal(t, 4, res.Tokens)
}

func TestFastServiceCachesReplies(t *testing.T) {
	backend := &fakeBackend{reply: Result{Text: "Indeed."}}
	svc := NewFastService(context.Background(), backend, false, nil, WithReplyCache(10))
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, "Hello", sherlock(t), nil)
	require.NoError(t, err)
	res, err := svc.SendMessage(ctx, " hello ", sherlock(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "Indeed.", res.Text)
	assert.Equal(t, 1, backend.calls())
	assert.Equal(t, FastConfig, backend.configs[0])
	assert.NotContains(t, backend.prompts[0], "Previous conversation")

	svc.ClearReplyCache()
	_, err = svc.SendMessage(ctx, "Hello", sherlock(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls())
}

func TestFastServiceDoesNotCacheFailures(t *testing.T) {
	backend := &fakeBackend{err: errors.New("boom")}
	svc := NewFastService(context.Background(), backend, false, nil, WithReplyCache(10))

	_, err := svc.SendMessage(context.Background(), "Hello", nil, nil)
	require.Error(t, err)
	_, err = svc.SendMessage(context.Background(), "Hello", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 2, backend.calls())
}

func TestFastServicePrewarms(t *testing.T) {
	backend := &fakeBackend{reply: Result{Text: "Hi"}}
	NewFastService(context.Background(), backend, true, nil)

	assert.Eventually(t, func() bool { return backend.calls() == 1 }, time.Second, 5*time.Millisecond)
	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, WarmupPrompt, backend.prompts[0])
}

func TestHealthCheck(t *testing.T) {
	ok := NewService(&fakeBackend{reply: Result{Text: "Hello there"}}, nil)
	assert.NoError(t, ok.HealthCheck(context.Background()))

	bad := NewService(&fakeBackend{err: errors.New("API_KEY_INVALID")}, nil)
	assert.True(t, apperrors.Is(bad.HealthCheck(context.Background()), apperrors.ErrInvalidCredentials))
}
