package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"roleplay-chat/backend/pkg/logger"
	"roleplay-chat/backend/pkg/resilience"
)

// Clip is synthesized audio
type Clip struct {
	Data        []byte
	ContentType string
}

// Synthesizer turns text into a Clip
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, v Voice) (*Clip, error)
	Available() bool
}

// RemoteConfig configures a RemoteSynthesizer
type RemoteConfig struct {
	BaseURL      string
	ProbeTimeout time.Duration
	// Timeout of zero waits for the endpoint indefinitely
	Timeout  time.Duration
	MaxChars int
}

// RemoteSynthesizer calls a self-hosted synthesis endpoint
type RemoteSynthesizer struct {
	cfg       RemoteConfig
	client    *http.Client
	breaker   *resilience.CircuitBreaker
	available atomic.Bool
	log       *logger.Logger
}

// NewRemoteSynthesizer creates a synthesizer for cfg.BaseURL. It reports
// unavailable until Probe succeeds.
func NewRemoteSynthesizer(cfg RemoteConfig, log *logger.Logger) *RemoteSynthesizer {
	log = logger.OrNop(log).WithComponent("speech-remote")
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 300
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	breakerCfg := resilience.DefaultCircuitBreakerConfig("speech-remote")
	breakerCfg.FailureThreshold = 3
	breakerCfg.RetryTimeout = 30 * time.Second

	return &RemoteSynthesizer{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.NewCircuitBreaker(breakerCfg, log),
		log:     log,
	}
}

// Probe checks GET /health and records the result
func (r *RemoteSynthesizer) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	ok := false
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/health", nil)
	if err == nil {
		var resp *http.Response
		if resp, err = r.client.Do(req); err == nil {
			resp.Body.Close()
			ok = resp.StatusCode >= 200 && resp.StatusCode < 300
			if !ok {
				err = fmt.Errorf("health returned status %d", resp.StatusCode)
			}
		}
	}

	r.available.Store(ok)
	if ok {
		r.log.Info("Speech endpoint is available", "url", r.cfg.BaseURL)
	} else {
		r.log.LogWarn(err, "Speech endpoint not available, using built-in synthesizer", "url", r.cfg.BaseURL)
	}
	return ok
}

// ProbeAsync runs Probe in the background
func (r *RemoteSynthesizer) ProbeAsync(ctx context.Context) {
	go r.Probe(ctx)
}

// Available implements Synthesizer
func (r *RemoteSynthesizer) Available() bool {
	return r.available.Load()
}

type synthesizeRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
	Pitch float64 `json:"pitch"`
}

// Synthesize implements Synthesizer. Text is cut to MaxChars.
func (r *RemoteSynthesizer) Synthesize(ctx context.Context, text string, v Voice) (*Clip, error) {
	var clip *Clip
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		clip, err = r.synthesize(ctx, text, v)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("speech endpoint: %w", err)
	}
	return clip, err
}

func (r *RemoteSynthesizer) synthesize(ctx context.Context, text string, v Voice) (*Clip, error) {
	body, err := json.Marshal(synthesizeRequest{
		Text:  truncate(text, r.cfg.MaxChars),
		Voice: v.Voice,
		Speed: v.Speed,
		Pitch: v.Pitch,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("synthesis failed with status code %d: %s", resp.StatusCode, string(msg))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading synthesis response: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("synthesis returned no audio")
	}

	return &Clip{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}
