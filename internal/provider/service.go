package provider

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"roleplay-chat/backend/internal/models"
	"roleplay-chat/backend/pkg/cache"
	apperrors "roleplay-chat/backend/pkg/errors"
	"roleplay-chat/backend/pkg/logger"
	"roleplay-chat/backend/pkg/observability"
)

const tracerName = "roleplay-chat/provider"

// Service is the Client over one Backend and one Variant
type Service struct {
	backend Backend
	variant Variant
	cfg     GenerationConfig
	timeout time.Duration
	replies *cache.FIFO[string, Result]

	log     *logger.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithTimeout bounds each call. Zero, the default, waits for the provider.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

// WithMetrics reports every call into m
func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithReplyCache keeps up to size successful replies keyed by
// kind, character and text.
func WithReplyCache(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.replies = cache.NewFIFO[string, Result](size)
		}
	}
}

// NewService creates a standard-variant client
func NewService(backend Backend, log *logger.Logger, opts ...ServiceOption) *Service {
	return newService(backend, VariantStandard, log, opts...)
}

// NewFastService creates a latency-optimized client. When prewarm is set a
// one-shot generation runs in the background to open the connection.
func NewFastService(ctx context.Context, backend Backend, prewarm bool, log *logger.Logger, opts ...ServiceOption) *Service {
	s := newService(backend, VariantFast, log, opts...)
	if prewarm {
		go s.prewarm(context.WithoutCancel(ctx))
	}
	return s
}

func newService(backend Backend, variant Variant, log *logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		backend: backend,
		variant: variant,
		cfg:     ConfigFor(variant),
		log:     logger.OrNop(log).WithComponent("provider"),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithFields("kind", string(backend.Kind()), "variant", string(variant))
	return s
}

// Kind implements Client
func (s *Service) Kind() Kind { return s.backend.Kind() }

// Variant reports the generation profile
func (s *Service) Variant() Variant { return s.variant }

func (s *Service) prompt(text string, ch *models.Character, history []models.Message) string {
	if s.variant == VariantFast {
		return BuildFastPrompt(text, ch)
	}
	return BuildPrompt(text, ch, history)
}

func (s *Service) cacheKey(text string, ch *models.Character) string {
	id := ""
	if ch != nil {
		id = ch.ID
	}
	return string(s.backend.Kind()) + "|" + id + "|" + strings.ToLower(strings.TrimSpace(text))
}

// SendMessage implements Client
func (s *Service) SendMessage(ctx context.Context, text string, ch *models.Character, history []models.Message) (Result, error) {
	return s.send(ctx, "send", text, ch, history, nil)
}

// SendMessageStream implements Streamer. The sink sees every chunk; the
// Result carries the trimmed concatenation.
func (s *Service) SendMessageStream(ctx context.Context, text string, ch *models.Character, history []models.Message, sink ChunkFunc) (Result, error) {
	var full strings.Builder
	return s.send(ctx, "stream", text, ch, history, func(chunk string) {
		full.WriteString(chunk)
		if sink != nil {
			sink(chunk, full.String())
		}
	})
}

func (s *Service) send(ctx context.Context, op, text string, ch *models.Character, history []models.Message, sink func(string)) (Result, error) {
	key := s.cacheKey(text, ch)
	if s.replies != nil {
		if res, ok := s.replies.Get(key); ok {
			if sink != nil {
				sink(res.Text)
			}
			s.metrics.ObserveProvider(string(s.Kind()), string(s.variant), "cache", 0)
			return res, nil
		}
	}

	ctx, span := s.tracer.Start(ctx, "provider."+op, trace.WithAttributes(
		attribute.String("provider.kind", string(s.Kind())),
		attribute.String("provider.variant", string(s.variant)),
		attribute.Int("history.length", len(history)),
	))
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	prompt := s.prompt(text, ch, history)

	var (
		res Result
		err error
	)
	if sink != nil {
		res, err = s.backend.GenerateStream(ctx, prompt, s.cfg, sink)
	} else {
		res, err = s.backend.Generate(ctx, prompt, s.cfg)
	}
	elapsed := time.Since(start)

	if err == nil {
		res.Text = strings.TrimSpace(res.Text)
		if res.Text == "" {
			err = apperrors.ErrEmptyResponse
		}
	}

	if err != nil {
		mapped := MapError(err)
		outcome := apperrors.GetErrorCode(mapped)
		s.metrics.ObserveProvider(string(s.Kind()), string(s.variant), outcome, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.log.WithContext(ctx).LogError(err, "Provider call failed", "op", op, "reason", outcome, "duration_ms", elapsed.Milliseconds())
		return Result{}, mapped
	}

	s.metrics.ObserveProvider(string(s.Kind()), string(s.variant), "ok", elapsed)
	span.SetAttributes(attribute.Int("usage.total_tokens", res.Tokens))
	s.log.WithContext(ctx).Debug("Provider reply", "op", op, "tokens", res.Tokens, "duration_ms", elapsed.Milliseconds())

	if s.replies != nil {
		s.replies.Set(key, res)
	}
	return res, nil
}

// HealthCheck implements Client with a minimal generation
func (s *Service) HealthCheck(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "provider.health")
	defer span.End()

	res, err := s.backend.Generate(ctx, WarmupPrompt, s.cfg)
	if err == nil && strings.TrimSpace(res.Text) == "" {
		err = apperrors.ErrEmptyResponse
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unhealthy")
		return MapError(err)
	}
	return nil
}

func (s *Service) prewarm(ctx context.Context) {
	if _, err := s.backend.Generate(ctx, WarmupPrompt, s.cfg); err != nil {
		s.log.LogWarn(err, "Model pre-warm failed")
		return
	}
	s.log.Info("Model pre-warmed and ready")
}

// ClearReplyCache drops all cached fast-path replies
func (s *Service) ClearReplyCache() {
	if s.replies != nil {
		s.replies.Flush()
	}
}
