package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roleplay-chat/backend/pkg/logger"
	"roleplay-chat/backend/pkg/observability"
)

// RegistryConfig configures a Registry
type RegistryConfig struct {
	Options       Options
	Timeout       time.Duration
	FastPrewarm   bool
	FastCacheSize int
	Metrics       *observability.Metrics
}

type variantKey struct {
	kind    Kind
	variant Variant
}

// Registry builds one Service per kind and variant on first use, so a
// settings change of apiProvider switches backends without a restart.
type Registry struct {
	cfg RegistryConfig
	log *logger.Logger

	mu       sync.Mutex
	services map[variantKey]*Service
	newBack  func(ctx context.Context, opts Options, log *logger.Logger) (Backend, error)
}

// NewRegistry creates an empty registry
func NewRegistry(cfg RegistryConfig, log *logger.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		log:      logger.OrNop(log),
		services: make(map[variantKey]*Service),
		newBack:  NewBackend,
	}
}

// Default is the configured provider kind
func (r *Registry) Default() Kind {
	if r.cfg.Options.Kind == "" {
		return KindGemini
	}
	return r.cfg.Options.Kind
}

// Client returns the standard client for kind; empty kind means Default
func (r *Registry) Client(ctx context.Context, kind Kind) (Client, error) {
	s, err := r.get(ctx, kind, VariantStandard)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Fast returns the latency-optimized client for kind
func (r *Registry) Fast(ctx context.Context, kind Kind) (Client, error) {
	s, err := r.get(ctx, kind, VariantFast)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// HealthCheck probes the default standard client
func (r *Registry) HealthCheck(ctx context.Context) error {
	c, err := r.Client(ctx, "")
	if err != nil {
		return err
	}
	return c.HealthCheck(ctx)
}

// ClearReplyCaches empties the reply cache of every fast client built so far
func (r *Registry) ClearReplyCaches() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.services {
		s.ClearReplyCache()
	}
}

func (r *Registry) get(ctx context.Context, kind Kind, variant Variant) (*Service, error) {
	if kind == "" {
		kind = r.Default()
	}
	key := variantKey{kind: kind, variant: variant}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.services[key]; ok {
		return s, nil
	}

	backend, err := r.newBack(ctx, r.cfg.Options.WithKind(kind), r.log)
	if err != nil {
		return nil, fmt.Errorf("build %s provider: %w", kind, err)
	}

	opts := []ServiceOption{WithTimeout(r.cfg.Timeout), WithMetrics(r.cfg.Metrics)}
	var s *Service
	if variant == VariantFast {
		opts = append(opts, WithReplyCache(r.cfg.FastCacheSize))
		s = NewFastService(ctx, backend, r.cfg.FastPrewarm, r.log, opts...)
	} else {
		s = NewService(backend, r.log, opts...)
	}

	r.services[key] = s
	r.log.Info("Provider client ready", "kind", string(kind), "variant", string(variant))
	return s, nil
}
