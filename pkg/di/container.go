package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"roleplay-chat/backend/internal/character"
	"roleplay-chat/backend/internal/conversation"
	"roleplay-chat/backend/internal/history"
	"roleplay-chat/backend/internal/provider"
	"roleplay-chat/backend/internal/settings"
	"roleplay-chat/backend/internal/speech"
	"roleplay-chat/backend/internal/store"
	"roleplay-chat/backend/internal/ws"
	"roleplay-chat/backend/pkg/config"
	"roleplay-chat/backend/pkg/health"
	"roleplay-chat/backend/pkg/logger"
	"roleplay-chat/backend/pkg/observability"
	"roleplay-chat/backend/pkg/secrets"
)

// Container holds all the dependencies for the application
type Container struct {
	Config         *config.Config
	Logger         *logger.Logger
	Store          *store.Store
	Catalog        *character.Catalog
	Secrets        secrets.Manager
	Providers      *provider.Registry
	Speech         *speech.Client
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	Health         *health.Checker
	Sessions       *conversation.Sessions
	Hub            *ws.Hub

	shutdown []func(context.Context) error
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	log = logger.OrNop(log)
	c := &Container{Config: cfg, Logger: log, Hub: ws.NewHub()}

	if cfg.Observability.TracingEnabled {
		shutdownTracing, err := observability.SetupTracing("roleplay-chat")
		if err != nil {
			return nil, err
		}
		c.shutdown = append(c.shutdown, shutdownTracing)
	}

	if cfg.Observability.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		mp, handler, err := observability.SetupMetrics(reg)
		if err != nil {
			return nil, err
		}
		c.Metrics = observability.NewMetrics(reg)
		c.MetricsHandler = handler
		c.shutdown = append(c.shutdown, mp.Shutdown)
	}

	kv, err := store.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	c.Store = kv
	c.shutdown = append(c.shutdown, func(context.Context) error { return kv.Close() })

	catalog, err := character.Load(cfg.Characters.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load characters: %w", err)
	}
	c.Catalog = catalog

	sec, err := secrets.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets: %w", err)
	}
	c.Secrets = sec

	c.Providers = provider.NewRegistry(provider.RegistryConfig{
		Options:       provider.OptionsFromConfig(ctx, cfg, sec, log),
		Timeout:       cfg.Provider.Timeout,
		FastPrewarm:   cfg.Provider.FastPrewarm,
		FastCacheSize: cfg.Provider.FastCacheSize,
		Metrics:       c.Metrics,
	}, log)

	c.Speech = speech.FromConfig(ctx, cfg, c.Metrics, log)
	c.Sessions = conversation.NewSessions(c.Conversation, c.FastSession)
	c.Health = c.newHealthChecker()

	log.Info("Container ready",
		"storage", cfg.Storage.Backend,
		"provider", string(c.Providers.Default()),
		"characters", catalog.Len(),
		"speech_url", cfg.Speech.URL,
	)
	return c, nil
}

// Conversation builds the orchestrator for sessionID. Its history and
// settings live in the session's store namespace.
func (c *Container) Conversation(ctx context.Context, sessionID string) (*conversation.Orchestrator, error) {
	ns := c.Store.Namespace(sessionID)
	log := c.Logger
	if sessionID != "" {
		log = log.WithSessionID(sessionID)
	}

	return conversation.New(ctx, conversation.Deps{
		Catalog:   c.Catalog,
		History:   history.New(ns),
		Settings:  settings.New(ns, settings.Defaults(c.Config)),
		Providers: c.Providers,
		Speech:    c.Speech,
		Metrics:   c.Metrics,
		Logger:    log,
	}), nil
}

// FastSession builds the demo session for sessionID
func (c *Container) FastSession(ctx context.Context, sessionID string) (*conversation.FastSession, error) {
	client, err := c.Providers.Fast(ctx, "")
	if err != nil {
		return nil, err
	}
	return conversation.NewFastSession(c.Catalog, client, c.Speech, c.Metrics, c.Logger.WithSessionID(sessionID)), nil
}

func (c *Container) newHealthChecker() *health.Checker {
	checker := health.NewChecker(c.Logger, c.Config.Health.CheckPeriod)

	checker.RegisterCheck("storage", true, func(ctx context.Context) (health.Status, string, error) {
		if err := c.Store.Ping(ctx); err != nil {
			return health.StatusDown, "storage backend unreachable", err
		}
		return health.StatusUp, "storage backend " + c.Config.Storage.Backend, nil
	})

	checker.RegisterCheck("provider", false, func(ctx context.Context) (health.Status, string, error) {
		if err := c.Providers.HealthCheck(ctx); err != nil {
			return health.StatusDown, "provider " + string(c.Providers.Default()), err
		}
		return health.StatusUp, "provider " + string(c.Providers.Default()), nil
	})

	if c.Config.Speech.URL != "" {
		checker.RegisterHTTPProbe("speech", c.Config.Speech.URL+"/health", c.Config.Speech.ProbeTimeout, false)
	} else {
		checker.RegisterCheck("speech", false, func(context.Context) (health.Status, string, error) {
			if c.Speech.Supported() {
				return health.StatusDegraded, "built-in synthesizer only", nil
			}
			return health.StatusDown, "no synthesizer available", nil
		})
	}

	return checker
}

// ClearCaches drops cached speech clips and fast-path replies
func (c *Container) ClearCaches() {
	c.Speech.ClearCache()
	c.Providers.ClearReplyCaches()
	c.Logger.Info("Caches cleared")
}

// Close releases the store and flushes telemetry
func (c *Container) Close(ctx context.Context) error {
	c.Speech.Stop()
	var errs []error
	for i := len(c.shutdown) - 1; i >= 0; i-- {
		if err := c.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
