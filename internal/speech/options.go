package speech

import (
	"context"

	"roleplay-chat/backend/pkg/config"
	"roleplay-chat/backend/pkg/logger"
	"roleplay-chat/backend/pkg/observability"
)

// FromConfig builds a Client from cfg.Speech. The remote endpoint, when
// configured, is probed in the background.
func FromConfig(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, log *logger.Logger) *Client {
	var remote *RemoteSynthesizer
	if cfg.Speech.URL != "" {
		remote = NewRemoteSynthesizer(RemoteConfig{
			BaseURL:      cfg.Speech.URL,
			ProbeTimeout: cfg.Speech.ProbeTimeout,
			Timeout:      cfg.Speech.Timeout,
			MaxChars:     cfg.Speech.MaxChars,
		}, log)
		remote.ProbeAsync(ctx)
	}

	var synth Synthesizer
	if remote != nil {
		synth = remote
	}
	return NewClient(synth, NewCommandPlayer(cfg.Speech.PlayerCmd), NewCommandSpeaker(cfg.Speech.FallbackCmd), log,
		WithMetrics(metrics),
		WithCacheSize(cfg.Speech.CacheSize),
	)
}
