// Package provider talks to the external text-generation services. Every
// backend receives the same rendered prompt and returns a Result or one of
// the user-facing provider errors from pkg/errors.
package provider

import (
	"context"
	"fmt"
	"strings"

	"roleplay-chat/backend/internal/models"
	"roleplay-chat/backend/pkg/logger"
)

// Kind selects a generation backend
type Kind string

const (
	KindGemini Kind = models.ProviderGemini
	KindOpenAI Kind = models.ProviderOpenAI
	KindLocal  Kind = models.ProviderLocal
)

// ParseKind maps a config string onto a Kind. Unknown values fall back to
// gemini and report false.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindGemini, "":
		return KindGemini, true
	case KindOpenAI:
		return KindOpenAI, true
	case KindLocal:
		return KindLocal, true
	default:
		return KindGemini, false
	}
}

// Result is a successful generation
type Result struct {
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
}

// ChunkFunc receives each streamed chunk along with the text so far
type ChunkFunc func(chunk, full string)

// Client is what the conversation layer calls
type Client interface {
	SendMessage(ctx context.Context, text string, ch *models.Character, history []models.Message) (Result, error)
	HealthCheck(ctx context.Context) error
	Kind() Kind
}

// Streamer is implemented by clients that can stream replies
type Streamer interface {
	SendMessageStream(ctx context.Context, text string, ch *models.Character, history []models.Message, sink ChunkFunc) (Result, error)
}

// Backend performs one generation call against a concrete service
type Backend interface {
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (Result, error)
	GenerateStream(ctx context.Context, prompt string, cfg GenerationConfig, sink func(chunk string)) (Result, error)
	Kind() Kind
}

// Options configures NewBackend
type Options struct {
	Kind          Kind
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	LocalModelURL string
}

// NewBackend is the factory for the configured provider kind
func NewBackend(ctx context.Context, opts Options, log *logger.Logger) (Backend, error) {
	log = logger.OrNop(log)

	switch opts.Kind {
	case KindGemini, "":
		return NewGeminiBackend(ctx, opts.GeminiAPIKey, opts.GeminiModel, log)
	case KindOpenAI:
		return NewOpenAIBackend(opts.OpenAIAPIKey, opts.OpenAIModel, opts.OpenAIBaseURL, log), nil
	case KindLocal:
		if opts.LocalModelURL == "" {
			return nil, fmt.Errorf("local provider needs LOCAL_MODEL_URL")
		}
		return NewLocalBackend(opts.LocalModelURL, nil), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", opts.Kind)
	}
}
