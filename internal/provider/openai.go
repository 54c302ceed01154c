package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	apperrors "roleplay-chat/backend/pkg/errors"
	"roleplay-chat/backend/pkg/logger"
)

// DefaultOpenAIModel is used when no model is configured
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIBackend generates through any OpenAI-compatible chat endpoint
type OpenAIBackend struct {
	client openai.Client
	model  string
	hasKey bool
	log    *logger.Logger
}

// NewOpenAIBackend creates the client. baseURL may point at a compatible server.
func NewOpenAIBackend(apiKey, model, baseURL string, log *logger.Logger, extra ...option.RequestOption) *OpenAIBackend {
	log = logger.OrNop(log).WithComponent("openai")
	if model == "" {
		model = DefaultOpenAIModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)

	if apiKey == "" && baseURL == "" {
		log.Warn("OpenAI API key not found. Set OPENAI_API_KEY or store it in Vault.")
	}

	return &OpenAIBackend{
		client: openai.NewClient(opts...),
		model:  model,
		hasKey: apiKey != "" || baseURL != "",
		log:    log,
	}
}

func (o *OpenAIBackend) Kind() Kind { return KindOpenAI }

// the rendered prompt already carries the persona, so it is sent as one user turn
func (o *OpenAIBackend) params(prompt string, cfg GenerationConfig) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(float64(cfg.Temperature)),
		TopP:                openai.Float(float64(cfg.TopP)),
		MaxCompletionTokens: openai.Int(int64(cfg.MaxOutputTokens)),
	}
}

func (o *OpenAIBackend) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (Result, error) {
	if !o.hasKey {
		return Result{}, apperrors.ErrInvalidCredentials
	}

	completion, err := o.client.Chat.Completions.New(ctx, o.params(prompt, cfg))
	if err != nil {
		return Result{}, translateOpenAIError(err)
	}
	if len(completion.Choices) == 0 {
		return Result{}, nil
	}

	choice := completion.Choices[0]
	if choice.FinishReason == "content_filter" {
		return Result{}, errors.New("SAFETY: content filtered")
	}
	return Result{
		Text:   choice.Message.Content,
		Tokens: int(completion.Usage.TotalTokens),
	}, nil
}

func (o *OpenAIBackend) GenerateStream(ctx context.Context, prompt string, cfg GenerationConfig, sink func(string)) (Result, error) {
	if !o.hasKey {
		return Result{}, apperrors.ErrInvalidCredentials
	}

	params := o.params(prompt, cfg)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		full   strings.Builder
		tokens int
	)
	for stream.Next() {
		chunk := stream.Current()
		if chunk.Usage.TotalTokens > 0 {
			tokens = int(chunk.Usage.TotalTokens)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if chunk.Choices[0].FinishReason == "content_filter" {
			return Result{}, errors.New("SAFETY: content filtered")
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			full.WriteString(text)
			if sink != nil {
				sink(text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return Result{}, translateOpenAIError(err)
	}

	return Result{Text: full.String(), Tokens: tokens}, nil
}

func translateOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.ErrInvalidCredentials.WithCause(err)
		case http.StatusTooManyRequests:
			return apperrors.ErrQuotaExceeded.WithCause(err)
		}
	}
	return err
}
