package provider

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	apperrors "roleplay-chat/backend/pkg/errors"
	"roleplay-chat/backend/pkg/logger"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.0-flash"

// geminiModels is the part of genai.Models used here
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// GeminiBackend generates through the Gemini API
type GeminiBackend struct {
	models geminiModels
	model  string
	log    *logger.Logger
}

// NewGeminiBackend creates the genai client. A missing key is not fatal:
// calls fail with the invalid-credentials reason instead.
func NewGeminiBackend(ctx context.Context, apiKey, model string, log *logger.Logger) (*GeminiBackend, error) {
	log = logger.OrNop(log).WithComponent("gemini")
	if model == "" {
		model = DefaultGeminiModel
	}
	if apiKey == "" {
		log.Warn("Gemini API key not found. Set GEMINI_API_KEY or store it in Vault.")
		return &GeminiBackend{model: model, log: log}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiBackend{models: client.Models, model: model, log: log}, nil
}

func (g *GeminiBackend) Kind() Kind { return KindGemini }

func (g *GeminiBackend) contentConfig(cfg GenerationConfig) *genai.GenerateContentConfig {
	threshold := genai.HarmBlockThresholdBlockMediumAndAbove
	if cfg.Safety == BlockOnlyHigh {
		threshold = genai.HarmBlockThresholdBlockOnlyHigh
	}
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	safety := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		safety = append(safety, &genai.SafetySetting{Category: c, Threshold: threshold})
	}

	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(cfg.Temperature),
		TopK:            genai.Ptr(cfg.TopK),
		TopP:            genai.Ptr(cfg.TopP),
		MaxOutputTokens: cfg.MaxOutputTokens,
		SafetySettings:  safety,
	}
}

func (g *GeminiBackend) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (Result, error) {
	if g.models == nil {
		return Result{}, apperrors.ErrInvalidCredentials
	}

	res, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), g.contentConfig(cfg))
	if err != nil {
		return Result{}, err
	}
	if err := blocked(res); err != nil {
		return Result{}, err
	}

	return Result{Text: res.Text(), Tokens: totalTokens(res)}, nil
}

func (g *GeminiBackend) GenerateStream(ctx context.Context, prompt string, cfg GenerationConfig, sink func(string)) (Result, error) {
	if g.models == nil {
		return Result{}, apperrors.ErrInvalidCredentials
	}

	var (
		full   strings.Builder
		tokens int
	)
	for res, err := range g.models.GenerateContentStream(ctx, g.model, genai.Text(prompt), g.contentConfig(cfg)) {
		if err != nil {
			return Result{}, err
		}
		if err := blocked(res); err != nil {
			return Result{}, err
		}
		if chunk := res.Text(); chunk != "" {
			full.WriteString(chunk)
			if sink != nil {
				sink(chunk)
			}
		}
		if n := totalTokens(res); n > 0 {
			tokens = n
		}
	}

	return Result{Text: full.String(), Tokens: tokens}, nil
}

// blocked reports a safety block that came back as a normal response
func blocked(res *genai.GenerateContentResponse) error {
	if res == nil {
		return nil
	}
	if res.PromptFeedback != nil && res.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("prompt blocked: %s", res.PromptFeedback.BlockReason)
	}
	for _, c := range res.Candidates {
		if c != nil && c.FinishReason == genai.FinishReasonSafety {
			return fmt.Errorf("candidate blocked: %s", c.FinishReason)
		}
	}
	return nil
}

func totalTokens(res *genai.GenerateContentResponse) int {
	if res == nil || res.UsageMetadata == nil {
		return 0
	}
	return int(res.UsageMetadata.TotalTokenCount)
}
