package provider

// Variant names a generation profile
type Variant string

const (
	VariantStandard Variant = "standard"
	VariantFast     Variant = "fast"
)

// SafetyThreshold is the content-filter level applied to every harm category
type SafetyThreshold string

const (
	BlockMediumAndAbove SafetyThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	BlockOnlyHigh       SafetyThreshold = "BLOCK_ONLY_HIGH"
)

// GenerationConfig carries the sampling and safety parameters of a call
type GenerationConfig struct {
	Temperature     float32
	TopK            float32
	TopP            float32
	MaxOutputTokens int32
	Safety          SafetyThreshold
}

// StandardConfig is used for regular conversations
var StandardConfig = GenerationConfig{
	Temperature:     0.8,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 500,
	Safety:          BlockMediumAndAbove,
}

// FastConfig trades depth for latency
var FastConfig = GenerationConfig{
	Temperature:     0.7,
	TopK:            20,
	TopP:            0.8,
	MaxOutputTokens: 200,
	Safety:          BlockOnlyHigh,
}

// ConfigFor returns the generation profile of v
func ConfigFor(v Variant) GenerationConfig {
	if v == VariantFast {
		return FastConfig
	}
	return StandardConfig
}
