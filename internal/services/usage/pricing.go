package usage

// ModelPricing is the cost per one million tokens on each channel.
type ModelPricing struct {
	InputTokenCost  float64
	OutputTokenCost float64
}

type ProviderPricing map[string]ModelPricing

// GlobalPricing is the static price table consulted by the ledger. Prices
// are USD per 1M tokens.
var GlobalPricing = map[string]ProviderPricing{
	"openai": {
		"gpt-5": {
			InputTokenCost:  1.25,
			OutputTokenCost: 10.0,
		},
		"gpt-5-mini": {
			InputTokenCost:  0.25,
			OutputTokenCost: 2.0,
		},
		"gpt-5-nano": {
			InputTokenCost:  0.05,
			OutputTokenCost: 0.4,
		},
		"gpt-4.1": {
			InputTokenCost:  30.0,
			OutputTokenCost: 60.0,
		},
		"gpt-4.1-mini": {
			InputTokenCost:  5.0,
			OutputTokenCost: 10.0,
		},
		"gpt-4o": {
			InputTokenCost:  2.5,
			OutputTokenCost: 10.0,
		},
		"gpt-4o-mini": {
			InputTokenCost:  0.15,
			OutputTokenCost: 0.6,
		},
		"o3": {
			InputTokenCost:  60.0,
			OutputTokenCost: 240.0,
		},
		"o4-mini": {
			InputTokenCost:  10.0,
			OutputTokenCost: 40.0,
		},
	},
	"anthropic": {
		"claude-opus-4-1": {
			InputTokenCost:  15.0,
			OutputTokenCost: 75.0,
		},
		"claude-sonnet-4-5-20250929": {
			InputTokenCost:  3.0,
			OutputTokenCost: 15.0,
		},
		"claude-3-5-sonnet-20241022": {
			InputTokenCost:  3.0,
			OutputTokenCost: 15.0,
		},
		"claude-3-5-haiku-20241022": {
			InputTokenCost:  0.8,
			OutputTokenCost: 4.0,
		},
	},
	"gemini": {
		"gemini-2.5-pro": {
			InputTokenCost:  1.25,
			OutputTokenCost: 10.0,
		},
		"gemini-2.5-flash": {
			InputTokenCost:  0.3,
			OutputTokenCost: 1.2,
		},
		"gemini-2.0-flash": {
			InputTokenCost:  0.1,
			OutputTokenCost: 0.4,
		},
	},
}

// CalculateCost prices a call from the static table. Unknown provider/model
// pairs price at zero; the caller logs the warning so pricing stays pure.
func CalculateCost(provider, model string, inputTokens, outputTokens int) (inputCost, outputCost float64, known bool) {
	providerPricing, exists := GlobalPricing[provider]
	if !exists {
		return 0, 0, false
	}

	modelPricing, exists := providerPricing[model]
	if !exists {
		return 0, 0, false
	}

	inputCost = float64(inputTokens) * modelPricing.InputTokenCost / 1_000_000.0
	outputCost = float64(outputTokens) * modelPricing.OutputTokenCost / 1_000_000.0
	return inputCost, outputCost, true
}
