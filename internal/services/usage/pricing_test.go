package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCostKnownModel(t *testing.T) {
	inputCost, outputCost, known := CalculateCost("openai", "gpt-4o", 1_000_000, 1_000_000)
	assert.True(t, known)
	assert.InDelta(t, 2.5, inputCost, 1e-9)
	assert.InDelta(t, 10.0, outputCost, 1e-9)
}

func TestCalculateCostScalesPerToken(t *testing.T) {
	inputCost, outputCost, known := CalculateCost("anthropic", "claude-sonnet-4-5-20250929", 1000, 500)
	assert.True(t, known)
	assert.InDelta(t, 3.0*1000/1_000_000, inputCost, 1e-9)
	assert.InDelta(t, 15.0*500/1_000_000, outputCost, 1e-9)
}

func TestCalculateCostUnknownModel(t *testing.T) {
	inputCost, outputCost, known := CalculateCost("openai", "gpt-99-turbo", 1_000_000, 1_000_000)
	assert.False(t, known)
	assert.Zero(t, inputCost)
	assert.Zero(t, outputCost)
}

func TestCalculateCostUnknownProvider(t *testing.T) {
	_, _, known := CalculateCost("acme", "gpt-4o", 100, 100)
	assert.False(t, known)
}

func TestCalculateCostZeroTokens(t *testing.T) {
	inputCost, outputCost, known := CalculateCost("gemini", "gemini-2.5-flash", 0, 0)
	assert.True(t, known)
	assert.Zero(t, inputCost)
	assert.Zero(t, outputCost)
}
