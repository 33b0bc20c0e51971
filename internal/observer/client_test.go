package observer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSamplingOptions(t *testing.T) {
	opts := DefaultSamplingOptions()
	assert.InDelta(t, 0.65, opts.Temperature, 0.001)
	assert.Equal(t, 40, opts.TopK)
	assert.InDelta(t, 0.9, opts.TopP, 0.001)
	assert.InDelta(t, 0.05, opts.MinP, 0.001)
	assert.InDelta(t, 1.1, opts.RepeatPenalty, 0.001)
	assert.Equal(t, 512, opts.MaxTokens)
}

func TestSamplingOptionsMerged(t *testing.T) {
	base := DefaultSamplingOptions()

	// Zero request options keep all base values.
	merged := SamplingOptions{}.merged(base)
	assert.Equal(t, base, merged)

	// Non-zero request options win field by field.
	merged = SamplingOptions{Temperature: 0.3, MaxTokens: 128}.merged(base)
	assert.InDelta(t, 0.3, merged.Temperature, 0.001)
	assert.Equal(t, 128, merged.MaxTokens)
	assert.Equal(t, base.TopK, merged.TopK)
	assert.InDelta(t, base.RepeatPenalty, merged.RepeatPenalty, 0.001)
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(ClientConfig{
		BaseURL: "http://localhost:8000/v1",
		Model:   "observer",
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, client.llm)
	assert.Equal(t, 30*time.Second, client.config.Timeout, "zero timeout falls back to default")
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{}, nil)
	assert.ErrorIs(t, err, ErrCompletion)
}
