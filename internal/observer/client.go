package observer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// SamplingOptions configures text generation. Zero values fall back to the
// client defaults.
type SamplingOptions struct {
	Temperature   float64 `json:"temperature" koanf:"temperature"`
	TopK          int     `json:"top_k" koanf:"top_k"`
	TopP          float64 `json:"top_p" koanf:"top_p"`
	MinP          float64 `json:"min_p" koanf:"min_p"`
	RepeatPenalty float64 `json:"repeat_penalty" koanf:"repeat_penalty"`
	MaxTokens     int     `json:"max_tokens" koanf:"max_tokens"`
}

// DefaultSamplingOptions mirrors the Observer model's tuned defaults.
func DefaultSamplingOptions() SamplingOptions {
	return SamplingOptions{
		Temperature:   0.65,
		TopK:          40,
		TopP:          0.9,
		MinP:          0.05,
		RepeatPenalty: 1.1,
		MaxTokens:     512,
	}
}

// merged overlays non-zero fields of o onto base.
func (o SamplingOptions) merged(base SamplingOptions) SamplingOptions {
	out := base
	if o.Temperature != 0 {
		out.Temperature = o.Temperature
	}
	if o.TopK != 0 {
		out.TopK = o.TopK
	}
	if o.TopP != 0 {
		out.TopP = o.TopP
	}
	if o.MinP != 0 {
		out.MinP = o.MinP
	}
	if o.RepeatPenalty != 0 {
		out.RepeatPenalty = o.RepeatPenalty
	}
	if o.MaxTokens != 0 {
		out.MaxTokens = o.MaxTokens
	}
	return out
}

// CompletionRequest is one generation request against the Observer model.
type CompletionRequest struct {
	System   string
	Prompt   string
	Sampling SamplingOptions
}

// CompletionClient is the narrow contract the decomposer and checker
// consume. Tests substitute a stub.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ClientConfig configures the LLM-backed completion client.
type ClientConfig struct {
	// BaseURL is the OpenAI-compatible endpoint of the Observer server,
	// e.g. http://localhost:8000/v1 for a llama.cpp server.
	BaseURL string `koanf:"base_url"`

	// Model is the model identifier passed through to the server.
	Model string `koanf:"model"`

	// APIKey is optional; local servers accept any token.
	APIKey string `koanf:"api_key"`

	// Timeout bounds each outbound call.
	Timeout time.Duration `koanf:"timeout"`

	// Sampling holds the default sampling options.
	Sampling SamplingOptions `koanf:"sampling"`
}

// DefaultClientConfig returns sensible defaults for a local Observer server.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:  "http://localhost:8000/v1",
		Model:    "observer",
		Timeout:  30 * time.Second,
		Sampling: DefaultSamplingOptions(),
	}
}

// Client calls the Observer model via langchaingo's OpenAI-compatible
// client. One long-lived session is shared across all tasks; a mutex keeps
// a single call in flight at a time since the local server processes
// requests serially anyway.
type Client struct {
	llm      *openai.LLM
	config   ClientConfig
	logger   *zap.Logger
	callLock sync.Mutex
}

// NewClient creates a completion client for the configured endpoint.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrCompletion)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClientConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token; local servers ignore it
		apiKey = "not-needed"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(apiKey),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompletion, err)
	}

	return &Client{
		llm:    llm,
		config: cfg,
		logger: logger,
	}, nil
}

// Complete sends one chat completion request and returns the generated text.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	c.callLock.Lock()
	defer c.callLock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	messages := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	sampling := req.Sampling.merged(c.config.Sampling)

	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(sampling.Temperature),
		llms.WithTopK(sampling.TopK),
		llms.WithTopP(sampling.TopP),
		llms.WithRepetitionPenalty(sampling.RepeatPenalty),
		llms.WithMaxTokens(sampling.MaxTokens),
	)
	if err != nil {
		c.logger.Warn("observer completion failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrCompletion)
	}

	content := resp.Choices[0].Content
	c.logger.Debug("observer completion",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_chars", len(content)))
	return content, nil
}
