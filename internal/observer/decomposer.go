package observer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triadd/internal/prompts"
	"github.com/fyrsmithlabs/triadd/internal/task"
)

// TemplateSource supplies rendered instruction templates. Implemented by
// *prompts.Store.
type TemplateSource interface {
	Render(name string, vars map[string]any) (string, error)
	SystemPrompt() string
}

// Decomposer converts a raw task description into a structured
// acceptance-criteria record. Pure with respect to task state; the
// orchestrator applies the result.
type Decomposer struct {
	client    CompletionClient
	templates TemplateSource
	logger    *zap.Logger
}

// NewDecomposer creates a decomposer.
func NewDecomposer(client CompletionClient, templates TemplateSource, logger *zap.Logger) (*Decomposer, error) {
	if client == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if templates == nil {
		return nil, fmt.Errorf("template source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decomposer{client: client, templates: templates, logger: logger}, nil
}

// Decompose produces criteria for the given request text. Template
// rendering, outbound call, and parse failures all surface as
// ErrDecomposition so the caller can keep the task retriable.
func (d *Decomposer) Decompose(ctx context.Context, request string) (*task.Criteria, error) {
	if request == "" {
		return nil, fmt.Errorf("%w: %v", ErrDecomposition, task.ErrEmptyRequest)
	}

	prompt, err := d.templates.Render(prompts.TemplateDecompose, map[string]any{
		"user_prompt": request,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecomposition, err)
	}

	raw, err := d.client.Complete(ctx, CompletionRequest{
		System: d.templates.SystemPrompt(),
		Prompt: prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecomposition, err)
	}

	criteria, err := ParseCriteria(raw)
	if err != nil {
		d.logger.Warn("decomposition output unparseable",
			zap.Int("response_chars", len(raw)))
		return nil, fmt.Errorf("%w: %v", ErrDecomposition, err)
	}

	d.logger.Info("request decomposed",
		zap.Int("requirements", len(criteria.Requirements)),
		zap.Int("forbidden", len(criteria.Forbidden)),
		zap.Int("minimum_viable", len(criteria.MinimumViable)),
		zap.Int("success_criteria", len(criteria.SuccessCriteria)))
	return criteria, nil
}
