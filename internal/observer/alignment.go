package observer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triadd/internal/prompts"
	"github.com/fyrsmithlabs/triadd/internal/task"
)

// alignmentTemperature keeps verdicts deterministic-ish; judgment calls
// should not be creative.
const alignmentTemperature = 0.3

// Alignment is the advisory verdict on one submission.
type Alignment struct {
	Aligned bool     `json:"aligned"`
	Reasons []string `json:"reasons"`
}

// Checker judges whether submitted code stays within the original
// acceptance criteria. Advisory only: it never mutates task state, and
// callers must treat a check failure as non-fatal.
type Checker struct {
	client    CompletionClient
	templates TemplateSource
	logger    *zap.Logger
}

// NewChecker creates an alignment checker.
func NewChecker(client CompletionClient, templates TemplateSource, logger *zap.Logger) (*Checker, error) {
	if client == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if templates == nil {
		return nil, fmt.Errorf("template source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{client: client, templates: templates, logger: logger}, nil
}

// CheckAlignment asks the Observer whether code matches the criteria.
func (c *Checker) CheckAlignment(ctx context.Context, criteria *task.Criteria, code, description string) (*Alignment, error) {
	if criteria == nil {
		return nil, fmt.Errorf("%w: %v", ErrAlignmentCheck, task.ErrNilCriteria)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: %v", ErrAlignmentCheck, task.ErrEmptyCode)
	}

	prompt, err := c.templates.Render(prompts.TemplateCheckAlignment, map[string]any{
		"criteria":    criteria.Format(),
		"description": description,
		"code":        code,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAlignmentCheck, err)
	}

	raw, err := c.client.Complete(ctx, CompletionRequest{
		System:   c.templates.SystemPrompt(),
		Prompt:   prompt,
		Sampling: SamplingOptions{Temperature: alignmentTemperature},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAlignmentCheck, err)
	}

	verdict := parseAlignment(raw)
	c.logger.Info("alignment checked",
		zap.Bool("aligned", verdict.Aligned),
		zap.Int("reasons", len(verdict.Reasons)))
	return verdict, nil
}

// negativeVerdicts are checked before the positive match: every one of
// them contains "ALIGNED" as a substring.
var negativeVerdicts = []string{"NOT_ALIGNED", "NOT ALIGNED", "MISALIGNED", "UNALIGNED"}

// parseAlignment extracts the verdict and REASON lines. Negative verdicts
// win over ALIGNED since they contain it as a substring. With no REASON
// lines, the raw text becomes the single reason so the caller always has
// something to show.
func parseAlignment(text string) *Alignment {
	upper := strings.ToUpper(text)
	aligned := strings.Contains(upper, "ALIGNED")
	for _, neg := range negativeVerdicts {
		if strings.Contains(upper, neg) {
			aligned = false
			break
		}
	}

	var reasons []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(line), "REASON:") {
			continue
		}
		if reason := strings.TrimSpace(line[len("REASON:"):]); reason != "" {
			reasons = append(reasons, reason)
		}
	}
	if len(reasons) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			reasons = []string{trimmed}
		}
	}

	return &Alignment{Aligned: aligned, Reasons: reasons}
}
