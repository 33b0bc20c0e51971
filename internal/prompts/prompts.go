// Package prompts provides the instruction templates sent to the Observer
// model. Built-in defaults can be overridden per template by dropping a
// YAML file (role + content keys) into a prompts directory; the directory
// is watched so edits apply without a restart.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	lcprompts "github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"
)

// Template names.
const (
	TemplateSystem         = "system"
	TemplateDecompose      = "decompose"
	TemplateCheckAlignment = "check_alignment"
)

const maxTemplateFileSize = 256 * 1024

var (
	ErrUnknownTemplate = fmt.Errorf("unknown prompt template")
	ErrEmptyContent    = fmt.Errorf("prompt template content is empty")
)

// template pairs raw content with the variables it interpolates.
type template struct {
	content string
	vars    []string
}

var defaults = map[string]template{
	TemplateSystem: {
		content: "You are the Observer: an impartial task-decomposition and " +
			"alignment model. You never write code. Answer in the exact format " +
			"each instruction asks for, with no extra commentary.",
	},
	TemplateDecompose: {
		content: `Decompose the following request into acceptance criteria.

Request:
{{.user_prompt}}

Respond with exactly these four labeled sections, one item per line:
REQUIREMENTS:
FORBIDDEN:
MINIMUM_VIABLE:
SUCCESS_CRITERIA:`,
		vars: []string{"user_prompt"},
	},
	TemplateCheckAlignment: {
		content: `Check whether the code below stays within the acceptance criteria,
with no scope creep and no forbidden techniques.

Acceptance criteria:
{{.criteria}}

Submission description:
{{.description}}

Code:
{{.code}}

Respond with ALIGNED or NOT_ALIGNED on the first line, followed by one or
more lines starting with REASON: explaining the verdict.`,
		vars: []string{"criteria", "description", "code"},
	},
}

// Store holds the active set of templates. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	templates map[string]template
	dir       string
	logger    *zap.Logger
}

// NewStore creates a store seeded with the built-in templates, then
// overlays any *.yaml files found in dir (empty dir skips the overlay).
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		templates: make(map[string]template, len(defaults)),
		dir:       dir,
		logger:    logger,
	}
	for name, tpl := range defaults {
		s.templates[name] = tpl
	}
	if dir != "" {
		if err := s.loadDir(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Render interpolates the named template with vars.
func (s *Store) Render(name string, vars map[string]any) (string, error) {
	s.mu.RLock()
	tpl, ok := s.templates[name]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	if len(tpl.vars) == 0 {
		return tpl.content, nil
	}
	pt := lcprompts.NewPromptTemplate(tpl.content, tpl.vars)
	out, err := pt.Format(vars)
	if err != nil {
		return "", fmt.Errorf("rendering template %s: %w", name, err)
	}
	return out, nil
}

// SystemPrompt returns the system template content.
func (s *Store) SystemPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.templates[TemplateSystem].content
}

// Reload re-reads override files from the prompts directory.
func (s *Store) Reload() error {
	if s.dir == "" {
		return nil
	}
	return s.loadDir()
}

// loadDir overlays templates from *.yaml files in the store directory.
// File stem is the template name; unknown names are rejected so typos
// surface instead of silently using the default.
func (s *Store) loadDir() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading prompts directory %s: %w", s.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		base, ok := defaults[name]
		if !ok {
			return fmt.Errorf("%w: %s (file %s)", ErrUnknownTemplate, name, entry.Name())
		}

		path := filepath.Join(s.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat prompt file %s: %w", path, err)
		}
		if info.Size() > maxTemplateFileSize {
			return fmt.Errorf("prompt file too large: %s (%d bytes)", path, info.Size())
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading prompt file %s: %w", path, err)
		}

		k := koanf.New(".")
		if err := k.Load(rawbytes.Provider(content), kyaml.Parser()); err != nil {
			return fmt.Errorf("parsing prompt file %s: %w", path, err)
		}
		text := k.String("content")
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: %s", ErrEmptyContent, path)
		}

		s.mu.Lock()
		s.templates[name] = template{content: text, vars: base.vars}
		s.mu.Unlock()

		s.logger.Info("prompt template loaded",
			zap.String("template", name),
			zap.String("path", path))
	}
	return nil
}
