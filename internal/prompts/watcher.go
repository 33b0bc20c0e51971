package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the store whenever a YAML file in the prompts directory
// changes. Blocks until ctx is cancelled. No-op (returns nil) when the
// store has no override directory.
func (s *Store) Watch(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating prompts watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watching prompts directory %s: %w", s.dir, err)
	}

	s.logger.Info("watching prompts directory", zap.String("dir", s.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".yaml") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				// A half-written or invalid file keeps the previous templates.
				s.logger.Warn("prompt reload failed",
					zap.String("file", event.Name),
					zap.Error(err))
				continue
			}
			s.logger.Info("prompt templates reloaded", zap.String("file", event.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("prompts watcher error", zap.Error(err))
		}
	}
}
