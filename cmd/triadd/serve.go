package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/triadd/internal/config"
	triaddhttp "github.com/fyrsmithlabs/triadd/internal/http"
	"github.com/fyrsmithlabs/triadd/internal/logging"
	"github.com/fyrsmithlabs/triadd/internal/mcp"
	"github.com/fyrsmithlabs/triadd/internal/observer"
	"github.com/fyrsmithlabs/triadd/internal/orchestrator"
	"github.com/fyrsmithlabs/triadd/internal/prompts"
	"github.com/fyrsmithlabs/triadd/internal/session"
	"github.com/fyrsmithlabs/triadd/internal/task"
	"github.com/fyrsmithlabs/triadd/internal/telemetry"
	"github.com/fyrsmithlabs/triadd/internal/worklog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the triadd MCP server on stdio",
	Long: `Start the triadd MCP server. The protocol runs over stdio, so this
command is meant to be launched by an MCP client. Logs go to stderr.

Examples:
  # Start with defaults
  triadd serve

  # Start with a specific config file
  triadd serve --config /etc/triadd/config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return run(ctx)
}

// run initializes all services and blocks until context cancellation.
//
//  1. Loads and validates configuration
//  2. Initializes the logger (stderr only; stdout belongs to MCP)
//  3. Builds the prompt template store, optionally watching for overrides
//  4. Connects the Observer completion client
//  5. Wires the orchestrator with repository, sessions, and worklog
//  6. Starts the optional debug HTTP server
//  7. Runs the MCP server on stdio until shutdown
func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("starting triadd",
		zap.String("version", version),
		zap.String("observer_base_url", cfg.Observer.BaseURL),
		zap.Int("max_iterations", cfg.Task.MaxIterations))

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Protocol:       cfg.Telemetry.Protocol,
		Insecure:       cfg.Telemetry.Insecure,
		ExportInterval: cfg.Telemetry.ExportInterval,
		ServiceName:    cfg.Server.Name,
		ServiceVersion: cfg.Server.Version,
	})
	if err != nil {
		logger.Warn("telemetry disabled", zap.Error(err))
	} else if tel.IsEnabled() {
		logger.Info("telemetry enabled",
			zap.String("endpoint", cfg.Telemetry.Endpoint),
			zap.String("protocol", cfg.Telemetry.Protocol))
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", zap.Error(err))
			}
		}()
	}

	store, err := prompts.NewStore(cfg.Prompts.Dir, logger)
	if err != nil {
		return fmt.Errorf("failed to load prompt templates: %w", err)
	}
	if cfg.Prompts.Watch && cfg.Prompts.Dir != "" {
		go func() {
			if err := store.Watch(ctx); err != nil {
				logger.Warn("prompt watcher stopped", zap.Error(err))
			}
		}()
	}

	client, err := observer.NewClient(observer.ClientConfig{
		BaseURL: cfg.Observer.BaseURL,
		Model:   cfg.Observer.Model,
		APIKey:  cfg.Observer.APIKey,
		Timeout: cfg.Observer.Timeout,
		Sampling: observer.SamplingOptions{
			Temperature:   cfg.Observer.Sampling.Temperature,
			TopK:          cfg.Observer.Sampling.TopK,
			TopP:          cfg.Observer.Sampling.TopP,
			MinP:          cfg.Observer.Sampling.MinP,
			RepeatPenalty: cfg.Observer.Sampling.RepeatPenalty,
			MaxTokens:     cfg.Observer.Sampling.MaxTokens,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create observer client: %w", err)
	}

	decomposer, err := observer.NewDecomposer(client, store, logger)
	if err != nil {
		return fmt.Errorf("failed to create decomposer: %w", err)
	}
	checker, err := observer.NewChecker(client, store, logger)
	if err != nil {
		return fmt.Errorf("failed to create alignment checker: %w", err)
	}

	var wl *worklog.Manager
	if cfg.Worklog.Enabled {
		wl, err = worklog.NewManager(cfg.Worklog.Dir, logger)
		if err != nil {
			return fmt.Errorf("failed to create worklog: %w", err)
		}
		logger.Info("worklog enabled", zap.String("dir", wl.Dir()))
	}

	sessions := session.NewRegistry(logger)
	repo := task.NewMemoryRepository()

	svc, err := orchestrator.NewService(repo, decomposer, checker, sessions, wl,
		orchestrator.Config{MaxIterations: cfg.Task.MaxIterations}, logger)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if cfg.Debug.Enabled {
		debugSrv, err := triaddhttp.NewServer(svc, sessions, logger, &triaddhttp.Config{
			Host: cfg.Debug.Host,
			Port: cfg.Debug.Port,
		})
		if err != nil {
			return fmt.Errorf("failed to create debug server: %w", err)
		}
		go func() {
			if err := debugSrv.Start(); err != nil {
				logger.Warn("debug server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := debugSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("debug server shutdown failed", zap.Error(err))
			}
		}()
	}

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
		Logger:  logger,
	}, svc, sessions)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	return srv.Run(ctx)
}
