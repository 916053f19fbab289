// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anamnesis-dev/aurora/internal/agent"
	"github.com/anamnesis-dev/aurora/internal/cases"
	"github.com/anamnesis-dev/aurora/internal/config"
	"github.com/anamnesis-dev/aurora/internal/observability"
	"github.com/anamnesis-dev/aurora/internal/provider"
	"github.com/anamnesis-dev/aurora/internal/provider/anthropic"
	"github.com/anamnesis-dev/aurora/internal/provider/openai"
	"github.com/anamnesis-dev/aurora/internal/secrets"
	"github.com/anamnesis-dev/aurora/internal/server"
	"github.com/anamnesis-dev/aurora/internal/store"
	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"

	// Registers the sqlite session backend.
	_ "github.com/anamnesis-dev/aurora/internal/store/sqlite"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the aurora agent service",
		Long:  "Load configuration, wire the session store, case store, model providers and tool loop, then serve the HTTP API until interrupted.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session storage.
	sessions, err := store.Open(store.StorageConfig{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
	})
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	// Case store: the platform database when configured, fixtures otherwise.
	var caseStore cases.Store
	if cfg.Cases.DatabaseURL != "" {
		pg, err := cases.NewPostgresStore(ctx, cfg.Cases.DatabaseURL)
		if err != nil {
			return err
		}
		caseStore = pg
		logger.Info("case store connected", "backend", "postgres")
	} else {
		caseStore = cases.NewMemoryStore()
		logger.Warn("no case database configured, serving fixture cases")
	}
	defer func() { _ = caseStore.Close() }()

	// Model providers.
	registry, err := buildProviderRegistry(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = registry.Close() }()

	metrics := observability.NewMetrics("aurora", func() float64 {
		n, err := sessions.Count(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	})

	toolRegistry := agent.NewToolRegistry(caseStore)
	dispatcher := agent.NewToolDispatcher(toolRegistry, metrics, logger)
	loop := agent.NewLoop(agent.LoopConfig{
		Sessions:      sessions,
		Providers:     registry,
		Registry:      toolRegistry,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		MaxIterations: cfg.Agent.MaxIterations,
		MaxTokens:     cfg.Models.MaxTokens,
		SessionTTL:    cfg.Sessions.TTL,
	})

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, server.Deps{
		Loop:      loop,
		Providers: registry,
		Sessions:  sessions,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting aurora",
		"listen", cfg.Server.Listen,
		"storage", cfg.Storage.Backend,
		"model", cfg.Models.Default)

	return srv.Start(ctx)
}

// buildProviderRegistry constructs every configured provider. API keys may be
// literals or keyring:// references.
func buildProviderRegistry(cfg *config.Config, logger *slog.Logger) (*provider.Registry, error) {
	registry := provider.NewRegistry(cfg.Models.Default)
	keyStore := secrets.NewKeyringStore()

	for name, pc := range cfg.Providers {
		apiKey, err := secrets.ResolveKeyringURI(keyStore, pc.APIKey)
		if err != nil {
			return nil, auroraerr.Wrapf(err, auroraerr.CodeConfigValidateInvalidValue,
				"resolving api key for provider %q", name)
		}

		switch name {
		case "anthropic":
			p, err := anthropic.New(anthropic.Config{APIKey: apiKey, BaseURL: pc.Endpoint})
			if err != nil {
				return nil, err
			}
			registry.Register(p)
		case "openai":
			p, err := openai.New(openai.Config{APIKey: apiKey, BaseURL: pc.Endpoint})
			if err != nil {
				return nil, err
			}
			registry.Register(p)
		default:
			logger.Warn("ignoring unknown provider in config", "provider", name)
		}
	}

	return registry, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
