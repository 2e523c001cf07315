package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mchmarny/navd/pkg/auth"
	"github.com/mchmarny/navd/pkg/backend"
	"github.com/mchmarny/navd/pkg/config"
	"github.com/mchmarny/navd/pkg/logger"
	"github.com/mchmarny/navd/pkg/server"
)

func newBackendCmd(opts *rootOptions) *cobra.Command {
	var fixture string

	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Run the development backend serving login, menus and permissions from a fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if fixture != "" {
				cfg.Backend.Fixture = fixture
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runBackend(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&fixture, "fixture", "", "fixture file (overrides backend.fixture)")
	return cmd
}

func runBackend(ctx context.Context, cfg *config.Config) error {
	if cfg.Backend.JWTSecret == "" {
		return errors.New("backend.jwt_secret is required (set NAVD_BACKEND_JWT_SECRET)")
	}

	f, err := backend.LoadFixture(cfg.Backend.Fixture)
	if err != nil {
		return err
	}

	b, err := backend.New(f, auth.NewIssuer([]byte(cfg.Backend.JWTSecret)),
		backend.WithTokenTTL(cfg.Backend.TokenTTL))
	if err != nil {
		return fmt.Errorf("creating backend: %w", err)
	}

	slog.Info("backend starting", "fixture", cfg.Backend.Fixture)

	return server.New(
		server.WithPort(cfg.Backend.Port),
		server.WithSimpleHealth(),
		server.WithHandler("/", b.Handler()),
		server.WithErrorLogger(logger.NewLogLogger(slog.LevelWarn, false)),
	).Serve(ctx)
}
