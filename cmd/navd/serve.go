package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/mchmarny/navd/pkg/api"
	"github.com/mchmarny/navd/pkg/component"
	"github.com/mchmarny/navd/pkg/config"
	"github.com/mchmarny/navd/pkg/console"
	"github.com/mchmarny/navd/pkg/guard"
	"github.com/mchmarny/navd/pkg/logger"
	"github.com/mchmarny/navd/pkg/server"
	"github.com/mchmarny/navd/pkg/session"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Run the console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := session.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()

	sessions := session.NewManager(store, session.WithTTL(cfg.Console.SessionTTL))
	backend := api.New(cfg.Console.BackendURL, api.WithTimeout(cfg.Console.RequestTimeout))

	reg := prometheus.NewRegistry()
	metrics, err := guard.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	con := console.New(sessions, backend, component.Default(), console.Config{
		HomePath:     cfg.Console.HomePath,
		CookieSecure: cfg.Console.CookieSecure,
		SessionTTL:   cfg.Console.SessionTTL,
	}, console.WithMetrics(metrics))

	srvOpts := []server.Option{
		server.WithPort(cfg.Server.Port),
		server.WithReadTimeout(cfg.Server.ReadTimeout),
		server.WithWriteTimeout(cfg.Server.WriteTimeout),
		server.WithIdleTimeout(cfg.Server.IdleTimeout),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithRegistry(reg),
		server.WithPrometheusMetrics(),
		server.WithSimpleHealth(),
		server.WithHandler("/", con.Handler()),
		server.WithErrorLogger(logger.NewLogLogger(slog.LevelWarn, false)),
	}
	if cfg.Server.TLSCert != "" {
		srvOpts = append(srvOpts, server.WithTLS(server.TLSConfig{
			CertFile: cfg.Server.TLSCert,
			KeyFile:  cfg.Server.TLSKey,
		}))
	}
	srv := server.New(srvOpts...)

	scheduler, err := startPruning(ctx, cfg.Console.PruneSchedule, sessions, con)
	if err != nil {
		return err
	}
	defer func() { <-scheduler.Stop().Done() }()

	slog.Info("console starting",
		"backend", cfg.Console.BackendURL,
		"home", cfg.Console.HomePath,
		"database", cfg.Database.Path)

	return srv.Serve(ctx)
}

// startPruning schedules removal of expired remembered sessions and of the
// routers of signed-out sessions.
func startPruning(ctx context.Context, schedule string, sessions *session.Manager, con *console.Console) (*cron.Cron, error) {
	c := cron.New(cron.WithLogger(cronLogger{logger: slog.Default().With("component", "cron")}))

	_, err := c.AddFunc(schedule, func() {
		pruned, err := sessions.Prune(ctx)
		if err != nil {
			slog.Error("session prune failed", "error", err)
			return
		}
		swept := con.Sweep()
		slog.Info("sessions pruned",
			"expired", pruned,
			"routers_dropped", swept,
			"active_routers", con.Clients())
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling prune job %q: %w", schedule, err)
	}

	c.Start()
	return c, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
