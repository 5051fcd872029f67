package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"countrypulse/internal/alerting"
	"countrypulse/internal/api"
	"countrypulse/internal/config"
	"countrypulse/internal/countries"
	"countrypulse/internal/gateway"
	"countrypulse/internal/logger"
	"countrypulse/internal/migrate"
	"countrypulse/internal/report"
	"countrypulse/internal/storage"
)

func main() {
	// Missing .env is fine; environment variables win either way.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "countrypulse",
		Short: "Country metadata and exchange rate snapshot service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.FromEnv()
				return migrate.Up(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.FromEnv()
				return migrate.Down(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := config.FromEnv()
				return migrate.Status(cmd.Context(), cfg.DBDriver, cfg.DBDSN)
			},
		},
	)

	root.AddCommand(serve, migrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	if cfg.AutoMigrate && cfg.DBDriver != "memory" {
		if err := migrate.Up(ctx, cfg.DBDriver, cfg.DBDSN); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		log.Info("migrations applied", zap.String("driver", cfg.DBDriver))
	}

	store, err := storage.Open(ctx, storage.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()
	log.Info("storage ready", zap.String("driver", cfg.DBDriver))

	if pool, ok := store.(*storage.PostgresPoolStorage); ok {
		go publishPoolMetrics(ctx, pool)
	}

	client := gateway.NewClient(gateway.Config{
		CountriesURL: cfg.CountriesURL,
		RatesURL:     cfg.RatesURL,
		Timeout:      cfg.FetchTimeout,
	}, log)

	reporter := report.NewReporter(store, report.NewImageRenderer(cfg.CacheDir), log)

	svc := countries.NewService(
		store,
		client,
		countries.RandomFactorEstimator(cfg.GDPFactorMin, cfg.GDPFactorMax),
		log,
	).WithReporter(reporter)

	if alertCfg := alerting.ConfigFromEnv(); alertCfg.Enabled {
		svc = svc.WithAlerter(alerting.NewAlerter(alertCfg, log))
		log.Info("refresh failure alerting enabled", zap.String("type", alertCfg.WebhookType))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(svc, reporter, store, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func publishPoolMetrics(ctx context.Context, pool *storage.PostgresPoolStorage) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.PublishPoolMetrics()
		}
	}
}
