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

	"github.com/okian/offerlens/internal/adapters/export"
	"github.com/okian/offerlens/internal/adapters/http/api"
	app "github.com/okian/offerlens/internal/app"
	"github.com/okian/offerlens/internal/config"
	"github.com/okian/offerlens/internal/domain/attribution"
	"github.com/okian/offerlens/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		_, _ = os.Stderr.WriteString("offerlens: " + err.Error() + "\n")
		stop()
		os.Exit(1) //nolint:gocritic // stop called explicitly above
	}
}

func run(ctx context.Context) error {
	// A missing .env is fine; the environment and defaults still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}

	sum, err := svc.RunFiles(ctx, app.Paths{
		Portfolio:  cfg.PortfolioPath,
		Profile:    cfg.ProfilePath,
		Transcript: cfg.TranscriptPath,
	})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}
	log.Info(ctx, "run summary",
		logger.String("run_id", sum.RunID),
		logger.Int("customers", sum.Customers),
		logger.Int("receipts", sum.Receipts),
		logger.Int("receipts_responded", sum.ReceiptsResponded),
		logger.Int("transactions", sum.Transactions),
		logger.Int("transactions_attributed", sum.TransactionsAttributed),
		logger.String("output_dir", cfg.OutputDir),
	)

	if !cfg.Serve {
		return nil
	}
	return serve(ctx, cfg, svc, log)
}

// newService builds the pipeline service from configuration.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	tb, err := attribution.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, err
	}
	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithMaxAge(cfg.MaxAge),
		app.WithMaxCustomerLimit(cfg.MaxCustomerLimit),
		app.WithTieBreak(tb),
		app.WithCohortQuery(cfg.CohortQuery()),
	}
	if cfg.OutputDir != "" {
		opts = append(opts, app.WithExporter(export.New(cfg.OutputDir, export.WithLogger(log.Named("export")))))
	}
	return app.New(opts...), nil
}

// newHTTPServer wires the results API onto an http.Server.
func newHTTPServer(cfg *config.Config, svc *app.Service) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(svc, svc).Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// serve runs the results API until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) error {
	srv := newHTTPServer(cfg, svc)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}

	log.Info(ctx, "server stopped")
	return nil
}
