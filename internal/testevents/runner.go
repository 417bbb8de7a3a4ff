package testevents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/offerlens/internal/domain/model"
	"github.com/okian/offerlens/pkg/logger"
)

// File names written by WriteDataset.
const (
	PortfolioFile  = "portfolio.json"
	ProfileFile    = "profile.json"
	TranscriptFile = "transcript.json"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run generates a dataset, writes it and, when a base URL is configured,
// verifies the results served by a running API.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting dataset tool",
		logger.String("outDir", config.OutDir),
		logger.Int("customers", config.Customers),
		logger.String("baseURL", config.BaseURL),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("verbose", config.Verbose))

	// Step 1: Generate
	ds, err := Generate(ctx, config)
	if err != nil {
		return fmt.Errorf("dataset generation failed: %w", err)
	}
	stats.Offers = len(ds.Offers)
	stats.Customers = len(ds.Customers)
	stats.Events = len(ds.Events)
	stats.EventsByKind = countKinds(ds.Events)

	// Step 2: Write
	if err := WriteDataset(ctx, config.OutDir, ds); err != nil {
		return fmt.Errorf("dataset write failed: %w", err)
	}

	// Step 3: Verify the served results
	if config.BaseURL != "" {
		if err := checkServiceHealth(ctx, config); err != nil {
			return fmt.Errorf("service health check failed: %w", err)
		}
		if err := verifyResults(ctx, config, stats); err != nil {
			return fmt.Errorf("result verification failed: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if stats.Violations > 0 {
		return fmt.Errorf("%d customers violate attribution invariants", stats.Violations)
	}
	logger.Get().Info(ctx, "dataset tool completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	var health struct {
		Status string `json:"status"`
	}
	if err := client.GetJSON(ctx, config.BaseURL+"/healthz", &health); err != nil {
		return err
	}
	if health.Status != "ok" {
		return fmt.Errorf("service reports status %q", health.Status)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// WriteDataset writes ds as three JSON lines files under dir.
func WriteDataset(ctx context.Context, dir string, ds Dataset) error {
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := writeLines(filepath.Join(dir, PortfolioFile), ds.Offers); err != nil {
		return err
	}
	if err := writeLines(filepath.Join(dir, ProfileFile), ds.Customers); err != nil {
		return err
	}
	if err := writeLines(filepath.Join(dir, TranscriptFile), ds.Events); err != nil {
		return err
	}
	logger.Get().Info(ctx, "dataset saved", logger.String("dir", dir))
	return nil
}

func writeLines[T any](path string, rows []T) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission) //nolint:gosec // path under the configured output dir
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	enc := json.NewEncoder(file)
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i, path, err)
		}
	}
	return nil
}

func countKinds(events []model.RawEvent) map[model.EventKind]int {
	out := make(map[model.EventKind]int, 4)
	for _, e := range events {
		out[e.Event]++
	}
	return out
}

// displayFinalStats logs the final tool statistics.
func displayFinalStats(stats *Stats) {
	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("offers", stats.Offers),
		logger.Int("customers", stats.Customers),
		logger.Int("events", stats.Events),
		logger.Int("received", stats.EventsByKind[model.EventOfferReceived]),
		logger.Int("viewed", stats.EventsByKind[model.EventOfferViewed]),
		logger.Int("completed", stats.EventsByKind[model.EventOfferCompleted]),
		logger.Int("transactions", stats.EventsByKind[model.EventTransaction]),
		logger.Int("customersVerified", stats.CustomersVerified),
		logger.Int("violations", stats.Violations),
		logger.String("duration", stats.Duration.String()))
}
