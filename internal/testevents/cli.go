package testevents

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/offerlens/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// SetupLogging initializes the logger writing to stdout and, when logFile is
// set, to that file as well.
func SetupLogging(logFile string, verbose bool) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission) //nolint:gosec // operator supplied path
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the dataset tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Offerlens Dataset Tool
======================

Generates a synthetic offer portfolio, customer profiles and event transcript,
and optionally verifies the results served by a running offerlens API.

Usage:
  go run ./cmd/test-events [options]

Options:
  -out string
        Directory for portfolio.json, profile.json and transcript.json (default "data")
  -customers int
        Number of customers to simulate (default 2000)
  -seed uint
        Generator seed; the same seed yields the same dataset (default 1)
  -url string
        Base URL of a running API to verify; empty skips verification
  -page int
        Page size used when walking /customers (default 100)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Also write logs to this file
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Generate a dataset and run the pipeline over it
  go run ./cmd/test-events -out data -customers 5000
  OFFERLENS_SERVE=true go run ./cmd/offerlens

  # Verify the served results
  go run ./cmd/test-events -out data -customers 5000 -url http://localhost:9080
`)
}
