package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/offerlens/internal/testevents"
)

// Default configuration constants.
const (
	defaultCustomers   = 2000
	defaultSeed        = 1
	defaultPageSize    = 100
	defaultTimeout     = 30 * time.Second
	defaultToolTimeout = 10 * time.Minute
)

func main() {
	var (
		outDir    = flag.String("out", "data", "Directory for the generated input files")
		customers = flag.Int("customers", defaultCustomers, "Number of customers to simulate")
		seed      = flag.Uint64("seed", defaultSeed, "Generator seed")
		baseURL   = flag.String("url", "", "Base URL of a running API to verify")
		pageSize  = flag.Int("page", defaultPageSize, "Page size used when walking /customers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile   = flag.String("log", "", "Also write logs to this file")
		verbose   = flag.Bool("verbose", false, "Enable debug logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	if err := testevents.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultToolTimeout)
	defer cancel()

	config := &testevents.Config{
		OutDir:    *outDir,
		Customers: *customers,
		Seed:      *seed,
		BaseURL:   *baseURL,
		PageSize:  *pageSize,
		Timeout:   *timeout,
		LogFile:   *logFile,
		Verbose:   *verbose,
	}

	if err := testevents.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Dataset tool failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called explicitly above
	}
}
