// Package config defines process configuration and its loading.
//
// Conventions:
//   - New() builds a Config with defaults.
//   - Load layers a YAML file and environment variables over the defaults.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/offerlens/internal/domain/attribution"
	"github.com/okian/offerlens/internal/domain/cohort"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Serve keeps the results API running after the pipeline finishes.
	Serve bool `koanf:"serve"`
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// MaxCustomerLimit caps GET /customers?limit.
	MaxCustomerLimit int `koanf:"max_customer_limit"`

	// PortfolioPath, ProfilePath and TranscriptPath locate the input files.
	PortfolioPath  string `koanf:"portfolio_path"`
	ProfilePath    string `koanf:"profile_path"`
	TranscriptPath string `koanf:"transcript_path"`
	// OutputDir receives the exported tables; empty disables export.
	OutputDir string `koanf:"output_dir"`

	// WorkerCount sets the number of attribution workers.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds the in-memory partition queue.
	QueueSize int `koanf:"queue_size"`

	// MaxAge drops profiles older than this; 118 marks missing demographics.
	MaxAge int `koanf:"max_age"`
	// TieBreak selects the equal-reward collision policy.
	TieBreak string `koanf:"tie_break"`

	// CohortKeys, CohortMetric, CohortCondition and CohortTopN define the
	// cohort report produced after each run.
	CohortKeys      []string `koanf:"cohort_keys"`
	CohortMetric    string   `koanf:"cohort_metric"`
	CohortCondition string   `koanf:"cohort_condition"`
	CohortTopN      int      `koanf:"cohort_top_n"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		MaxCustomerLimit: 100,
		PortfolioPath:    "data/portfolio.json",
		ProfilePath:      "data/profile.json",
		TranscriptPath:   "data/transcript.json",
		OutputDir:        "out",
		WorkerCount:      runtime.NumCPU(),
		QueueSize:        1024,
		MaxAge:           100,
		TieBreak:         string(attribution.TieBreakInputOrder),
		CohortKeys:       []string{cohort.KeyGender, cohort.KeyAgeRange, cohort.KeyIncomeRange, cohort.KeyMemberYear},
		CohortMetric:     "responded_bogo",
		CohortCondition:  "==1",
		CohortTopN:       cohort.DefaultTop,
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.PortfolioPath) == "" || strings.TrimSpace(c.ProfilePath) == "" || strings.TrimSpace(c.TranscriptPath) == "" {
		return fmt.Errorf("%w: portfolio_path, profile_path and transcript_path must be set", ErrInvalidConfig)
	}
	if c.Serve && c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty when serve is enabled", ErrInvalidConfig)
	}
	if c.MaxAge < 18 || c.MaxAge > 100 {
		return fmt.Errorf("%w: max_age %d outside 18..100", ErrInvalidConfig, c.MaxAge)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.MaxCustomerLimit < 1 {
		return fmt.Errorf("%w: max_customer_limit must be positive", ErrInvalidConfig)
	}
	if _, err := attribution.ParseTieBreak(c.TieBreak); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, _, err := c.CohortQuery().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// CohortQuery returns the configured cohort report query.
func (c *Config) CohortQuery() cohort.Query {
	return cohort.Query{
		Keys:      c.CohortKeys,
		Metric:    c.CohortMetric,
		Condition: c.CohortCondition,
		Top:       c.CohortTopN,
	}
}
