package testevents

import (
	"time"

	"github.com/okian/offerlens/internal/domain/model"
)

// Config holds configuration for the dataset tool.
type Config struct {
	OutDir    string        // Directory receiving portfolio, profile and transcript files
	Customers int           // Number of customers to simulate
	Seed      uint64        // Seed of the deterministic generator
	BaseURL   string        // Results API to verify; empty skips verification
	PageSize  int           // Page size used when walking /customers
	Timeout   time.Duration // HTTP request timeout
	LogFile   string        // Log file for tool output
	Verbose   bool          // Enable verbose logging
}

// Dataset is one generated set of input tables.
type Dataset struct {
	Offers    []model.RawOffer
	Customers []model.RawCustomer
	Events    []model.RawEvent
}

// Stats holds tool statistics.
type Stats struct {
	Offers            int
	Customers         int
	Events            int
	EventsByKind      map[model.EventKind]int
	CustomersVerified int
	Violations        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
