// Package repository holds the published results of the last pipeline run.
package repository

import (
	"context"

	"github.com/okian/offerlens/internal/domain/model"
)

// CustomerRecord is everything the last run produced for one customer.
type CustomerRecord struct {
	Features     model.CustomerFeatures         `json:"features"`
	Receipts     []model.ReceivedResponse       `json:"receipts"`
	Transactions []model.TransactionAttribution `json:"transactions"`
}

// Store provides read access to the last published run.
type Store interface {
	// Publish atomically replaces the stored run.
	Publish(ctx context.Context, runID string, res model.AttributionResult, features []model.CustomerFeatures) error

	// Customer returns the record of one customer.
	// Returns ErrNotFound if the customer is unknown.
	Customer(ctx context.Context, customerID string) (CustomerRecord, error)

	// Customers returns up to limit records ordered by customer id.
	Customers(ctx context.Context, offset, limit int) ([]CustomerRecord, error)

	// Features returns the feature table of the last run.
	Features(ctx context.Context) []model.CustomerFeatures

	// Count returns the number of customers in the last run.
	Count(ctx context.Context) int

	// RunID returns the id of the published run, empty before the first publish.
	RunID(ctx context.Context) string
}
