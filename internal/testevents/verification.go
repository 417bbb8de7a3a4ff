package testevents

import (
	"context"
	"fmt"

	"github.com/okian/offerlens/internal/adapters/repository"
	"github.com/okian/offerlens/pkg/logger"
)

const defaultPageSize = 100

type customersPage struct {
	Total     int                         `json:"total"`
	Customers []repository.CustomerRecord `json:"customers"`
}

// verifyResults walks every published customer and checks the attribution
// invariants on each record.
func verifyResults(ctx context.Context, config *Config, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results")

	pageSize := config.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	client := newHTTPClient(config.Timeout)

	for offset := 0; ; offset += pageSize {
		var page customersPage
		url := fmt.Sprintf("%s/customers?offset=%d&limit=%d", config.BaseURL, offset, pageSize)
		if err := client.GetJSON(ctx, url, &page); err != nil {
			return err
		}
		for i := range page.Customers {
			stats.CustomersVerified++
			if err := VerifyRecord(&page.Customers[i]); err != nil {
				stats.Violations++
				logger.Get().Warn(ctx, "invariant violated",
					logger.String("customer_id", page.Customers[i].Features.CustomerID),
					logger.Error(err))
			}
		}
		if len(page.Customers) < pageSize || offset+pageSize >= page.Total {
			break
		}
	}
	if stats.CustomersVerified == 0 {
		return fmt.Errorf("no customers to verify")
	}

	logger.Get().Info(ctx, "result verification completed",
		logger.Int("customers", stats.CustomersVerified),
		logger.Int("violations", stats.Violations))
	return nil
}

// VerifyRecord checks that a published record is internally consistent:
// counters match the row tables, every winner is a valid completion that
// happened inside its window, and every response ties back to a receipt.
func VerifyRecord(rec *repository.CustomerRecord) error {
	f := &rec.Features
	if f.Transactions != len(rec.Transactions) {
		return fmt.Errorf("transaction count %d, rows %d", f.Transactions, len(rec.Transactions))
	}
	if f.Received != len(rec.Receipts) {
		return fmt.Errorf("received count %d, rows %d", f.Received, len(rec.Receipts))
	}

	offerTx := 0
	for _, ta := range rec.Transactions {
		if ta.IsOffer != (ta.Winner != nil) {
			return fmt.Errorf("transaction at %d: is_offer disagrees with winner", ta.Transaction.Time)
		}
		if ta.Winner == nil {
			continue
		}
		offerTx++
		w := ta.Winner
		if !w.ValidView || !w.ValidCompletion {
			return fmt.Errorf("transaction at %d: winner %s is not a valid completion", ta.Transaction.Time, w.Received.OfferID)
		}
		if w.TransactionTime != ta.Transaction.Time {
			return fmt.Errorf("transaction at %d: winner completes at %d", ta.Transaction.Time, w.TransactionTime)
		}
		if elapsed := w.TransactionTime - w.Received.Time; elapsed < 0 || elapsed > w.Received.Offer.DurationHours {
			return fmt.Errorf("transaction at %d: outside window of %s", ta.Transaction.Time, w.Received.OfferID)
		}
	}
	if offerTx != f.OfferTransactions {
		return fmt.Errorf("offer transaction count %d, rows %d", f.OfferTransactions, offerTx)
	}

	responded := 0
	for _, rr := range rec.Receipts {
		if rr.IsResponse != (rr.Response != nil) {
			return fmt.Errorf("receipt of %s at %d: is_response disagrees with response", rr.Received.OfferID, rr.Received.Time)
		}
		if rr.IsResponse {
			responded++
		}
	}
	if responded > f.Received {
		return fmt.Errorf("%d responses exceed %d receipts", responded, f.Received)
	}
	return nil
}
