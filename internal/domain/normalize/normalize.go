// Package normalize splits the raw event log into typed received, viewed,
// completed and transaction tables.
package normalize

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/offerlens/internal/domain/dedupe"
	"github.com/okian/offerlens/internal/domain/model"
	"github.com/okian/offerlens/pkg/logger"
	"github.com/okian/offerlens/pkg/metrics"
)

// Report counts what the normalizer kept, dropped and excluded.
type Report struct {
	Input                        int                     `json:"input"`
	ByKind                       map[model.EventKind]int `json:"by_kind"`
	DroppedUnknownCustomer       int                     `json:"dropped_unknown_customer"`
	DroppedMissingOfferID        int                     `json:"dropped_missing_offer_id"`
	DuplicateCompletions         int                     `json:"duplicate_completions"`
	UnmatchedCompletions         int                     `json:"unmatched_completions"`
	UnknownOfferReceipts         int                     `json:"unknown_offer_receipts"`
	ExcludedReceivedCustomers    int                     `json:"excluded_received_customers"`
	ExcludedTransactionCustomers int                     `json:"excluded_transaction_customers"`
	Customers                    int                     `json:"customers"`
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithCustomers restricts the output to events of the given customers.
// Without it every customer in the log is considered.
func WithCustomers(customers []model.Customer) Option {
	return func(n *Normalizer) {
		n.customers = make(map[string]struct{}, len(customers))
		for _, c := range customers {
			n.customers[c.ID] = struct{}{}
		}
	}
}

// WithLogger sets a custom logger for the normalizer.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// Normalizer turns raw events into model.Tables.
type Normalizer struct {
	offers    map[string]model.Offer
	customers map[string]struct{}
	logger    logger.Logger
}

// New creates a Normalizer that denormalizes offer attributes from offers.
func New(offers []model.Offer, opts ...Option) *Normalizer {
	n := &Normalizer{
		offers: make(map[string]model.Offer, len(offers)),
	}
	for _, o := range offers {
		n.offers[o.ID] = o
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logger.Get().Named("normalize")
	}
	return n
}

// Normalize splits events into typed tables. Completed events are
// deduplicated on full-row equality and joined to the transaction sharing
// their customer and time. Received and transaction tables are then limited
// to customers present in both. Offer events without an offer id are
// dropped; malformed events abort with an error.
func (n *Normalizer) Normalize(ctx context.Context, events []model.RawEvent) (model.Tables, Report, error) {
	start := time.Now()
	rep := Report{Input: len(events), ByKind: make(map[model.EventKind]int)}
	seen := dedupe.NewInMemoryDeduper()

	var (
		t         model.Tables
		completed []model.CompletedEvent
	)
	for i := range events {
		e := &events[i]
		if n.customers != nil {
			if _, ok := n.customers[e.Person]; !ok {
				rep.DroppedUnknownCustomer++
				metrics.RecordEventDropped("unknown_customer")
				continue
			}
		}
		if e.Person == "" {
			return model.Tables{}, rep, reject(i, e, fmt.Errorf("%w: missing person", ErrMalformedEvent))
		}
		if e.Time < 0 {
			return model.Tables{}, rep, reject(i, e, fmt.Errorf("%w: negative time %d", ErrMalformedEvent, e.Time))
		}

		switch e.Event {
		case model.EventOfferReceived:
			id, ok, err := ExtractOfferID(e.Value)
			if err != nil {
				return model.Tables{}, rep, reject(i, e, err)
			}
			if !ok {
				rep.DroppedMissingOfferID++
				metrics.RecordEventDropped("missing_offer_id")
				continue
			}
			offer, known := n.offers[id]
			if !known {
				offer = model.Offer{ID: id}
				rep.UnknownOfferReceipts++
				metrics.RecordUnknownOfferReceipt()
			}
			t.Received = append(t.Received, model.ReceivedEvent{CustomerID: e.Person, Time: e.Time, OfferID: id, Offer: offer})

		case model.EventOfferViewed:
			id, ok, err := ExtractOfferID(e.Value)
			if err != nil {
				return model.Tables{}, rep, reject(i, e, err)
			}
			if !ok {
				rep.DroppedMissingOfferID++
				metrics.RecordEventDropped("missing_offer_id")
				continue
			}
			t.Viewed = append(t.Viewed, model.ViewedEvent{CustomerID: e.Person, Time: e.Time, OfferID: id})

		case model.EventOfferCompleted:
			id, ok, err := ExtractOfferID(e.Value)
			if err != nil {
				return model.Tables{}, rep, reject(i, e, err)
			}
			if !ok {
				rep.DroppedMissingOfferID++
				metrics.RecordEventDropped("missing_offer_id")
				continue
			}
			if seen.SeenAndRecord(ctx, dedupe.RowKey(e.Person, strconv.Itoa(e.Time), id)) {
				rep.DuplicateCompletions++
				metrics.RecordCompletionDuplicate()
				continue
			}
			completed = append(completed, model.CompletedEvent{CustomerID: e.Person, Time: e.Time, OfferID: id})

		case model.EventTransaction:
			amount, ok, err := ExtractAmount(e.Value)
			if err != nil {
				return model.Tables{}, rep, reject(i, e, err)
			}
			if !ok {
				return model.Tables{}, rep, reject(i, e, fmt.Errorf("%w: transaction without amount", ErrMalformedEvent))
			}
			t.Transactions = append(t.Transactions, model.TransactionEvent{CustomerID: e.Person, Time: e.Time, Amount: amount})

		default:
			return model.Tables{}, rep, reject(i, e, fmt.Errorf("%w: %q", ErrUnknownEventKind, e.Event))
		}
		rep.ByKind[e.Event]++
		metrics.RecordEventNormalized(string(e.Event))
	}

	t.Completed = joinCompletions(completed, t.Transactions, &rep)
	intersectCustomers(&t, &rep)
	assignSeq(&t)

	metrics.RecordStageLatency("normalize", float64(time.Since(start).Milliseconds()))
	n.logger.Info(ctx, "events normalized",
		logger.Int("input", rep.Input),
		logger.Int("received", len(t.Received)),
		logger.Int("viewed", len(t.Viewed)),
		logger.Int("completed", len(t.Completed)),
		logger.Int("transactions", len(t.Transactions)),
		logger.Int("customers", rep.Customers),
	)
	if rep.DuplicateCompletions > 0 || rep.UnknownOfferReceipts > 0 || rep.DroppedUnknownCustomer > 0 || rep.DroppedMissingOfferID > 0 {
		n.logger.Warn(ctx, "data-quality exclusions applied",
			logger.Int("duplicate_completions", rep.DuplicateCompletions),
			logger.Int("dropped_missing_offer_id", rep.DroppedMissingOfferID),
			logger.Int("unknown_offer_receipts", rep.UnknownOfferReceipts),
			logger.Int("dropped_unknown_customer", rep.DroppedUnknownCustomer),
		)
	}
	return t, rep, nil
}

func reject(i int, e *model.RawEvent, err error) error {
	metrics.RecordEventRejected()
	return fmt.Errorf("event %d (person %q, %s at t=%d): %w", i, e.Person, e.Event, e.Time, err)
}

type customerTime struct {
	customerID string
	time       int
}

// joinCompletions left-joins completed events to transactions on
// (customer, time). A completion matching several transactions yields one
// row per transaction.
func joinCompletions(completed []model.CompletedEvent, txs []model.TransactionEvent, rep *Report) []model.CompletedEvent {
	byKey := make(map[customerTime][]int, len(txs))
	for i, tx := range txs {
		k := customerTime{tx.CustomerID, tx.Time}
		byKey[k] = append(byKey[k], i)
	}
	out := make([]model.CompletedEvent, 0, len(completed))
	for _, c := range completed {
		matches := byKey[customerTime{c.CustomerID, c.Time}]
		if len(matches) == 0 {
			rep.UnmatchedCompletions++
			out = append(out, c)
			continue
		}
		for _, ti := range matches {
			row := c
			row.Matched = true
			row.TransactionTime = txs[ti].Time
			row.Amount = txs[ti].Amount
			out = append(out, row)
		}
	}
	return out
}

// intersectCustomers keeps only receipts and transactions of customers that
// appear in both tables.
func intersectCustomers(t *model.Tables, rep *Report) {
	withTx := make(map[string]struct{})
	for _, tx := range t.Transactions {
		withTx[tx.CustomerID] = struct{}{}
	}
	withReceipt := make(map[string]struct{})
	for _, r := range t.Received {
		withReceipt[r.CustomerID] = struct{}{}
	}

	received := t.Received[:0]
	for _, r := range t.Received {
		if _, ok := withTx[r.CustomerID]; ok {
			received = append(received, r)
		}
	}
	txs := t.Transactions[:0]
	for _, tx := range t.Transactions {
		if _, ok := withReceipt[tx.CustomerID]; ok {
			txs = append(txs, tx)
		}
	}
	t.Received, t.Transactions = received, txs

	for cid := range withReceipt {
		if _, ok := withTx[cid]; ok {
			rep.Customers++
		} else {
			rep.ExcludedReceivedCustomers++
		}
	}
	rep.ExcludedTransactionCustomers = len(withTx) - rep.Customers
	metrics.RecordCustomersExcluded("received", rep.ExcludedReceivedCustomers)
	metrics.RecordCustomersExcluded("transaction", rep.ExcludedTransactionCustomers)
}

func assignSeq(t *model.Tables) {
	for i := range t.Received {
		t.Received[i].Seq = i
	}
	for i := range t.Viewed {
		t.Viewed[i].Seq = i
	}
	for i := range t.Completed {
		t.Completed[i].Seq = i
	}
	for i := range t.Transactions {
		t.Transactions[i].Seq = i
	}
}
