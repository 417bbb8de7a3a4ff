// Package attribution links offer receipts to views and transactions and
// credits each transaction to at most one offer.
package attribution

import (
	"context"
	"sort"
	"time"

	"github.com/okian/offerlens/internal/domain/model"
	"github.com/okian/offerlens/internal/domain/validity"
	"github.com/okian/offerlens/pkg/logger"
	"github.com/okian/offerlens/pkg/metrics"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTieBreak sets the policy for equal-reward collisions.
func WithTieBreak(tb TieBreak) Option {
	return func(e *Engine) {
		if tb != "" {
			e.tieBreak = tb
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine runs the attribution algorithm. It holds no per-run state and is
// safe for concurrent use.
type Engine struct {
	tieBreak TieBreak
	logger   logger.Logger
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{tieBreak: TieBreakInputOrder}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("attribution")
	}
	return e
}

// TieBreak returns the configured tie-break policy.
func (e *Engine) TieBreak() TieBreak { return e.tieBreak }

type offerKey struct {
	customerID string
	offerID    string
}

type receiptKey struct {
	customerID string
	offerID    string
	time       int
}

type txKey struct {
	customerID string
	time       int
	amount     float64
}

// Attribute runs both offer families over t and resolves cross-offer
// collisions. Tables may hold any number of customers; rows of different
// customers never interact.
func (e *Engine) Attribute(ctx context.Context, t model.Tables) model.AttributionResult {
	start := time.Now()
	var res model.AttributionResult

	views := make(map[offerKey][]model.ViewedEvent)
	for _, v := range t.Viewed {
		k := offerKey{v.CustomerID, v.OfferID}
		views[k] = append(views[k], v)
	}
	completions := make(map[offerKey][]model.CompletedEvent)
	for _, c := range t.Completed {
		if !c.Matched {
			continue
		}
		k := offerKey{c.CustomerID, c.OfferID}
		completions[k] = append(completions[k], c)
	}
	txsByCustomer := make(map[string][]model.TransactionEvent)
	for _, tx := range t.Transactions {
		txsByCustomer[tx.CustomerID] = append(txsByCustomer[tx.CustomerID], tx)
	}

	progress, informational := linkViews(t.Received, views)
	res.ReceivedViews = append(progress, informational...)

	for _, rv := range progress {
		if a, ok := completeProgress(rv, completions[offerKey{rv.Received.CustomerID, rv.Received.OfferID}]); ok {
			res.Attributions = append(res.Attributions, a)
		}
	}
	for _, rv := range informational {
		if a, ok := completeInformational(rv, txsByCustomer[rv.Received.CustomerID]); ok {
			res.Attributions = append(res.Attributions, a)
		}
	}
	metrics.RecordCandidateAttributions(len(res.Attributions))

	res.TransactionResponses = e.resolveCollisions(t.Transactions, res.Attributions)
	res.Responses = responses(res.TransactionResponses)
	res.ReceivedResponses = receivedResponses(t.Received, res.Responses)

	var responded int
	for _, rr := range res.ReceivedResponses {
		if rr.IsResponse {
			responded++
		}
	}
	var attributed int
	for _, ta := range res.TransactionResponses {
		if ta.IsOffer {
			attributed++
		}
	}
	metrics.RecordTransactionsAttributed(attributed)
	metrics.RecordReceiptsResponded(responded)
	metrics.RecordStageLatency("attribute", float64(time.Since(start).Milliseconds()))

	e.logger.Debug(ctx, "attribution finished",
		logger.Int("receipts", len(t.Received)),
		logger.Int("candidates", len(res.Attributions)),
		logger.Int("transactions_attributed", attributed),
		logger.Int("receipts_responded", responded),
	)
	return res
}

// linkViews pairs every receipt with its earliest valid view, split by offer
// family. Receipts without a valid view and receipts of unknown offers are
// left out. A repeated (customer, offer, time) receipt is linked once.
func linkViews(received []model.ReceivedEvent, views map[offerKey][]model.ViewedEvent) (progress, informational []model.ReceivedView) {
	linked := make(map[receiptKey]struct{}, len(received))
	for _, r := range received {
		typ := r.Offer.Type
		if !typ.Known() {
			continue
		}
		rk := receiptKey{r.CustomerID, r.OfferID, r.Time}
		if _, dup := linked[rk]; dup {
			continue
		}
		linked[rk] = struct{}{}

		best, found := 0, false
		for _, v := range views[offerKey{r.CustomerID, r.OfferID}] {
			if !validity.IsValidView(r.Time, v.Time, r.Offer.DurationHours) {
				continue
			}
			if !found || v.Time < best {
				best, found = v.Time, true
			}
		}
		if !found {
			continue
		}

		rv := model.ReceivedView{Received: r, ViewedTime: best, ValidView: true}
		if typ.ProgressBased() {
			progress = append(progress, rv)
		} else {
			informational = append(informational, rv)
		}
	}
	return progress, informational
}

// completeProgress picks the earliest valid completion among the matched
// completed events of the same customer and offer.
func completeProgress(rv model.ReceivedView, completed []model.CompletedEvent) (model.Attribution, bool) {
	r := rv.Received
	var (
		best  model.Attribution
		found bool
	)
	for _, c := range completed {
		if !validity.IsValidCompletion(r.Time, rv.ViewedTime, c.TransactionTime, c.Amount, r.Offer.Difficulty, r.Offer.DurationHours) {
			continue
		}
		if !found || c.TransactionTime < best.TransactionTime {
			best = model.Attribution{ReceivedView: rv, TransactionTime: c.TransactionTime, Amount: c.Amount, ValidCompletion: true}
			found = true
		}
	}
	return best, found
}

// completeInformational picks the earliest valid transaction of the
// customer. Informational offers emit no completion event.
func completeInformational(rv model.ReceivedView, txs []model.TransactionEvent) (model.Attribution, bool) {
	r := rv.Received
	var (
		best  model.Attribution
		found bool
	)
	for _, tx := range txs {
		if !validity.IsValidCompletion(r.Time, rv.ViewedTime, tx.Time, tx.Amount, r.Offer.Difficulty, r.Offer.DurationHours) {
			continue
		}
		if !found || tx.Time < best.TransactionTime {
			best = model.Attribution{ReceivedView: rv, TransactionTime: tx.Time, Amount: tx.Amount, ValidCompletion: true}
			found = true
		}
	}
	return best, found
}

// resolveCollisions emits one row per transaction with the winning candidate
// among attributions sharing its customer, time and amount.
func (e *Engine) resolveCollisions(txs []model.TransactionEvent, attributions []model.Attribution) []model.TransactionAttribution {
	byTx := make(map[txKey][]int, len(attributions))
	for i, a := range attributions {
		k := txKey{a.Received.CustomerID, a.TransactionTime, a.Amount}
		byTx[k] = append(byTx[k], i)
	}

	out := make([]model.TransactionAttribution, 0, len(txs))
	for _, tx := range txs {
		row := model.TransactionAttribution{Transaction: tx}
		candidates := byTx[txKey{tx.CustomerID, tx.Time, tx.Amount}]
		row.Candidates = len(candidates)
		if len(candidates) > 0 {
			win := &attributions[candidates[0]]
			for _, ci := range candidates[1:] {
				if e.tieBreak.beats(&attributions[ci], win) {
					win = &attributions[ci]
				}
			}
			w := *win
			row.IsOffer = true
			row.Winner = &w
			if len(candidates) > 1 {
				metrics.RecordCollisionResolved()
			}
		}
		out = append(out, row)
	}
	return out
}

// responses lists each winning receipt once, in order of its first won
// transaction.
func responses(rows []model.TransactionAttribution) []model.Response {
	seen := make(map[receiptKey]struct{})
	var out []model.Response
	for _, row := range rows {
		if row.Winner == nil {
			continue
		}
		w := row.Winner
		k := receiptKey{w.Received.CustomerID, w.Received.OfferID, w.Received.Time}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, model.Response{
			CustomerID:      w.Received.CustomerID,
			OfferID:         w.Received.OfferID,
			ReceivedTime:    w.Received.Time,
			ViewedTime:      w.ViewedTime,
			TransactionTime: w.TransactionTime,
			Amount:          w.Amount,
			TransactionSeq:  row.Transaction.Seq,
		})
	}
	return out
}

// receivedResponses left-joins every receipt to the response table.
func receivedResponses(received []model.ReceivedEvent, resp []model.Response) []model.ReceivedResponse {
	byKey := make(map[receiptKey]int, len(resp))
	for i, r := range resp {
		byKey[receiptKey{r.CustomerID, r.OfferID, r.ReceivedTime}] = i
	}
	out := make([]model.ReceivedResponse, 0, len(received))
	for _, r := range received {
		row := model.ReceivedResponse{Received: r}
		if i, ok := byKey[receiptKey{r.CustomerID, r.OfferID, r.Time}]; ok {
			match := resp[i]
			row.IsResponse = true
			row.Response = &match
		}
		out = append(out, row)
	}
	return out
}

func familyRank(t model.OfferType) int {
	if t.ProgressBased() {
		return 0
	}
	return 1
}

// Merge combines per-partition results into the result a single Attribute
// call over the union of the partitions would produce. Row order depends only
// on input sequence numbers, never on the order of parts.
func Merge(parts []model.AttributionResult) model.AttributionResult {
	var out model.AttributionResult
	for _, p := range parts {
		out.ReceivedViews = append(out.ReceivedViews, p.ReceivedViews...)
		out.Attributions = append(out.Attributions, p.Attributions...)
		out.TransactionResponses = append(out.TransactionResponses, p.TransactionResponses...)
		out.Responses = append(out.Responses, p.Responses...)
		out.ReceivedResponses = append(out.ReceivedResponses, p.ReceivedResponses...)
	}

	sort.SliceStable(out.ReceivedViews, func(i, j int) bool {
		a, b := out.ReceivedViews[i].Received, out.ReceivedViews[j].Received
		if ra, rb := familyRank(a.Offer.Type), familyRank(b.Offer.Type); ra != rb {
			return ra < rb
		}
		return a.Seq < b.Seq
	})
	sort.SliceStable(out.Attributions, func(i, j int) bool {
		a, b := out.Attributions[i].Received, out.Attributions[j].Received
		if ra, rb := familyRank(a.Offer.Type), familyRank(b.Offer.Type); ra != rb {
			return ra < rb
		}
		return a.Seq < b.Seq
	})
	sort.SliceStable(out.TransactionResponses, func(i, j int) bool {
		return out.TransactionResponses[i].Transaction.Seq < out.TransactionResponses[j].Transaction.Seq
	})
	sort.SliceStable(out.Responses, func(i, j int) bool {
		return out.Responses[i].TransactionSeq < out.Responses[j].TransactionSeq
	})
	sort.SliceStable(out.ReceivedResponses, func(i, j int) bool {
		return out.ReceivedResponses[i].Received.Seq < out.ReceivedResponses[j].Received.Seq
	})
	return out
}
