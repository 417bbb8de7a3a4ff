// Package aggregate rolls attribution output up to one row per customer.
package aggregate

import (
	"sort"

	"github.com/okian/offerlens/internal/domain/model"
)

type receivedGroup struct {
	count      int
	byType     map[model.OfferType]int
	social     int
	difficulty model.Stat
}

type respondedGroup struct {
	receivedGroup
	amount model.Stat
}

type transactionGroup struct {
	amount model.Stat
	count  int
	offers int
}

func (g *receivedGroup) add(o model.Offer) {
	g.count++
	if g.byType == nil {
		g.byType = make(map[model.OfferType]int, len(model.OfferTypes))
	}
	if o.Type.Known() {
		g.byType[o.Type]++
		g.difficulty.Add(o.Difficulty)
	}
	if o.Channels.Social {
		g.social++
	}
}

// reduceReceived reduces every receipt per customer.
func reduceReceived(rows []model.ReceivedResponse) map[string]*receivedGroup {
	out := make(map[string]*receivedGroup)
	for _, r := range rows {
		g := out[r.Received.CustomerID]
		if g == nil {
			g = &receivedGroup{}
			out[r.Received.CustomerID] = g
		}
		g.add(r.Received.Offer)
	}
	return out
}

// reduceResponded reduces the receipts that produced a response.
func reduceResponded(rows []model.ReceivedResponse) map[string]*respondedGroup {
	out := make(map[string]*respondedGroup)
	for _, r := range rows {
		if !r.IsResponse || r.Response == nil {
			continue
		}
		g := out[r.Received.CustomerID]
		if g == nil {
			g = &respondedGroup{}
			out[r.Received.CustomerID] = g
		}
		g.add(r.Received.Offer)
		g.amount.Add(r.Response.Amount)
	}
	return out
}

// reduceTransactions reduces every transaction, attributed or not.
func reduceTransactions(rows []model.TransactionAttribution) map[string]*transactionGroup {
	out := make(map[string]*transactionGroup)
	for _, r := range rows {
		g := out[r.Transaction.CustomerID]
		if g == nil {
			g = &transactionGroup{}
			out[r.Transaction.CustomerID] = g
		}
		g.amount.Add(r.Transaction.Amount)
		g.count++
		if r.IsOffer {
			g.offers++
		}
	}
	return out
}

// Aggregate combines the three reductions by customer id. There is one row
// per transacting customer, sorted by id. Missing receipt groups leave
// counters at zero and statistics empty. Profiles are attached when present
// in customers.
func Aggregate(res model.AttributionResult, customers map[string]model.Customer) []model.CustomerStats {
	rec := reduceReceived(res.ReceivedResponses)
	resp := reduceResponded(res.ReceivedResponses)
	txs := reduceTransactions(res.TransactionResponses)

	ids := make([]string, 0, len(txs))
	for cid := range txs {
		ids = append(ids, cid)
	}
	sort.Strings(ids)

	out := make([]model.CustomerStats, 0, len(ids))
	for _, cid := range ids {
		s := model.CustomerStats{
			CustomerID:      cid,
			ReceivedByType:  make(map[model.OfferType]int, len(model.OfferTypes)),
			RespondedByType: make(map[model.OfferType]int, len(model.OfferTypes)),
		}
		if c, ok := customers[cid]; ok {
			s.Customer = &c
		}
		if g := rec[cid]; g != nil {
			s.Received = g.count
			s.ReceivedSocial = g.social
			s.ReceivedDifficulty = g.difficulty
			for t, n := range g.byType {
				s.ReceivedByType[t] = n
			}
		}
		if g := resp[cid]; g != nil {
			s.Responded = g.count
			s.RespondedSocial = g.social
			s.RespondedDifficulty = g.difficulty
			s.RespondedAmount = g.amount
			for t, n := range g.byType {
				s.RespondedByType[t] = n
			}
		}
		g := txs[cid]
		s.TransactionAmount = g.amount
		s.Transactions = g.count
		s.OfferTransactions = g.offers
		out = append(out, s)
	}
	return out
}
