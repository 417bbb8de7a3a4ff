package model

import "sort"

// ReceivedView links a receipt to its earliest valid view.
type ReceivedView struct {
	Received   ReceivedEvent `json:"received"`
	ViewedTime int           `json:"viewed_time"`
	ValidView  bool          `json:"is_valid_viewed"`
}

// Attribution links a receipt and its view to the earliest transaction that
// validly completes the offer.
type Attribution struct {
	ReceivedView
	TransactionTime int     `json:"transaction_time"`
	Amount          float64 `json:"amount"`
	ValidCompletion bool    `json:"is_valid_comp"`
}

// TransactionAttribution is one transaction with the offer credited for it.
// Winner is nil when no offer qualifies.
type TransactionAttribution struct {
	Transaction TransactionEvent `json:"transaction"`
	IsOffer     bool             `json:"is_offer"`
	Candidates  int              `json:"candidates"`
	Winner      *Attribution     `json:"winner,omitempty"`
}

// Response is a receipt that won at least one transaction.
type Response struct {
	CustomerID      string  `json:"customer_id"`
	OfferID         string  `json:"offer_id"`
	ReceivedTime    int     `json:"received_time"`
	ViewedTime      int     `json:"viewed_time"`
	TransactionTime int     `json:"transaction_time"`
	Amount          float64 `json:"amount"`
	TransactionSeq  int     `json:"-"`
}

// ReceivedResponse is the per-receipt outcome: every receipt, with the
// response it produced if any.
type ReceivedResponse struct {
	Received   ReceivedEvent `json:"received"`
	IsResponse bool          `json:"is_response"`
	Response   *Response     `json:"response,omitempty"`
}

// AttributionResult holds every table produced by the attribution engine.
type AttributionResult struct {
	ReceivedViews        []ReceivedView
	Attributions         []Attribution
	TransactionResponses []TransactionAttribution
	Responses            []Response
	ReceivedResponses    []ReceivedResponse
}

func sortPartitions(parts []Partition) {
	sort.Slice(parts, func(i, j int) bool { return parts[i].CustomerID < parts[j].CustomerID })
}
