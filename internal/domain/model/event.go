package model

import "github.com/goccy/go-json"

// EventKind is the event column of the raw event log.
type EventKind string

// Event kinds present in the raw event log.
const (
	EventOfferReceived  EventKind = "offer received"
	EventOfferViewed    EventKind = "offer viewed"
	EventOfferCompleted EventKind = "offer completed"
	EventTransaction    EventKind = "transaction"
)

// RawEvent is a heterogeneous event log row. Time is in hours since the start
// of observation.
type RawEvent struct {
	Person string         `json:"person"`
	Event  EventKind      `json:"event"`
	Time   int            `json:"time"`
	Value  map[string]any `json:"value"`
}

// UnmarshalJSON accepts person_id or customer_id, event_kind, time_hours and
// payload_map as alternate keys.
func (e *RawEvent) UnmarshalJSON(b []byte) error {
	type plain RawEvent
	if err := json.Unmarshal(b, (*plain)(e)); err != nil {
		return err
	}
	var aux struct {
		PersonID   string         `json:"person_id"`
		CustomerID string         `json:"customer_id"`
		EventKind  EventKind      `json:"event_kind"`
		TimeHours  *int           `json:"time_hours"`
		PayloadMap map[string]any `json:"payload_map"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if e.Person == "" {
		e.Person = aux.PersonID
	}
	if e.Person == "" {
		e.Person = aux.CustomerID
	}
	if e.Event == "" {
		e.Event = aux.EventKind
	}
	if e.Time == 0 && aux.TimeHours != nil {
		e.Time = *aux.TimeHours
	}
	if e.Value == nil {
		e.Value = aux.PayloadMap
	}
	return nil
}

// ReceivedEvent is an offer sent to a customer with the offer attributes
// copied in. Seq is the row position in the normalized received table.
type ReceivedEvent struct {
	Seq        int    `json:"-"`
	CustomerID string `json:"customer_id"`
	Time       int    `json:"received_time"`
	OfferID    string `json:"offer_id"`
	Offer      Offer  `json:"offer"`
}

// ViewedEvent records a customer opening an offer.
type ViewedEvent struct {
	Seq        int    `json:"-"`
	CustomerID string `json:"customer_id"`
	Time       int    `json:"viewed_time"`
	OfferID    string `json:"offer_id"`
}

// CompletedEvent is an "offer completed" event joined to the transaction that
// shares its customer and time. Matched is false when no such transaction exists.
type CompletedEvent struct {
	Seq             int     `json:"-"`
	CustomerID      string  `json:"customer_id"`
	Time            int     `json:"completed_time"`
	OfferID         string  `json:"offer_id"`
	Matched         bool    `json:"matched"`
	TransactionTime int     `json:"transaction_time"`
	Amount          float64 `json:"amount"`
}

// TransactionEvent is a purchase.
type TransactionEvent struct {
	Seq        int     `json:"-"`
	CustomerID string  `json:"customer_id"`
	Time       int     `json:"transaction_time"`
	Amount     float64 `json:"amount"`
}

// Tables is the normalized event set handed to the attribution engine.
type Tables struct {
	Received     []ReceivedEvent
	Viewed       []ViewedEvent
	Completed    []CompletedEvent
	Transactions []TransactionEvent
}

// Partition is the slice of Tables that belongs to one customer.
type Partition struct {
	CustomerID string
	Tables
}

// PartitionByCustomer splits t into per-customer partitions ordered by
// customer id. Row order inside each table is preserved.
func PartitionByCustomer(t Tables) []Partition {
	idx := make(map[string]int)
	var parts []Partition
	get := func(cid string) *Partition {
		i, ok := idx[cid]
		if !ok {
			i = len(parts)
			idx[cid] = i
			parts = append(parts, Partition{CustomerID: cid})
		}
		return &parts[i]
	}
	for _, r := range t.Received {
		p := get(r.CustomerID)
		p.Received = append(p.Received, r)
	}
	for _, v := range t.Viewed {
		p := get(v.CustomerID)
		p.Viewed = append(p.Viewed, v)
	}
	for _, c := range t.Completed {
		p := get(c.CustomerID)
		p.Completed = append(p.Completed, c)
	}
	for _, tx := range t.Transactions {
		p := get(tx.CustomerID)
		p.Transactions = append(p.Transactions, tx)
	}
	sortPartitions(parts)
	return parts
}
