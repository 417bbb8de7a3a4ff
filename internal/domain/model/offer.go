// Package model contains domain records passed between pipeline stages.
package model

import (
	"time"

	"github.com/goccy/go-json"
)

// OfferType enumerates the offer kinds in the catalog.
type OfferType string

// Known offer types. The empty type marks a receipt whose offer is missing
// from the catalog.
const (
	OfferBOGO          OfferType = "bogo"
	OfferDiscount      OfferType = "discount"
	OfferInformational OfferType = "informational"
)

// OfferTypes lists the known offer types in reporting order.
var OfferTypes = []OfferType{OfferBOGO, OfferDiscount, OfferInformational} //nolint:gochecknoglobals // read-only enum list

// Known reports whether t is one of the catalog offer types.
func (t OfferType) Known() bool {
	switch t {
	case OfferBOGO, OfferDiscount, OfferInformational:
		return true
	}
	return false
}

// ProgressBased reports whether completion of t is signalled by an explicit
// "offer completed" event.
func (t OfferType) ProgressBased() bool {
	return t == OfferBOGO || t == OfferDiscount
}

// Channels holds one flag per delivery channel.
type Channels struct {
	Email  bool `json:"email"`
	Mobile bool `json:"mobile"`
	Web    bool `json:"web"`
	Social bool `json:"social"`
}

// Offer is an entry of the offer catalog.
type Offer struct {
	ID            string    `json:"offer_id"`
	Type          OfferType `json:"offer_type"`
	Difficulty    float64   `json:"difficulty"`
	Reward        float64   `json:"reward"`
	DurationDays  int       `json:"duration_days"`
	DurationHours int       `json:"duration_hours"`
	Channels      Channels  `json:"channels"`
}

// Customer is a cleaned profile row with reporting brackets.
type Customer struct {
	ID              string    `json:"customer_id"`
	Gender          string    `json:"gender"`
	Age             int       `json:"age"`
	IncomeK         float64   `json:"income_k"`
	HasIncome       bool      `json:"has_income"`
	MemberSince     time.Time `json:"member_since"`
	MemberYear      int       `json:"member_year"`
	MemberMonth     int       `json:"member_month"`
	AgeRange        string    `json:"age_range"`
	IncomeRange     string    `json:"income_range"`
	MemberYearRange string    `json:"member_year_range"`
}

// RawOffer is an offer row as produced by the loader. Duration is in days and
// may also be spelled duration_days.
type RawOffer struct {
	ID         string   `json:"id"`
	OfferType  string   `json:"offer_type"`
	Difficulty float64  `json:"difficulty"`
	Reward     float64  `json:"reward"`
	Duration   int      `json:"duration"`
	Channels   []string `json:"channels"`
}

// UnmarshalJSON accepts offer_id and duration_days as alternate keys.
func (o *RawOffer) UnmarshalJSON(b []byte) error {
	type plain RawOffer
	if err := json.Unmarshal(b, (*plain)(o)); err != nil {
		return err
	}
	var aux struct {
		OfferID      string `json:"offer_id"`
		DurationDays *int   `json:"duration_days"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if o.ID == "" {
		o.ID = aux.OfferID
	}
	if o.Duration == 0 && aux.DurationDays != nil {
		o.Duration = *aux.DurationDays
	}
	return nil
}

// RawCustomer is a profile row as produced by the loader. BecameMemberOn holds
// a YYYYMMDD value as either a number or a string.
type RawCustomer struct {
	ID             string   `json:"id"`
	Gender         *string  `json:"gender"`
	Age            int      `json:"age"`
	Income         *float64 `json:"income"`
	BecameMemberOn any      `json:"became_member_on"`
}
