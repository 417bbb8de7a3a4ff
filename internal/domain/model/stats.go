package model

import "math"

// Stat accumulates count, sum and extrema of a numeric column.
type Stat struct {
	Count int
	Sum   float64
	Min   float64
	Max   float64
}

// Add folds v into the statistic.
func (s *Stat) Add(v float64) {
	if s.Count == 0 {
		s.Min, s.Max = v, v
	} else {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Count++
	s.Sum += v
}

// Empty reports whether no value was folded in.
func (s Stat) Empty() bool { return s.Count == 0 }

// Mean returns the arithmetic mean, false when empty.
func (s Stat) Mean() (float64, bool) {
	if s.Count == 0 {
		return 0, false
	}
	return s.Sum / float64(s.Count), true
}

// Minimum returns the smallest value, false when empty.
func (s Stat) Minimum() (float64, bool) { return s.Min, s.Count > 0 }

// Maximum returns the largest value, false when empty.
func (s Stat) Maximum() (float64, bool) { return s.Max, s.Count > 0 }

// Total returns the sum, false when empty.
func (s Stat) Total() (float64, bool) { return s.Sum, s.Count > 0 }

// CustomerStats is the per-customer rollup of receipts, responses and
// transactions. Counters are zero when a group is absent; Stat fields report
// empty.
type CustomerStats struct {
	CustomerID string
	Customer   *Customer

	Received           int
	ReceivedByType     map[OfferType]int
	ReceivedSocial     int
	ReceivedDifficulty Stat

	Responded           int
	RespondedByType     map[OfferType]int
	RespondedSocial     int
	RespondedDifficulty Stat
	RespondedAmount     Stat

	TransactionAmount Stat
	Transactions      int
	OfferTransactions int
}

// CustomerFeatures extends CustomerStats with propensity ratios. A nil ratio
// means the denominator was zero or absent.
type CustomerFeatures struct {
	CustomerStats

	OfferCountRatio         *float64
	OfferAmountRatio        *float64
	BOGOOfferRatio          *float64
	DiscountOfferRatio      *float64
	InformationalOfferRatio *float64
	SocialOfferRatio        *float64
	DifficultyOfferRatio    *float64
}
