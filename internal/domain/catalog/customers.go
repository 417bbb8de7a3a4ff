package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/offerlens/internal/domain/model"
)

const (
	defaultMaxAge = 100
	incomeUnit    = 1000
	memberLayout  = "20060102"
)

// Right-closed bin edges used for reporting brackets.
var (
	ageEdges        = []float64{17, 35, 55, 75, 100}
	incomeEdges     = []float64{29, 45, 60, 75, 90, 120}
	memberYearEdges = []float64{2012, 2014, 2016, 2018}
)

// CustomerOption configures Customers.
type CustomerOption func(*customerConfig)

type customerConfig struct {
	maxAge int
}

// WithMaxAge drops profiles older than maxAge. The raw data uses 118 as a
// sentinel for profiles without gender and income.
func WithMaxAge(maxAge int) CustomerOption {
	return func(c *customerConfig) {
		if maxAge > 0 {
			c.maxAge = maxAge
		}
	}
}

// CustomerReport counts rows removed while cleaning profiles.
type CustomerReport struct {
	Input        int `json:"input"`
	Kept         int `json:"kept"`
	DroppedByAge int `json:"dropped_by_age"`
}

// Customers cleans raw profile rows. Rows above the age limit are dropped;
// an unparseable membership date is an error.
func Customers(raw []model.RawCustomer, opts ...CustomerOption) ([]model.Customer, CustomerReport, error) {
	cfg := customerConfig{maxAge: defaultMaxAge}
	for _, opt := range opts {
		opt(&cfg)
	}

	rep := CustomerReport{Input: len(raw)}
	out := make([]model.Customer, 0, len(raw))
	for _, r := range raw {
		if r.Age > cfg.maxAge {
			rep.DroppedByAge++
			continue
		}
		since, err := ParseMemberDate(r.BecameMemberOn)
		if err != nil {
			return nil, rep, fmt.Errorf("customer %s: %w", r.ID, err)
		}
		c := model.Customer{
			ID:          r.ID,
			Age:         r.Age,
			MemberSince: since,
			MemberYear:  since.Year(),
			MemberMonth: int(since.Month()),
			AgeRange:    Bracket(float64(r.Age), ageEdges),
		}
		if r.Gender != nil {
			c.Gender = *r.Gender
		}
		if r.Income != nil {
			c.IncomeK = *r.Income / incomeUnit
			c.HasIncome = true
			c.IncomeRange = Bracket(c.IncomeK, incomeEdges)
		}
		c.MemberYearRange = Bracket(float64(c.MemberYear), memberYearEdges)
		out = append(out, c)
	}
	rep.Kept = len(out)
	return out, rep, nil
}

// ParseMemberDate parses a YYYYMMDD date given as a number or a string.
func ParseMemberDate(v any) (time.Time, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = strings.TrimSpace(x)
	case float64:
		if x != math.Trunc(x) {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, x)
		}
		s = strconv.FormatInt(int64(x), 10)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case json.Number:
		s = x.String()
	default:
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, v)
	}
	t, err := time.Parse(memberLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Bracket returns the right-closed interval label "(lo, hi]" containing v,
// or "" when v falls outside every bin.
func Bracket(v float64, edges []float64) string {
	for i := 1; i < len(edges); i++ {
		if v > edges[i-1] && v <= edges[i] {
			return "(" + formatEdge(edges[i-1]) + ", " + formatEdge(edges[i]) + "]"
		}
	}
	return ""
}

func formatEdge(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// IndexCustomers maps customers by id.
func IndexCustomers(customers []model.Customer) map[string]model.Customer {
	idx := make(map[string]model.Customer, len(customers))
	for _, c := range customers {
		idx[c.ID] = c
	}
	return idx
}
