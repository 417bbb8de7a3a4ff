// Package cohort groups customers that match a feature condition by
// demographic buckets and ranks the groups.
package cohort

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/offerlens/internal/domain/features"
	"github.com/okian/offerlens/internal/domain/model"
)

// DefaultTop is the number of ranked groups returned when Query.Top is unset.
const DefaultTop = 10

// Grouping keys.
const (
	KeyGender          = "gender"
	KeyAgeRange        = "age_range"
	KeyIncomeRange     = "income_range"
	KeyMemberYearRange = "member_year_range"
	KeyMemberYear      = "member_year"
	KeyMemberMonth     = "member_month"
)

var keyFuncs = map[string]func(*model.Customer) string{ //nolint:gochecknoglobals // read-only key registry
	KeyGender:          func(c *model.Customer) string { return c.Gender },
	KeyAgeRange:        func(c *model.Customer) string { return c.AgeRange },
	KeyIncomeRange:     func(c *model.Customer) string { return c.IncomeRange },
	KeyMemberYearRange: func(c *model.Customer) string { return c.MemberYearRange },
	KeyMemberYear:      func(c *model.Customer) string { return positive(c.MemberYear) },
	KeyMemberMonth:     func(c *model.Customer) string { return positive(c.MemberMonth) },
}

// Marginal sums are reported for these keys when they are part of the query.
var marginalKeys = []string{KeyGender, KeyAgeRange, KeyIncomeRange, KeyMemberYearRange, KeyMemberYear} //nolint:gochecknoglobals // read-only

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// Query selects customers by Metric and Condition and groups them by Keys.
type Query struct {
	Keys      []string `json:"keys" yaml:"keys"`
	Metric    string   `json:"metric" yaml:"metric"`
	Condition string   `json:"condition" yaml:"condition"`
	Top       int      `json:"top" yaml:"top"`
}

// Group is one combination of key values.
type Group struct {
	Values               []string `json:"values" yaml:"values"`
	Count                int      `json:"count" yaml:"count"`
	AmountMean           *float64 `json:"tr_amount_mean" yaml:"tr_amount_mean"`
	TransactionCountMean float64  `json:"tr_count_mean" yaml:"tr_count_mean"`
}

// Bucket is a marginal count for one key value.
type Bucket struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// Marginal sums group counts over one key.
type Marginal struct {
	Key     string   `json:"key" yaml:"key"`
	Buckets []Bucket `json:"buckets" yaml:"buckets"`
}

// Report is the outcome of Explore.
type Report struct {
	Query       Query      `json:"query" yaml:"query"`
	Matched     int        `json:"matched" yaml:"matched"`
	TotalGroups int        `json:"total_groups" yaml:"total_groups"`
	Groups      []Group    `json:"groups" yaml:"groups"`
	Marginals   []Marginal `json:"marginals" yaml:"marginals"`
}

type accum struct {
	values    []string
	count     int
	amountSum float64
	amountN   int
	txSum     float64
}

// Validate checks keys, metric and condition without running the query.
func (q Query) Validate() (features.Column, Condition, error) {
	if len(q.Keys) == 0 {
		return features.Column{}, Condition{}, fmt.Errorf("%w: no grouping keys", ErrBadPredicate)
	}
	for _, k := range q.Keys {
		if _, ok := keyFuncs[k]; !ok {
			return features.Column{}, Condition{}, fmt.Errorf("%w: unknown key %q", ErrBadPredicate, k)
		}
	}
	col, ok := features.Lookup(q.Metric)
	if !ok {
		return features.Column{}, Condition{}, fmt.Errorf("%w: unknown metric %q", ErrBadPredicate, q.Metric)
	}
	cond, err := ParseCondition(q.Condition)
	if err != nil {
		return features.Column{}, Condition{}, err
	}
	return col, cond, nil
}

// Explore filters rows whose metric satisfies the condition, groups them by
// the query keys and ranks groups by count, mean transaction count and mean
// transaction amount, all descending. Rows with a missing key value or a
// null metric are skipped.
func Explore(rows []model.CustomerFeatures, q Query) (Report, error) {
	col, cond, err := q.Validate()
	if err != nil {
		return Report{}, err
	}
	if q.Top <= 0 {
		q.Top = DefaultTop
	}
	amountCol, _ := features.Lookup("transaction_amount_mean")

	rep := Report{Query: q}
	groups := make(map[string]*accum)
	for i := range rows {
		f := &rows[i]
		if f.Customer == nil {
			continue
		}
		v, ok := col.Value(f)
		if !ok || !cond.Match(v) {
			continue
		}
		values, ok := keyValues(f.Customer, q.Keys)
		if !ok {
			continue
		}
		rep.Matched++

		id := strings.Join(values, "\x00")
		g := groups[id]
		if g == nil {
			g = &accum{values: values}
			groups[id] = g
		}
		g.count++
		g.txSum += float64(f.Transactions)
		if amt, ok := amountCol.Value(f); ok {
			g.amountSum += amt
			g.amountN++
		}
	}

	all := make([]Group, 0, len(groups))
	for _, g := range groups {
		out := Group{
			Values:               g.values,
			Count:                g.count,
			TransactionCountMean: g.txSum / float64(g.count),
		}
		if g.amountN > 0 {
			m := g.amountSum / float64(g.amountN)
			out.AmountMean = &m
		}
		all = append(all, out)
	}
	sort.Slice(all, func(i, j int) bool { return ranksBefore(all[i], all[j]) })

	rep.TotalGroups = len(all)
	rep.Marginals = marginals(all, q.Keys)
	if len(all) > q.Top {
		all = all[:q.Top]
	}
	rep.Groups = all
	return rep, nil
}

func keyValues(c *model.Customer, keys []string) ([]string, bool) {
	values := make([]string, len(keys))
	for i, k := range keys {
		v := keyFuncs[k](c)
		if v == "" {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func ranksBefore(a, b Group) bool {
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	if a.TransactionCountMean != b.TransactionCountMean {
		return a.TransactionCountMean > b.TransactionCountMean
	}
	am, aok := deref(a.AmountMean)
	bm, bok := deref(b.AmountMean)
	if aok != bok {
		return aok
	}
	if am != bm {
		return am > bm
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			return a.Values[i] < b.Values[i]
		}
	}
	return false
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func marginals(groups []Group, keys []string) []Marginal {
	var out []Marginal
	for _, mk := range marginalKeys {
		pos := -1
		for i, k := range keys {
			if k == mk {
				pos = i
				break
			}
		}
		if pos < 0 {
			continue
		}
		sums := make(map[string]int)
		for _, g := range groups {
			sums[g.Values[pos]] += g.Count
		}
		m := Marginal{Key: mk, Buckets: make([]Bucket, 0, len(sums))}
		for v, n := range sums {
			m.Buckets = append(m.Buckets, Bucket{Value: v, Count: n})
		}
		sort.Slice(m.Buckets, func(i, j int) bool { return m.Buckets[i].Value < m.Buckets[j].Value })
		out = append(out, m)
	}
	return out
}

// Keys returns the supported grouping keys in sorted order.
func Keys() []string {
	out := make([]string, 0, len(keyFuncs))
	for k := range keyFuncs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
