package cohort

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition compares a metric value against a constant.
type Condition struct {
	Op    string  `json:"op" yaml:"op"`
	Value float64 `json:"value" yaml:"value"`
}

// Longer operators first so ">=" is not read as ">".
var operators = []string{"==", "!=", ">=", "<=", ">", "<"} //nolint:gochecknoglobals // read-only operator table

// ParseCondition parses "<op><number>", for example "==1" or ">= 0.5".
func ParseCondition(s string) (Condition, error) {
	s = strings.TrimSpace(s)
	for _, op := range operators {
		if !strings.HasPrefix(s, op) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(s, op))
		v, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return Condition{}, fmt.Errorf("%w: condition %q: %v", ErrBadPredicate, s, err)
		}
		return Condition{Op: op, Value: v}, nil
	}
	return Condition{}, fmt.Errorf("%w: condition %q has no comparison operator", ErrBadPredicate, s)
}

// Match applies the condition to v.
func (c Condition) Match(v float64) bool {
	switch c.Op {
	case "==":
		return v == c.Value
	case "!=":
		return v != c.Value
	case ">=":
		return v >= c.Value
	case "<=":
		return v <= c.Value
	case ">":
		return v > c.Value
	case "<":
		return v < c.Value
	}
	return false
}

func (c Condition) String() string {
	return c.Op + strconv.FormatFloat(c.Value, 'g', -1, 64)
}
