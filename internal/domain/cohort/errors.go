package cohort

import "errors"

// ErrBadPredicate marks an unusable cohort query: unknown key or metric, or
// an unparseable condition.
var ErrBadPredicate = errors.New("bad cohort predicate")
