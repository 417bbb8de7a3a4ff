package attribution

import "errors"

// ErrUnknownTieBreak is returned by ParseTieBreak for unsupported policy names.
var ErrUnknownTieBreak = errors.New("unknown tie-break policy")
