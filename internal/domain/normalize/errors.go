package normalize

import "errors"

// Sentinel kinds for normalizer errors.
var (
	ErrMalformedEvent   = errors.New("malformed event")
	ErrUnknownEventKind = errors.New("unknown event kind")
)
