package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrInvalidDate  = errors.New("invalid membership date")
	ErrInvalidOffer = errors.New("invalid offer")
)
