package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("customer not found")
	ErrInvalidLimit = errors.New("invalid page limit")
)
