package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrRunInProgress      = errors.New("pipeline run already in progress")
	ErrDuplicatePartition = errors.New("partition collected twice")
)
