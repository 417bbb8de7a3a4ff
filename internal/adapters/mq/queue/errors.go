package queue

import "errors"

// ErrClosed is returned when a partition is offered to a closed queue.
var ErrClosed = errors.New("queue closed")
