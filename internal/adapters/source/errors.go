package source

import "errors"

// ErrLoad marks an input file that could not be read or decoded.
var ErrLoad = errors.New("load input")
