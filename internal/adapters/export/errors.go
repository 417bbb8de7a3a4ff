package export

import "errors"

// ErrExport marks a failure to write an output file.
var ErrExport = errors.New("export")
