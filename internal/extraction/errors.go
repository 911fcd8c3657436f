package extraction

import "errors"

var (
	// ErrProcessFailure covers start failures, non-zero exits, timeouts and
	// failures the extractor reports itself.
	ErrProcessFailure = errors.New("extraction process failed")
	// ErrParseFailure means the process succeeded but its output is unusable.
	ErrParseFailure = errors.New("extraction output could not be parsed")
	// ErrBusy means no worker slot freed up within the queue timeout.
	ErrBusy = errors.New("extraction pool is busy")
)
