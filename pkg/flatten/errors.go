package flatten

import "errors"

// Sentinel errors.
var (
	ErrNoEntry          = errors.New("no entry file given")
	ErrSourceNotFound   = errors.New("source file not found")
	ErrSourceUnreadable = errors.New("source file unreadable")
	ErrBinarySource     = errors.New("source file is binary")
	ErrCyclicImport     = errors.New("cyclic import")
	ErrStaleOutput      = errors.New("flattened output is out of date")
)
