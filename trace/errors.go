package trace

import "errors"

// Every failure in this package wraps one of these sentinels so callers
// can classify without matching strings. All of them are fatal: a replay
// never continues past the first one.
var (
	// acquisition
	ErrTxNotFound      = errors.New("transaction not found")
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrMalformedTrace  = errors.New("malformed tracing result")

	// decoding
	ErrBadStep           = errors.New("malformed trace step")
	ErrUnsupportedHostio = errors.New("unsupported hostio")

	// replay
	ErrNoNextHostio   = errors.New("no next hostio")
	ErrHostioMismatch = errors.New("hostio mismatch")
)
