package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrUnavailable = errors.New("storage unavailable")
)
