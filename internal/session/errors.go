package session

import (
	"errors"
	"fmt"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound  = errors.New("session not found")
	ErrFinalized = errors.New("session is finalized")
)

// ValidationError reports malformed or out-of-range creation input.
// It names the offending field so the caller can correct it; nothing is
// persisted when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
