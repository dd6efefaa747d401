package eventlog

import "errors"

// Sentinel kinds for event log errors.
var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrMissingShareID   = errors.New("missing share id")
)
