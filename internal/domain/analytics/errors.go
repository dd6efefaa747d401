package analytics

import "errors"

// Sentinel kinds for analytics errors.
var (
	ErrInvalidBucket = errors.New("invalid trend bucket size")
)
