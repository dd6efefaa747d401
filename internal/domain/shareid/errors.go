package shareid

import "errors"

// Sentinel kinds for minting errors.
var (
	ErrSpaceExhausted = errors.New("share id space exhausted")
	ErrEntropy        = errors.New("entropy source failed")
)
