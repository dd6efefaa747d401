package config

import "errors"

// Sentinel errors callers can match with errors.Is.
var (
	// ErrLoadConfig wraps failures reading or decoding configuration
	// sources (file, environment).
	ErrLoadConfig = errors.New("load config failed")

	// ErrInvalidConfig wraps semantic validation failures after loading.
	ErrInvalidConfig = errors.New("invalid config")
)
