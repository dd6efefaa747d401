// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Backend names accepted by StorageBackend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StorageBackend selects the physical store: file or sqlite.
	StorageBackend string `koanf:"storage_backend"`

	// DataDir is the root directory of the file backend.
	DataDir string `koanf:"data_dir"`

	// SQLitePath is the database file of the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// ShareIDLength sets the public identifier length (8-12).
	ShareIDLength int `koanf:"share_id_length"`

	// ShareIDMaxRetries bounds collision retries when minting share ids.
	ShareIDMaxRetries int `koanf:"share_id_max_retries"`

	// MaxAttributeScore is the upper bound for sensory attribute scores.
	MaxAttributeScore float64 `koanf:"max_attribute_score"`

	// DefaultBucketHours is the temporal trend bucket width when a query
	// does not specify one.
	DefaultBucketHours int `koanf:"default_bucket_hours"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		StorageBackend:     BackendFile,
		DataDir:            "data",
		SQLitePath:         "cupping.db",
		ShareIDLength:      10,
		ShareIDMaxRetries:  5,
		MaxAttributeScore:  10,
		DefaultBucketHours: 24,
	}
}
