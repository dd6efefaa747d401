// Package shareid mints collision-resistant public identifiers for
// sharing sessions. Ids are drawn from a URL-safe alphabet using
// crypto/rand and verified against the store before acceptance.
package shareid

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/cafecultura/cuppingd/pkg/metrics"
)

// alphabet is URL-safe: no escaping needed in a path segment.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// Default minting configuration constants.
const (
	defaultLength     = 10
	defaultMaxRetries = 5
	minLength         = 8
	maxLength         = 12
)

// ExistsFunc reports whether an id is already assigned in the store.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Option applies a configuration option to the Minter.
type Option func(*Minter)

// WithLength sets the id length. Values outside [8, 12] are ignored.
func WithLength(n int) Option {
	return func(m *Minter) {
		if n >= minLength && n <= maxLength {
			m.length = n
		}
	}
}

// WithMaxRetries sets the collision retry bound.
func WithMaxRetries(n int) Option {
	return func(m *Minter) {
		if n > 0 {
			m.maxRetries = n
		}
	}
}

// Minter generates share ids.
type Minter struct {
	length     int
	maxRetries int
}

// New creates a Minter with default configuration.
func New(opts ...Option) *Minter {
	m := &Minter{
		length:     defaultLength,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mint produces a new id, verifying non-collision through exists and
// retrying up to the configured bound. Exhausting the bound returns
// ErrSpaceExhausted, which signals id-space exhaustion and should never
// occur under correct configuration.
func (m *Minter) Mint(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.RecordMintRetry()
		}
		id, err := m.generate()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("share id collision check: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: after %d attempts", ErrSpaceExhausted, m.maxRetries)
}

func (m *Minter) generate() (string, error) {
	buf := make([]byte, m.length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}
