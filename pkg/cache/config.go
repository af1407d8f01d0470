package cache

import (
	"fmt"
	"time"
)

// TTLPolicy bounds the lifetime of cached entries in a layer.
type TTLPolicy struct {
	// Default applies when a write does not specify a TTL
	Default time.Duration

	// Max caps every TTL; 0 means uncapped
	Max time.Duration
}

// Validate checks the policy for negative or inverted bounds.
func (p TTLPolicy) Validate() error {
	if p.Default <= 0 {
		return fmt.Errorf("%w: default ttl must be positive", ErrInvalidValue)
	}
	if p.Max < 0 {
		return fmt.Errorf("%w: max ttl must not be negative", ErrInvalidValue)
	}
	if p.Max > 0 && p.Default > p.Max {
		return fmt.Errorf("%w: default ttl exceeds max ttl", ErrInvalidValue)
	}
	return nil
}

// Effective returns the TTL to apply for a requested ttl.
func (p TTLPolicy) Effective(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = p.Default
	}
	if p.Max > 0 && ttl > p.Max {
		return p.Max
	}
	return ttl
}
