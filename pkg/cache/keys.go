package cache

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxKeyLength is the longest key any layer accepts.
const MaxKeyLength = 250

// ValidateKey checks that key is non-empty, at most MaxKeyLength bytes, and
// free of control characters and whitespace.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: key too long (max %d characters)", ErrInvalidKey, MaxKeyLength)
	}

	for _, r := range key {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return fmt.Errorf("%w: key contains control or whitespace character", ErrInvalidKey)
		}
	}

	return nil
}

// KeyPattern builds keys of the form prefix:part:part.
type KeyPattern struct {
	prefix    string
	separator string
}

// NewKeyPattern creates a key pattern. An empty separator defaults to ":".
func NewKeyPattern(prefix, separator string) *KeyPattern {
	if separator == "" {
		separator = ":"
	}
	return &KeyPattern{
		prefix:    prefix,
		separator: separator,
	}
}

// Build joins the prefix and parts.
// Example: NewKeyPattern("ledger:tx", ":").Build(owner, id) -> "ledger:tx:<owner>:<id>"
func (kp *KeyPattern) Build(parts ...string) string {
	if len(parts) == 0 {
		return kp.prefix
	}
	return kp.prefix + kp.separator + strings.Join(parts, kp.separator)
}

// Split returns the parts of a key built by this pattern, or false if key
// does not carry the prefix.
func (kp *KeyPattern) Split(key string) ([]string, bool) {
	rest, ok := strings.CutPrefix(key, kp.prefix+kp.separator)
	if !ok || rest == "" {
		return nil, false
	}
	return strings.Split(rest, kp.separator), true
}
