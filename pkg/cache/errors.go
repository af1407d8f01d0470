package cache

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by cache layers.
var (
	// ErrKeyNotFound is returned when a key is absent or expired
	ErrKeyNotFound = errors.New("cache: key not found")

	// ErrInvalidKey is returned when a key fails ValidateKey
	ErrInvalidKey = errors.New("cache: invalid key")

	// ErrInvalidValue is returned for empty values or invalid layer settings
	ErrInvalidValue = errors.New("cache: invalid value")

	// ErrLayerUnavailable is returned when a layer cannot be reached
	ErrLayerUnavailable = errors.New("cache: layer unavailable")

	// ErrTimeout is returned when a layer operation exceeds its deadline
	ErrTimeout = errors.New("cache: operation timeout")

	// ErrCircuitOpen is returned when the layer's circuit breaker rejects the call
	ErrCircuitOpen = errors.New("cache: circuit breaker open")
)

// IsNotFound checks if the error is a cache miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsTimeout checks if the error is a layer timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsUnavailable checks if the error means the layer could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrLayerUnavailable)
}

// IsCircuitOpen checks if the error comes from an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// ClassifyError returns a label for the error, for metrics and logs.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_breaker_open"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrKeyNotFound):
		return "key_not_found"
	case errors.Is(err, ErrLayerUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "connection", "connect", "dial"):
		return "connection"
	case containsAny(msg, "marshal", "unmarshal", "encode", "decode"):
		return "serialization"
	case strings.Contains(msg, "redis"):
		return "backend"
	default:
		return "other"
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// WrapError adds the layer name and operation to err.
func WrapError(err error, layer string, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("cache layer %s %s: %w", layer, operation, err)
}
