package ledger

import (
	"errors"
	"fmt"

	"ledger-query/pkg/money"
)

// Error kinds reported by ledger operations. Each maps to one stable outward signal.
var (
	// ErrUnauthorized is returned when the owner identity is missing or unparseable
	ErrUnauthorized = errors.New("ledger: unauthorized")

	// ErrNotFound is returned when no transaction matches, including when it belongs
	// to another owner
	ErrNotFound = errors.New("ledger: not found")

	// ErrInvalidAmount is returned when a monetary value is not exactly representable
	ErrInvalidAmount = money.ErrInvalidAmount

	// ErrStore is returned when the backend is unavailable or a query fails
	ErrStore = errors.New("ledger: store error")

	// ErrInvalidStatus is returned when a write carries a status outside the
	// closed set. Callers never supply a status, so it classifies as internal.
	ErrInvalidStatus = errors.New("ledger: invalid status")
)

// IsNotFound checks if the error indicates a missing (or foreign) transaction.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if the error indicates a missing or invalid owner identity.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsInvalidAmount checks if the error indicates an unrepresentable amount.
func IsInvalidAmount(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}

// IsStoreError checks if the error is a backend failure.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStore)
}

// StoreError wraps a backend failure as ErrStore, keeping the cause in the chain.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// ClassifyError returns a stable label for the error kind, used for status
// mapping and metrics.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrStore):
		return "store_error"
	default:
		return "internal"
	}
}
