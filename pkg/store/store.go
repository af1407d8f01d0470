// Package store defines the transaction store contract and the decorators
// shared by its implementations.
//
// Every read is scoped to one owner; Insert is the only mutation. Failures of
// the backend are reported as ledger.ErrStore, absent rows as ledger.ErrNotFound.
package store

import (
	"context"

	"ledger-query/pkg/ledger"
	"ledger-query/pkg/query"

	"github.com/google/uuid"
)

// Store persists and reads ledger transactions and lock records.
type Store interface {
	// Insert assigns id and created_at and returns the stored transaction.
	Insert(ctx context.Context, tx ledger.NewTransaction) (*ledger.Transaction, error)

	// GetForOwner returns the transaction id if it belongs to owner.
	// Missing and foreign transactions are both ledger.ErrNotFound.
	GetForOwner(ctx context.Context, id uuid.UUID, owner ledger.OwnerID) (*ledger.Transaction, error)

	// GetPayment returns a non-attributed payment by id, or ledger.ErrNotFound.
	GetPayment(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)

	// List returns one page of the owner's matching transactions, newest first,
	// together with the owner's total transaction count (ignoring filters).
	List(ctx context.Context, q query.Query) ([]ledger.Transaction, int64, error)

	// GetLockBalance returns the owner's lock record; ok is false when none exists.
	GetLockBalance(ctx context.Context, owner ledger.OwnerID) (lb ledger.LockBalance, ok bool, err error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// Operation names used in errors, logs and metrics.
const (
	OpInsert         = "insert"
	OpGetForOwner    = "get_for_owner"
	OpGetPayment     = "get_payment"
	OpList           = "list"
	OpGetLockBalance = "get_lock_balance"
	OpPing           = "ping"
)

// NewID returns a time-ordered transaction id (UUIDv7), so ids sort in
// insertion order within equal timestamps.
func NewID() (uuid.UUID, error) {
	return uuid.NewV7()
}
