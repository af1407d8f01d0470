// Package ledger defines the transaction and lock-balance records shared by the
// store, the query builder and the services, together with the error kinds every
// operation reports.
package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ledger-query/pkg/money"

	"github.com/google/uuid"
)

// Status is the settlement state of a transaction.
type Status string

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
	StatusFailed  Status = "failed"
)

// TxTypePayment tags transactions created by payment ingestion.
const TxTypePayment = "payment"

// ParseStatus maps s onto the closed set of statuses.
// The boolean is false for anything outside the set; callers treat that as
// "no status" rather than as an error.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusSettled, StatusFailed:
		return Status(s), true
	default:
		return "", false
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := ParseStatus(string(s))
	return ok
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// OwnerID identifies an account holder.
type OwnerID = uuid.UUID

// ParseOwnerID parses an already-verified identity subject into an OwnerID.
// Failures are reported as ErrUnauthorized.
func ParseOwnerID(subject string) (OwnerID, error) {
	id, err := uuid.Parse(strings.TrimSpace(subject))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrUnauthorized
	}
	return id, nil
}

// Transaction is a ledger entry. Once stored, ID, CreatedAt and Amount never change.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       *OwnerID        `json:"owner_id,omitempty"`
	TxType        string          `json:"tx_type"`
	Amount        money.Amount    `json:"amount"`
	Currency      string          `json:"currency"`
	Status        Status          `json:"status"`
	CustomerEmail *string         `json:"customer_email,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewTransaction carries the caller-supplied fields of a transaction to insert.
// The store assigns ID and CreatedAt.
type NewTransaction struct {
	OwnerID       *OwnerID
	TxType        string
	Amount        money.Amount
	Currency      string
	Status        Status
	CustomerEmail *string
	Metadata      json.RawMessage
}

// Validate rejects records no store may write: a status outside the closed
// set or a negative amount.
func (n NewTransaction) Validate() error {
	if !n.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(n.Status))
	}
	if n.Amount.IsNegative() {
		return fmt.Errorf("%w: negative value %s", ErrInvalidAmount, n.Amount)
	}
	return nil
}

// LockBalance is the stored lock record of an owner. It is maintained by an
// external accounting process and only read here.
type LockBalance struct {
	OwnerID          OwnerID
	LockedAmount     money.Amount
	RequiredAmount   money.Amount
	LastCalculatedAt *time.Time
}

// BusLockBalance is the derived lock view reported to callers.
type BusLockBalance struct {
	OwnerID          OwnerID      `json:"owner_id"`
	LockedAmount     money.Amount `json:"locked_amount"`
	RequiredAmount   money.Amount `json:"required_amount"`
	Deficit          money.Amount `json:"deficit"`
	LastCalculatedAt time.Time    `json:"last_calculated_at"`
}
