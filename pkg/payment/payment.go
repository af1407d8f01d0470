// Package payment ingests external payments as unattributed ledger transactions.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"ledger-query/pkg/ledger"
	"ledger-query/pkg/logging"
	"ledger-query/pkg/money"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the subset of store.Store used for payments.
type Store interface {
	Insert(ctx context.Context, tx ledger.NewTransaction) (*ledger.Transaction, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)
}

// Request is an incoming payment. Amount is kept as the literal the client
// sent so it converts without passing through float64.
type Request struct {
	Amount        json.Number     `json:"amount"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customer_email"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// View is the outward representation of a payment.
type View struct {
	ID            uuid.UUID     `json:"id"`
	Amount        money.Amount  `json:"amount"`
	Currency      string        `json:"currency"`
	Status        ledger.Status `json:"status"`
	CustomerEmail string        `json:"customer_email"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewView renders tx as a payment.
func NewView(tx *ledger.Transaction) View {
	v := View{
		ID:        tx.ID,
		Amount:    tx.Amount,
		Currency:  tx.Currency,
		Status:    tx.Status,
		CreatedAt: tx.CreatedAt,
	}
	if tx.CustomerEmail != nil {
		v.CustomerEmail = *tx.CustomerEmail
	}
	return v
}

// Service creates and reads payments.
type Service struct {
	store  Store
	logger *logging.Logger
}

// NewService creates a payment Service.
func NewService(store Store, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.L()
	}
	return &Service{store: store, logger: logger.Named("payment")}
}

// Create validates req and stores it as a pending, unattributed payment.
// An amount that is not exactly representable fails with ledger.ErrInvalidAmount.
func (s *Service) Create(ctx context.Context, req Request) (*ledger.Transaction, error) {
	amount, err := money.ParseNumber(req.Amount)
	if err != nil {
		s.logger.Debug("rejected payment amount", zap.String("amount", req.Amount.String()), zap.Error(err))
		return nil, err
	}

	email := req.CustomerEmail
	tx, err := s.store.Insert(ctx, ledger.NewTransaction{
		OwnerID:       nil,
		TxType:        ledger.TxTypePayment,
		Amount:        amount,
		Currency:      req.Currency,
		Status:        ledger.StatusPending,
		CustomerEmail: &email,
		Metadata:      metadata(req.Metadata),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment created",
		logging.TxID(tx.ID),
		zap.Stringer("amount", tx.Amount),
		zap.String("currency", tx.Currency),
	)
	return tx, nil
}

// Get returns the unattributed payment id, or ledger.ErrNotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return s.store.GetPayment(ctx, id)
}

// metadata treats an explicit JSON null like an absent attachment.
func metadata(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}
