// Package transactions answers owner-scoped list and detail queries.
package transactions

import (
	"context"
	"encoding/json"
	"time"

	"ledger-query/pkg/ledger"
	"ledger-query/pkg/logging"
	"ledger-query/pkg/money"
	"ledger-query/pkg/query"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reader is the subset of store.Store used for queries.
type Reader interface {
	GetForOwner(ctx context.Context, id uuid.UUID, owner ledger.OwnerID) (*ledger.Transaction, error)
	List(ctx context.Context, q query.Query) ([]ledger.Transaction, int64, error)
}

// Summary is a transaction as it appears in a list.
type Summary struct {
	ID            uuid.UUID     `json:"id"`
	TxType        string        `json:"tx_type"`
	Amount        money.Amount  `json:"amount"`
	Currency      string        `json:"currency"`
	Status        ledger.Status `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	CustomerEmail *string       `json:"customer_email"`
}

// Detail is a single transaction, including its metadata.
type Detail struct {
	Summary
	Metadata json.RawMessage `json:"metadata"`
}

// Page is the list envelope.
type Page struct {
	Transactions []Summary `json:"transactions"`
	// Total counts all of the owner's transactions, ignoring search and status.
	Total int64 `json:"total"`
	Page  int   `json:"page"`
}

// NewSummary renders tx for a list.
func NewSummary(tx *ledger.Transaction) Summary {
	return Summary{
		ID:            tx.ID,
		TxType:        tx.TxType,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Status:        tx.Status,
		CreatedAt:     tx.CreatedAt,
		CustomerEmail: tx.CustomerEmail,
	}
}

// NewDetail renders tx for the detail view.
func NewDetail(tx *ledger.Transaction) Detail {
	d := Detail{Summary: NewSummary(tx), Metadata: tx.Metadata}
	if len(d.Metadata) == 0 {
		d.Metadata = json.RawMessage("null")
	}
	return d
}

// Service runs owner-scoped transaction queries.
type Service struct {
	reader Reader
	logger *logging.Logger
}

// NewService creates a Service.
func NewService(reader Reader, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.L()
	}
	return &Service{reader: reader, logger: logger.Named("transactions")}
}

// List returns one page of owner's transactions matching params.
// Invalid params never fail: unknown statuses are ignored and paging is clamped.
func (s *Service) List(ctx context.Context, owner ledger.OwnerID, params query.Params) (*Page, error) {
	q := query.Build(owner, params)

	rows, total, err := s.reader.List(ctx, q)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Transactions: make([]Summary, 0, len(rows)),
		Total:        total,
		Page:         q.Page.Number,
	}
	for i := range rows {
		page.Transactions = append(page.Transactions, NewSummary(&rows[i]))
	}

	s.logger.Debug("listed transactions",
		logging.Owner(owner),
		logging.Shape(q.Filter.Shape()),
		zap.Int("page", q.Page.Number),
		zap.Int("limit", q.Page.Limit),
		zap.Int("returned", len(rows)),
		zap.Int64("total", total),
	)
	return page, nil
}

// Get returns owner's transaction rawID. An id that does not parse is
// reported as ledger.ErrNotFound, like any other id the owner cannot see.
func (s *Service) Get(ctx context.Context, owner ledger.OwnerID, rawID string) (*ledger.Transaction, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ledger.ErrNotFound
	}
	return s.reader.GetForOwner(ctx, id, owner)
}
