// Package memory provides an in-process store.Store for tests and local runs.
package memory

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"ledger-query/pkg/ledger"
	"ledger-query/pkg/query"
	"ledger-query/pkg/store"

	"github.com/google/uuid"
)

// Store is a store.Store held in memory. Transactions are stored by value and
// copied on the way in and out, so callers never share state with the store.
type Store struct {
	mu    sync.RWMutex
	txs   map[uuid.UUID]ledger.Transaction
	locks map[ledger.OwnerID]ledger.LockBalance

	now func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		txs:   make(map[uuid.UUID]ledger.Transaction),
		locks: make(map[ledger.OwnerID]ledger.LockBalance),
		now:   time.Now,
	}
}

// Insert implements store.Store.
func (s *Store) Insert(ctx context.Context, in ledger.NewTransaction) (*ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.StoreError(store.OpInsert, err)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id, err := store.NewID()
	if err != nil {
		return nil, ledger.StoreError(store.OpInsert, err)
	}

	tx := ledger.Transaction{
		ID:            id,
		OwnerID:       cloneOwner(in.OwnerID),
		TxType:        in.TxType,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Status:        in.Status,
		CustomerEmail: cloneString(in.CustomerEmail),
		Metadata:      cloneRaw(in.Metadata),
		CreatedAt:     s.now().UTC(),
	}

	s.mu.Lock()
	s.txs[id] = tx
	s.mu.Unlock()

	out := clone(tx)
	return &out, nil
}

// GetForOwner implements store.Store.
func (s *Store) GetForOwner(ctx context.Context, id uuid.UUID, owner ledger.OwnerID) (*ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.StoreError(store.OpGetForOwner, err)
	}

	s.mu.RLock()
	tx, ok := s.txs[id]
	s.mu.RUnlock()

	if !ok || tx.OwnerID == nil || *tx.OwnerID != owner {
		return nil, ledger.ErrNotFound
	}
	out := clone(tx)
	return &out, nil
}

// GetPayment implements store.Store.
func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.StoreError(store.OpGetPayment, err)
	}

	s.mu.RLock()
	tx, ok := s.txs[id]
	s.mu.RUnlock()

	if !ok || tx.OwnerID != nil || tx.TxType != ledger.TxTypePayment {
		return nil, ledger.ErrNotFound
	}
	out := clone(tx)
	return &out, nil
}

// List implements store.Store.
func (s *Store) List(ctx context.Context, q query.Query) ([]ledger.Transaction, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, ledger.StoreError(store.OpList, err)
	}

	var (
		matched []ledger.Transaction
		total   int64
	)

	s.mu.RLock()
	for _, tx := range s.txs {
		if tx.OwnerID == nil || *tx.OwnerID != q.Owner {
			continue
		}
		total++
		if q.Filter.Matches(q.Owner, &tx) {
			matched = append(matched, tx)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, newestFirst)

	offset := q.Page.Offset()
	if offset >= len(matched) {
		return []ledger.Transaction{}, total, nil
	}
	end := min(len(matched), offset+q.Page.Limit)

	page := make([]ledger.Transaction, 0, end-offset)
	for _, tx := range matched[offset:end] {
		page = append(page, clone(tx))
	}
	return page, total, nil
}

// GetLockBalance implements store.Store.
func (s *Store) GetLockBalance(ctx context.Context, owner ledger.OwnerID) (ledger.LockBalance, bool, error) {
	if err := ctx.Err(); err != nil {
		return ledger.LockBalance{}, false, ledger.StoreError(store.OpGetLockBalance, err)
	}

	s.mu.RLock()
	lb, ok := s.locks[owner]
	s.mu.RUnlock()

	return lb, ok, nil
}

// PutLockBalance stores lb, replacing any record for the same owner.
// Lock records are written by the accounting process; this stands in for it.
func (s *Store) PutLockBalance(lb ledger.LockBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[lb.OwnerID] = lb
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txs)
}

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

// newestFirst orders by created_at descending, then id descending. Ids are
// UUIDv7, so equal timestamps fall back to reverse insertion order.
func newestFirst(a, b ledger.Transaction) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return slices.Compare(b.ID[:], a.ID[:])
}

func clone(tx ledger.Transaction) ledger.Transaction {
	tx.OwnerID = cloneOwner(tx.OwnerID)
	tx.CustomerEmail = cloneString(tx.CustomerEmail)
	tx.Metadata = cloneRaw(tx.Metadata)
	return tx
}

func cloneOwner(o *ledger.OwnerID) *ledger.OwnerID {
	if o == nil {
		return nil
	}
	v := *o
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneRaw(m json.RawMessage) json.RawMessage {
	if m == nil {
		return nil
	}
	return append(json.RawMessage(nil), m...)
}
