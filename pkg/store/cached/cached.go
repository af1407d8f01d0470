// Package cached adds a read-through detail cache in front of a store.Store.
//
// Only GetForOwner is cached. Keys carry the owner id, so a cached entry is
// only ever served to the owner it was read for. Cache failures never fail a
// lookup; they fall through to the store.
package cached

import (
	"context"
	"encoding/json"
	"time"

	"ledger-query/pkg/cache"
	"ledger-query/pkg/chain"
	"ledger-query/pkg/ledger"
	"ledger-query/pkg/logging"
	"ledger-query/pkg/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var txKeys = cache.NewKeyPattern("tx", ":")

// Key returns the cache key of transaction id as read by owner.
func Key(owner ledger.OwnerID, id uuid.UUID) string {
	return txKeys.Build(owner.String(), id.String())
}

// Store serves GetForOwner through a cache chain and delegates everything
// else to the wrapped store.
type Store struct {
	store.Store

	chain  *chain.Chain
	logger *logging.Logger
}

// New builds a chain over layers (fastest first) with next as its source.
// Closing the Store closes the layers and next.
func New(next store.Store, config chain.Config, layers ...cache.CacheLayer) (*Store, error) {
	if config.Logger == nil {
		config.Logger = logging.L()
	}

	c, err := chain.New(config, &source{next: next}, layers...)
	if err != nil {
		return nil, err
	}

	return &Store{
		Store:  next,
		chain:  c,
		logger: config.Logger.Named("cached"),
	}, nil
}

// GetForOwner implements store.Store.
func (s *Store) GetForOwner(ctx context.Context, id uuid.UUID, owner ledger.OwnerID) (*ledger.Transaction, error) {
	key := Key(owner, id)

	raw, err := s.chain.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var tx ledger.Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		s.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = s.chain.Delete(ctx, key)
		return s.Store.GetForOwner(ctx, id, owner)
	}
	return &tx, nil
}

// Invalidate drops the cached copy of transaction id for owner.
func (s *Store) Invalidate(ctx context.Context, id uuid.UUID, owner ledger.OwnerID) error {
	return s.chain.Delete(ctx, Key(owner, id))
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.chain.Close()
}

// String describes the read path, e.g. "chain(memory -> redis -> store)".
func (s *Store) String() string {
	return s.chain.String()
}

// source adapts a store.Store to the read-only bottom of the chain. It only
// understands keys built by Key; Set and Delete are no-ops.
type source struct {
	next store.Store
}

func (src *source) Get(ctx context.Context, key string) ([]byte, error) {
	parts, ok := txKeys.Split(key)
	if !ok || len(parts) != 2 {
		return nil, ledger.ErrNotFound
	}
	owner, err := uuid.Parse(parts[0])
	if err != nil {
		return nil, ledger.ErrNotFound
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, ledger.ErrNotFound
	}

	tx, err := src.next.GetForOwner(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tx)
}

func (src *source) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (src *source) Delete(ctx context.Context, key string) error {
	return nil
}

func (src *source) Name() string { return "store" }

func (src *source) Close() error {
	return src.next.Close()
}
