package cached

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger-query/pkg/cache"
	"ledger-query/pkg/cache/mock"
	"ledger-query/pkg/chain"
	"ledger-query/pkg/ledger"
	metricsmem "ledger-query/pkg/metrics/memory"
	"ledger-query/pkg/money"
	"ledger-query/pkg/store"
	"ledger-query/pkg/store/memory"

	"github.com/google/uuid"
)

func seed(t *testing.T, s store.Store, owner ledger.OwnerID) *ledger.Transaction {
	t.Helper()
	email := "a@x.com"
	tx, err := s.Insert(context.Background(), ledger.NewTransaction{
		OwnerID:       &owner,
		TxType:        "transfer",
		Amount:        money.MustParse("19.99"),
		Currency:      "USD",
		Status:        ledger.StatusPending,
		CustomerEmail: &email,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return tx
}

func TestStore_ReadThrough(t *testing.T) {
	collector := metricsmem.NewMemoryCollector()
	l1 := mock.NewMapLayer("l1")
	s, err := New(memory.New(), chain.Config{TTL: time.Minute, Metrics: collector}, l1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	owner := uuid.New()
	created := seed(t, s, owner)

	for i := 0; i < 2; i++ {
		got, err := s.GetForOwner(ctx, created.ID, owner)
		if err != nil {
			t.Fatalf("GetForOwner #%d failed: %v", i, err)
		}
		if got.ID != created.ID || got.Amount.String() != "19.99" || *got.CustomerEmail != "a@x.com" {
			t.Errorf("GetForOwner #%d returned %+v", i, got)
		}
		if !got.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("created_at changed through the cache: %v vs %v", got.CreatedAt, created.CreatedAt)
		}
	}

	snap := collector.Snapshot()
	if snap.ChainHitsByLayer[1] != 1 || snap.ChainHitsByLayer[0] != 1 {
		t.Errorf("Expected one store read then one L1 hit, got %v", snap.ChainHitsByLayer)
	}
	if l1.SetCalls() != 1 {
		t.Errorf("Expected L1 to be warmed once, got %d sets", l1.SetCalls())
	}
}

func TestStore_OwnerIsolation(t *testing.T) {
	l1 := mock.NewMapLayer("l1")
	s, err := New(memory.New(), chain.Config{TTL: time.Minute}, l1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	tx := seed(t, s, alice)

	if _, err := s.GetForOwner(ctx, tx.ID, alice); err != nil {
		t.Fatalf("GetForOwner(alice) failed: %v", err)
	}
	if _, err := s.GetForOwner(ctx, tx.ID, bob); !ledger.IsNotFound(err) {
		t.Errorf("Expected not found for another owner, got %v", err)
	}
	if _, err := l1.Get(ctx, Key(bob, tx.ID)); !cache.IsNotFound(err) {
		t.Errorf("Misses must not be cached, got %v", err)
	}
}

func TestStore_LayerFailureFallsThrough(t *testing.T) {
	broken := mock.NewMockLayer("broken")
	broken.GetFunc = func(ctx context.Context, key string) ([]byte, error) {
		return nil, errors.New("connection refused")
	}
	broken.SetFunc = func(ctx context.Context, key string, value []byte, ttl time.Duration) error {
		return errors.New("connection refused")
	}

	s, err := New(memory.New(), chain.Config{TTL: time.Minute}, broken)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	owner := uuid.New()
	tx := seed(t, s, owner)

	got, err := s.GetForOwner(context.Background(), tx.ID, owner)
	if err != nil {
		t.Fatalf("Expected the store to answer, got %v", err)
	}
	if got.ID != tx.ID {
		t.Errorf("Expected %s, got %s", tx.ID, got.ID)
	}
}

func TestStore_CorruptEntry(t *testing.T) {
	l1 := mock.NewMapLayer("l1")
	s, err := New(memory.New(), chain.Config{TTL: time.Minute}, l1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	owner := uuid.New()
	tx := seed(t, s, owner)

	_ = l1.Set(ctx, Key(owner, tx.ID), []byte("{not json"), time.Minute)

	got, err := s.GetForOwner(ctx, tx.ID, owner)
	if err != nil || got.ID != tx.ID {
		t.Fatalf("Expected fallback to the store, got %v, %v", got, err)
	}
	if l1.DeleteCalls() != 1 {
		t.Errorf("Expected the corrupt entry to be dropped")
	}
}

func TestStore_Invalidate(t *testing.T) {
	l1 := mock.NewMapLayer("l1")
	s, err := New(memory.New(), chain.Config{TTL: time.Minute}, l1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	owner := uuid.New()
	tx := seed(t, s, owner)

	if _, err := s.GetForOwner(ctx, tx.ID, owner); err != nil {
		t.Fatalf("GetForOwner failed: %v", err)
	}
	if err := s.Invalidate(ctx, tx.ID, owner); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := l1.Get(ctx, Key(owner, tx.ID)); !cache.IsNotFound(err) {
		t.Errorf("Expected entry to be gone, got %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	l1 := mock.NewMapLayer("l1")
	s, err := New(memory.New(), chain.Config{TTL: time.Minute}, l1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := s.String(); got != "chain(l1 -> store)" {
		t.Errorf("Unexpected chain description %q", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if l1.CloseCalls() != 1 {
		t.Errorf("Expected layer to be closed once, got %d", l1.CloseCalls())
	}
}

func TestSource_RejectsForeignKeys(t *testing.T) {
	src := &source{next: memory.New()}
	for _, key := range []string{"other:key", "tx:not-a-uuid:" + uuid.NewString(), "tx:" + uuid.NewString()} {
		if _, err := src.Get(context.Background(), key); !ledger.IsNotFound(err) {
			t.Errorf("Get(%q): expected not found, got %v", key, err)
		}
	}
}
