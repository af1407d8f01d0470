package balance

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger-query/pkg/ledger"
	"ledger-query/pkg/money"
	"ledger-query/pkg/store/memory"

	"github.com/google/uuid"
)

type lockReaderFunc func(ctx context.Context, owner ledger.OwnerID) (ledger.LockBalance, bool, error)

func (f lockReaderFunc) GetLockBalance(ctx context.Context, owner ledger.OwnerID) (ledger.LockBalance, bool, error) {
	return f(ctx, owner)
}

func TestDeficit(t *testing.T) {
	tests := []struct {
		required, locked, want string
	}{
		{"50", "20", "30"},
		{"20", "50", "0"},
		{"50", "50", "0"},
		{"0", "0", "0"},
		{"0.3", "0.1", "0.2"},
		{"100.00000001", "100", "0.00000001"},
		{"0", "12.5", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.required+"-"+tt.locked, func(t *testing.T) {
			got := Deficit(money.MustParse(tt.required), money.MustParse(tt.locked))
			if !got.Equal(money.MustParse(tt.want)) {
				t.Errorf("Deficit(%s, %s) = %s, want %s", tt.required, tt.locked, got, tt.want)
			}
			if got.IsNegative() {
				t.Errorf("Deficit must never be negative, got %s", got)
			}
		})
	}
}

func TestCalculator_ZeroState(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewCalculator(memory.New(), nil)
	c.now = func() time.Time { return now }

	owner := uuid.New()
	got, err := c.Balance(context.Background(), owner)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if got.OwnerID != owner || !got.LockedAmount.IsZero() || !got.RequiredAmount.IsZero() || !got.Deficit.IsZero() {
		t.Errorf("Expected zero state, got %+v", got)
	}
	if !got.LastCalculatedAt.Equal(now) {
		t.Errorf("Expected last_calculated_at = now, got %v", got.LastCalculatedAt)
	}
}

func TestCalculator_StoredRecord(t *testing.T) {
	owner := uuid.New()
	calculated := time.Date(2026, 4, 30, 23, 0, 0, 0, time.UTC)
	now := calculated.Add(time.Hour)

	s := memory.New()
	s.PutLockBalance(ledger.LockBalance{
		OwnerID:          owner,
		LockedAmount:     money.MustParse("20"),
		RequiredAmount:   money.MustParse("50"),
		LastCalculatedAt: &calculated,
	})

	c := NewCalculator(s, nil)
	c.now = func() time.Time { return now }

	got, err := c.Balance(context.Background(), owner)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if got.Deficit.String() != "30" || got.LockedAmount.String() != "20" || got.RequiredAmount.String() != "50" {
		t.Errorf("Unexpected balance: %+v", got)
	}
	if !got.LastCalculatedAt.Equal(calculated) {
		t.Errorf("Expected stored calculation time, got %v", got.LastCalculatedAt)
	}
}

func TestCalculator_MissingCalculationTime(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	owner := uuid.New()

	c := NewCalculator(lockReaderFunc(func(ctx context.Context, o ledger.OwnerID) (ledger.LockBalance, bool, error) {
		return ledger.LockBalance{
			OwnerID:        o,
			LockedAmount:   money.MustParse("80"),
			RequiredAmount: money.MustParse("50"),
		}, true, nil
	}), nil)
	c.now = func() time.Time { return now }

	got, err := c.Balance(context.Background(), owner)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if !got.Deficit.IsZero() {
		t.Errorf("Expected zero deficit when over-locked, got %s", got.Deficit)
	}
	if !got.LastCalculatedAt.Equal(now) {
		t.Errorf("Expected now for a missing calculation time, got %v", got.LastCalculatedAt)
	}
}

func TestCalculator_StoreError(t *testing.T) {
	c := NewCalculator(lockReaderFunc(func(ctx context.Context, o ledger.OwnerID) (ledger.LockBalance, bool, error) {
		return ledger.LockBalance{}, false, ledger.StoreError("get_lock_balance", errors.New("down"))
	}), nil)

	if _, err := c.Balance(context.Background(), uuid.New()); !ledger.IsStoreError(err) {
		t.Errorf("Expected store error, got %v", err)
	}
}
