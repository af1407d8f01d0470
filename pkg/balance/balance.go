// Package balance derives an owner's lock deficit from the stored lock record.
package balance

import (
	"context"
	"time"

	"ledger-query/pkg/ledger"
	"ledger-query/pkg/logging"
	"ledger-query/pkg/money"

	"go.uber.org/zap"
)

// LockReader reads lock records.
type LockReader interface {
	GetLockBalance(ctx context.Context, owner ledger.OwnerID) (ledger.LockBalance, bool, error)
}

// Calculator produces BusLockBalance views. It never writes lock records.
type Calculator struct {
	locks  LockReader
	logger *logging.Logger
	now    func() time.Time
}

// NewCalculator creates a Calculator reading from locks.
func NewCalculator(locks LockReader, logger *logging.Logger) *Calculator {
	if logger == nil {
		logger = logging.L()
	}
	return &Calculator{
		locks:  locks,
		logger: logger.Named("balance"),
		now:    time.Now,
	}
}

// Balance returns owner's lock view. An owner without a record is in the
// zero state as of now; a stored record without a calculation time also
// reports now.
func (c *Calculator) Balance(ctx context.Context, owner ledger.OwnerID) (ledger.BusLockBalance, error) {
	lb, ok, err := c.locks.GetLockBalance(ctx, owner)
	if err != nil {
		return ledger.BusLockBalance{}, err
	}

	now := c.now().UTC()
	if !ok {
		c.logger.Debug("no lock record, reporting zero state", logging.Owner(owner))
		return ledger.BusLockBalance{
			OwnerID:          owner,
			LockedAmount:     money.Zero(),
			RequiredAmount:   money.Zero(),
			Deficit:          money.Zero(),
			LastCalculatedAt: now,
		}, nil
	}

	out := ledger.BusLockBalance{
		OwnerID:          owner,
		LockedAmount:     lb.LockedAmount,
		RequiredAmount:   lb.RequiredAmount,
		Deficit:          Deficit(lb.RequiredAmount, lb.LockedAmount),
		LastCalculatedAt: now,
	}
	if lb.LastCalculatedAt != nil {
		out.LastCalculatedAt = *lb.LastCalculatedAt
	} else {
		c.logger.Warn("lock record has no calculation time", logging.Owner(owner), zap.Time("reported_as", now))
	}
	return out, nil
}

// Deficit is max(required - locked, 0).
func Deficit(required, locked money.Amount) money.Amount {
	return money.Max(required.Sub(locked), money.Zero())
}
