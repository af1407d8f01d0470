package store

import (
	"context"
	"time"

	"ledger-query/pkg/ledger"
	"ledger-query/pkg/logging"
	"ledger-query/pkg/metrics"
	"ledger-query/pkg/query"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Instrumented decorates a Store with per-operation metrics and logging.
// Backend failures are logged at error level, not-found at debug.
type Instrumented struct {
	next    Store
	metrics metrics.MetricsCollector
	logger  *logging.Logger
}

// Instrument wraps next. A nil collector or logger disables that concern.
func Instrument(next Store, collector metrics.MetricsCollector, logger *logging.Logger) *Instrumented {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Instrumented{next: next, metrics: collector, logger: logger.Named("store")}
}

func (s *Instrumented) observe(op string, start time.Time, err error, fields ...zap.Field) {
	kind := ledger.ClassifyError(err)
	elapsed := time.Since(start)
	s.metrics.RecordStoreOp(op, kind, elapsed)

	fields = append(fields, logging.Op(op), zap.Duration("elapsed", elapsed))
	switch {
	case err == nil:
	case ledger.IsNotFound(err):
		s.logger.Debug("not found", fields...)
	default:
		fields = append(fields, logging.ErrorKind(kind), zap.Error(err))
		s.logger.Error("store operation failed", fields...)
	}
}

// Insert implements Store.
func (s *Instrumented) Insert(ctx context.Context, tx ledger.NewTransaction) (*ledger.Transaction, error) {
	start := time.Now()
	out, err := s.next.Insert(ctx, tx)
	s.observe(OpInsert, start, err, zap.String("tx_type", tx.TxType))
	return out, err
}

// GetForOwner implements Store.
func (s *Instrumented) GetForOwner(ctx context.Context, id uuid.UUID, owner ledger.OwnerID) (*ledger.Transaction, error) {
	start := time.Now()
	out, err := s.next.GetForOwner(ctx, id, owner)
	s.observe(OpGetForOwner, start, err, logging.TxID(id), logging.Owner(owner))
	return out, err
}

// GetPayment implements Store.
func (s *Instrumented) GetPayment(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	start := time.Now()
	out, err := s.next.GetPayment(ctx, id)
	s.observe(OpGetPayment, start, err, logging.TxID(id))
	return out, err
}

// List implements Store.
func (s *Instrumented) List(ctx context.Context, q query.Query) ([]ledger.Transaction, int64, error) {
	start := time.Now()
	rows, total, err := s.next.List(ctx, q)
	s.observe(OpList, start, err, logging.Owner(q.Owner), logging.Shape(q.Filter.Shape()))
	return rows, total, err
}

// GetLockBalance implements Store.
func (s *Instrumented) GetLockBalance(ctx context.Context, owner ledger.OwnerID) (ledger.LockBalance, bool, error) {
	start := time.Now()
	lb, ok, err := s.next.GetLockBalance(ctx, owner)
	s.observe(OpGetLockBalance, start, err, logging.Owner(owner))
	return lb, ok, err
}

// Ping implements Store.
func (s *Instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.next.Ping(ctx)
	s.observe(OpPing, start, err)
	return err
}

// Close implements Store.
func (s *Instrumented) Close() error {
	return s.next.Close()
}
