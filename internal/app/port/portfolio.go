package port

import (
	"context"
	"time"

	"portfolio_tracker/internal/domain/entity"
)

// PortfolioService runs valuation cycles.
type PortfolioService interface {
	// RunCycle fetches balances and prices, records a snapshot batch when one
	// is due and computes profit/loss against the snapshot history.
	RunCycle(ctx context.Context) (*entity.PortfolioReport, error)

	// History returns the recorded snapshot history.
	History(ctx context.Context) (entity.SnapshotHistory, error)
}

// SnapshotStore is the append-only, time-ordered log of portfolio valuations.
type SnapshotStore interface {
	// ShouldWrite reports whether a batch is due at now. It fails open.
	ShouldWrite(now time.Time) bool
	// Append writes one record per asset, all sharing ts.
	Append(ts time.Time, valuation entity.Valuation) error
	// AppendIfDue atomically combines ShouldWrite and Append.
	AppendIfDue(now time.Time, valuation entity.Valuation) (bool, error)
	// ReadAll returns every well-formed record in append order.
	ReadAll() ([]entity.SnapshotRecord, error)
	// History returns the records grouped into batches.
	History() (entity.SnapshotHistory, error)
}
