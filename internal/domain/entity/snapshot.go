package entity

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotRecord is one persisted (timestamp, asset) row.
type SnapshotRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Asset     string          `json:"asset"`
	Balance   decimal.Decimal `json:"balance"`
	USDValue  decimal.Decimal `json:"valueUSD"`
}

// SnapshotBatch groups every record sharing one timestamp.
type SnapshotBatch struct {
	Timestamp time.Time                  `json:"timestamp"`
	Values    map[string]decimal.Decimal `json:"values"`
	Balances  map[string]decimal.Decimal `json:"balances"`
	TotalUSD  decimal.Decimal            `json:"totalValueUSD"`
}

// Value returns the USD value recorded for asset, zero if absent.
func (b SnapshotBatch) Value(asset string) decimal.Decimal {
	return b.Values[asset]
}

// SnapshotHistory is the ordered record log and the batches derived from it.
type SnapshotHistory struct {
	Records []SnapshotRecord
	Batches []SnapshotBatch
}

// NewSnapshotHistory groups records into batches ordered by timestamp.
// Duplicate (timestamp, asset) pairs are summed.
func NewSnapshotHistory(records []SnapshotRecord) SnapshotHistory {
	byTime := make(map[int64]*SnapshotBatch)
	for _, r := range records {
		key := r.Timestamp.UnixNano()
		batch, ok := byTime[key]
		if !ok {
			batch = &SnapshotBatch{
				Timestamp: r.Timestamp.UTC(),
				Values:    make(map[string]decimal.Decimal),
				Balances:  make(map[string]decimal.Decimal),
				TotalUSD:  decimal.Zero,
			}
			byTime[key] = batch
		}
		batch.Values[r.Asset] = batch.Values[r.Asset].Add(r.USDValue)
		batch.Balances[r.Asset] = batch.Balances[r.Asset].Add(r.Balance)
		batch.TotalUSD = batch.TotalUSD.Add(r.USDValue)
	}

	batches := make([]SnapshotBatch, 0, len(byTime))
	for _, b := range byTime {
		batches = append(batches, *b)
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].Timestamp.Before(batches[j].Timestamp)
	})
	return SnapshotHistory{Records: records, Batches: batches}
}

// Empty reports whether no batch has been recorded.
func (h SnapshotHistory) Empty() bool { return len(h.Batches) == 0 }

// First returns the earliest batch.
func (h SnapshotHistory) First() (SnapshotBatch, bool) {
	if h.Empty() {
		return SnapshotBatch{}, false
	}
	return h.Batches[0], true
}

// Last returns the most recent batch.
func (h SnapshotHistory) Last() (SnapshotBatch, bool) {
	if h.Empty() {
		return SnapshotBatch{}, false
	}
	return h.Batches[len(h.Batches)-1], true
}
