package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Percent is a percentage value, 12.5 meaning 12.5%.
type Percent float64

// Equal compares with a small precision since percentages are derived.
func (p Percent) Equal(q Percent) bool {
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

// SignedString renders the percentage with an explicit sign, "-" for zero.
func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p))
	if res == "+0.00%" || res == "-0.00%" {
		return "-"
	}
	return res
}

// AssetPL is the profit/loss of one currently held asset.
type AssetPL struct {
	Symbol        string          `json:"symbol"`
	CurrentUSD    decimal.Decimal `json:"currentUSD"`
	SinceStart    decimal.Decimal `json:"sinceStartUSD"`
	SinceLast     decimal.Decimal `json:"sinceLastUSD"`
	SinceStartPct Percent         `json:"sinceStartPct"`
	SinceLastPct  Percent         `json:"sinceLastPct"`
}

// PLReport is the portfolio profit/loss against the first and last batch.
// When HasHistory is false every delta is zero and must be presented as
// unavailable rather than as a zero P/L.
type PLReport struct {
	HasHistory    bool               `json:"hasHistory"`
	FirstBatchAt  time.Time          `json:"firstBatchAt,omitempty"`
	LastBatchAt   time.Time          `json:"lastBatchAt,omitempty"`
	Assets        map[string]AssetPL `json:"assets"`
	SinceStart    decimal.Decimal    `json:"sinceStartUSD"`
	SinceLast     decimal.Decimal    `json:"sinceLastUSD"`
	SinceStartPct Percent            `json:"sinceStartPct"`
	SinceLastPct  Percent            `json:"sinceLastPct"`
}

// PortfolioReport is the outcome of one valuation cycle.
type PortfolioReport struct {
	CycleID         string           `json:"cycleId"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	Valuation       Valuation        `json:"valuation"`
	ProfitLoss      PLReport         `json:"profitLoss"`
	SnapshotWritten bool             `json:"snapshotWritten"`
	Batches         int              `json:"snapshotBatches"`
	Warnings        []PortfolioError `json:"-"`
}
