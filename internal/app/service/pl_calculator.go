package service

import (
	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// PLCalculator derives profit/loss from the snapshot history.
type PLCalculator struct{}

// NewPLCalculator creates a new PLCalculator.
func NewPLCalculator() *PLCalculator {
	return &PLCalculator{}
}

// Compute compares the current valuation with the first and last recorded
// batches. Only currently held assets are iterated; an asset absent from a
// baseline batch has a baseline of zero. With an empty history the report
// has HasHistory=false and zero deltas.
func (c *PLCalculator) Compute(history entity.SnapshotHistory, current entity.Valuation) entity.PLReport {
	report := entity.PLReport{
		Assets:     make(map[string]entity.AssetPL, len(current.Assets)),
		SinceStart: decimal.Zero,
		SinceLast:  decimal.Zero,
	}

	first, ok := history.First()
	if !ok {
		for _, symbol := range current.Symbols() {
			report.Assets[symbol] = entity.AssetPL{
				Symbol:     symbol,
				CurrentUSD: current.Assets[symbol].USDValue,
				SinceStart: decimal.Zero,
				SinceLast:  decimal.Zero,
			}
		}
		return report
	}
	last, _ := history.Last()

	report.HasHistory = true
	report.FirstBatchAt = first.Timestamp
	report.LastBatchAt = last.Timestamp

	currentTotal := decimal.Zero
	for _, symbol := range current.Symbols() {
		value := current.Assets[symbol].USDValue
		sinceStart := value.Sub(first.Value(symbol))
		sinceLast := value.Sub(last.Value(symbol))

		report.Assets[symbol] = entity.AssetPL{
			Symbol:        symbol,
			CurrentUSD:    value,
			SinceStart:    sinceStart,
			SinceLast:     sinceLast,
			SinceStartPct: percentOfBaseline(value, sinceStart),
			SinceLastPct:  percentOfBaseline(value, sinceLast),
		}
		report.SinceStart = report.SinceStart.Add(sinceStart)
		report.SinceLast = report.SinceLast.Add(sinceLast)
		currentTotal = currentTotal.Add(value)
	}

	report.SinceStartPct = percentOfBaseline(currentTotal, report.SinceStart)
	report.SinceLastPct = percentOfBaseline(currentTotal, report.SinceLast)
	return report
}

// percentOfBaseline returns delta relative to the baseline (current - delta)
// in percent, or 0 when the baseline is not positive.
func percentOfBaseline(current, delta decimal.Decimal) entity.Percent {
	baseline := current.Sub(delta)
	if !baseline.IsPositive() {
		return 0
	}
	pct, _ := delta.Mul(hundred).DivRound(baseline, 8).Float64()
	return entity.Percent(pct)
}
