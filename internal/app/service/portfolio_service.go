package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/metrics"
)

const priceSourceName = "prices"

// PortfolioServiceImpl implements port.PortfolioService. One RunCycle call
// fetches balances and prices, records a snapshot batch when one is due and
// computes P/L against the history.
type PortfolioServiceImpl struct {
	registry   *AssetRegistry
	aggregator *BalanceAggregator
	engine     *ValuationEngine
	calculator *PLCalculator

	primary  port.BalanceSource
	optional []port.BalanceSource
	prices   port.PriceSource
	store    port.SnapshotStore
	logger   port.Logger

	now func() time.Time
}

// NewPortfolioService creates a new instance of PortfolioServiceImpl. A
// failure of primary halts the cycle; optional sources degrade to nothing.
func NewPortfolioService(
	registry *AssetRegistry,
	primary port.BalanceSource,
	optional []port.BalanceSource,
	prices port.PriceSource,
	store port.SnapshotStore,
	l port.Logger,
) *PortfolioServiceImpl {
	return &PortfolioServiceImpl{
		registry:   registry,
		aggregator: NewBalanceAggregator(registry, l),
		engine:     NewValuationEngine(registry),
		calculator: NewPLCalculator(),
		primary:    primary,
		optional:   optional,
		prices:     prices,
		store:      store,
		logger:     l,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RunCycle runs one valuation cycle. It returns an error only for a primary
// source failure or an invariant violation; every other failure is reported
// in the report's warnings.
func (s *PortfolioServiceImpl) RunCycle(ctx context.Context) (*entity.PortfolioReport, error) {
	start := time.Now()
	now := s.now()
	report := &entity.PortfolioReport{CycleID: uuid.NewString(), GeneratedAt: now}
	log := s.logger.With("cycle_id", report.CycleID)

	report, err := s.runCycle(ctx, log, report, now)
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		metrics.Cycles.WithLabelValues("failed").Inc()
		log.Error("Valuation cycle failed", "error", err)
		return nil, err
	case len(report.Warnings) > 0:
		metrics.Cycles.WithLabelValues("degraded").Inc()
	default:
		metrics.Cycles.WithLabelValues("ok").Inc()
	}
	s.recordMetrics(report.Valuation)

	log.Info("Valuation cycle completed",
		"total_usd", report.Valuation.TotalUSD.StringFixed(2),
		"assets", len(report.Valuation.Assets),
		"snapshot_written", report.SnapshotWritten,
		"warnings", len(report.Warnings))
	return report, nil
}

func (s *PortfolioServiceImpl) runCycle(ctx context.Context, log port.Logger, report *entity.PortfolioReport, now time.Time) (*entity.PortfolioReport, error) {
	observations, err := s.primary.GetAllBalances(ctx)
	if err != nil {
		metrics.SourceFailures.WithLabelValues(s.primary.Name()).Inc()
		return nil, entity.NewSourceUnavailable(s.primary.Name(), err)
	}

	for _, src := range s.optional {
		obs, err := src.GetAllBalances(ctx)
		if err != nil {
			metrics.SourceFailures.WithLabelValues(src.Name()).Inc()
			log.Warn("Optional balance source failed, continuing without it", "source", src.Name(), "error", err)
			report.Warnings = append(report.Warnings, *entity.NewSourceUnavailable(src.Name(), err))
			continue
		}
		observations = append(observations, obs...)
	}

	holdings, err := s.aggregator.Aggregate(observations)
	if err != nil {
		return nil, err
	}

	ids := s.registry.FeedIDs(holdings.Symbols())
	prices, err := s.prices.GetPrices(ctx, ids)
	if err != nil {
		metrics.SourceFailures.WithLabelValues(priceSourceName).Inc()
		log.Warn("Price source failed", "ids", ids, "error", err)
		report.Warnings = append(report.Warnings, *entity.NewSourceUnavailable(priceSourceName, err))
	}
	if prices == nil {
		prices = entity.PriceMap{}
	}

	report.Valuation = s.engine.Value(holdings, prices)
	for _, sym := range report.Valuation.Unpriced() {
		report.Warnings = append(report.Warnings, entity.PortfolioError{
			Kind:    entity.ErrSourceUnavailable,
			Source:  priceSourceName,
			Symbol:  sym,
			Message: fmt.Sprintf("price unavailable for feed %q", report.Valuation.Assets[sym].FeedID),
		})
	}

	written, err := s.store.AppendIfDue(now, report.Valuation)
	if err != nil {
		log.Warn("Snapshot write failed", "error", err)
		report.Warnings = append(report.Warnings, asPortfolioError(err, entity.ErrStoreWriteFailure))
	}
	report.SnapshotWritten = written

	history, err := s.store.History()
	if err != nil {
		log.Warn("Snapshot history unavailable, P/L will be reported as n/a", "error", err)
		report.Warnings = append(report.Warnings, asPortfolioError(err, entity.ErrStoreReadFailure))
		history = entity.SnapshotHistory{}
	}
	report.Batches = len(history.Batches)
	report.ProfitLoss = s.calculator.Compute(history, report.Valuation)
	return report, nil
}

// History returns the recorded snapshot history.
func (s *PortfolioServiceImpl) History(_ context.Context) (entity.SnapshotHistory, error) {
	return s.store.History()
}

func (s *PortfolioServiceImpl) recordMetrics(v entity.Valuation) {
	total, _ := v.TotalUSD.Float64()
	metrics.TotalValueUSD.Set(total)
	metrics.UnpricedAssets.Set(float64(len(v.Unpriced())))
	metrics.AssetValueUSD.Reset()
	for sym, a := range v.Assets {
		val, _ := a.USDValue.Float64()
		metrics.AssetValueUSD.WithLabelValues(sym).Set(val)
	}
}

func asPortfolioError(err error, kind error) entity.PortfolioError {
	var pe *entity.PortfolioError
	if errors.As(err, &pe) {
		return *pe
	}
	return entity.PortfolioError{Kind: kind, Source: "snapshots", Cause: err}
}
