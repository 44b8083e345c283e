package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/snapshotstore"
	"portfolio_tracker/internal/pkg/logger"
)

type fakeSource struct {
	name  string
	obs   []entity.Observation
	err   error
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) GetAllBalances(context.Context) ([]entity.Observation, error) {
	f.calls++
	return f.obs, f.err
}

type fakePrices struct {
	prices entity.PriceMap
	err    error
	asked  [][]string
}

func (f *fakePrices) GetPrices(_ context.Context, ids []string) (entity.PriceMap, error) {
	f.asked = append(f.asked, ids)
	if f.err != nil {
		return nil, f.err
	}
	out := entity.PriceMap{}
	for _, id := range ids {
		if p, ok := f.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type cycleFixture struct {
	svc     *PortfolioServiceImpl
	wallets *fakeSource
	cex     *fakeSource
	prices  *fakePrices
	store   *snapshotstore.CSVStore
	clock   time.Time
}

func newCycleFixture(t *testing.T) *cycleFixture {
	t.Helper()
	registry, err := NewAssetRegistry(nil)
	require.NoError(t, err)

	f := &cycleFixture{
		wallets: &fakeSource{name: "wallets", obs: []entity.Observation{
			obs("ethereum", "ETH", "0.6"),
			obs("base", "ETH", "0.4"),
		}},
		cex:    &fakeSource{name: "coinbase"},
		prices: &fakePrices{prices: entity.PriceMap{"ethereum": d("2000")}},
		store:  snapshotstore.NewCSVStore(filepath.Join(t.TempDir(), "snapshots.csv"), 2*time.Hour, logger.Nop()),
		clock:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewPortfolioService(registry, f.wallets, []port.BalanceSource{f.cex}, f.prices, f.store, logger.Nop())
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func TestRunCycle_FirstCycleWritesSnapshot(t *testing.T) {
	f := newCycleFixture(t)

	report, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.CycleID)
	assert.True(t, report.Valuation.TotalUSD.Equal(d("2000")))
	assert.True(t, report.SnapshotWritten)
	assert.Equal(t, 1, report.Batches)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, [][]string{{"ethereum"}}, f.prices.asked)

	// the batch just written is both baselines
	assert.True(t, report.ProfitLoss.HasHistory)
	assert.True(t, report.ProfitLoss.SinceStart.IsZero())

	records, err := f.store.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ETH", records[0].Asset)
	assert.True(t, records[0].Balance.Equal(d("1.0")))
	assert.True(t, records[0].USDValue.Equal(d("2000.0")))
}

func TestRunCycle_GateAndProfitLoss(t *testing.T) {
	f := newCycleFixture(t)
	f.prices.prices["ethereum"] = d("1800")
	_, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)

	f.clock = f.clock.Add(2 * time.Hour)
	f.prices.prices["ethereum"] = d("1950")
	report, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, report.SnapshotWritten)

	f.clock = f.clock.Add(30 * time.Minute)
	f.prices.prices["ethereum"] = d("2000")
	report, err = f.svc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.False(t, report.SnapshotWritten)
	assert.Equal(t, 2, report.Batches)
	eth := report.ProfitLoss.Assets["ETH"]
	assert.True(t, eth.SinceStart.Equal(d("200")), eth.SinceStart.String())
	assert.True(t, eth.SinceLast.Equal(d("50")), eth.SinceLast.String())
}

func TestRunCycle_PrimaryFailureIsFatal(t *testing.T) {
	f := newCycleFixture(t)
	f.wallets.err = errors.New("rpc down")

	report, err := f.svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, entity.ErrSourceUnavailable))

	records, err := f.store.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRunCycle_OptionalFailureDegrades(t *testing.T) {
	f := newCycleFixture(t)
	f.cex.err = errors.New("401 unauthorized")

	report, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "coinbase", report.Warnings[0].Source)
	assert.Equal(t, "source_unavailable", report.Warnings[0].KindName())
	assert.True(t, report.Valuation.TotalUSD.Equal(d("2000")))
}

func TestRunCycle_OptionalBalancesAreMerged(t *testing.T) {
	f := newCycleFixture(t)
	f.cex.obs = []entity.Observation{obs("coinbase", "ETH", "1"), obs("coinbase", "SHIBDOGE", "1000")}

	report, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)
	eth := report.Valuation.Assets["ETH"]
	assert.True(t, eth.Balance.Equal(d("2")))
	assert.True(t, eth.Chains["coinbase"].Equal(d("1")))
	assert.NotContains(t, report.Valuation.Assets, "SHIBDOGE")
}

func TestRunCycle_PriceFailureKeepsHoldings(t *testing.T) {
	f := newCycleFixture(t)
	f.prices.err = errors.New("429 too many requests")

	report, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)

	eth := report.Valuation.Assets["ETH"]
	assert.False(t, eth.Priced)
	assert.True(t, eth.USDValue.IsZero())
	assert.True(t, eth.Balance.Equal(d("1")))

	kinds := map[string]int{}
	for _, w := range report.Warnings {
		kinds[w.Source]++
	}
	assert.Equal(t, 2, kinds["prices"], "fetch failure plus one unpriced asset")
}

func TestRunCycle_NegativeObservationHalts(t *testing.T) {
	f := newCycleFixture(t)
	f.cex.obs = []entity.Observation{obs("coinbase", "ETH", "-1")}

	_, err := f.svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrInvariantViolation))
	assert.Empty(t, f.prices.asked)
}

func TestRunCycle_UnreadableStoreDegrades(t *testing.T) {
	f := newCycleFixture(t)
	f.svc.store = snapshotstore.NewCSVStore(t.TempDir(), 2*time.Hour, logger.Nop())

	report, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, report.SnapshotWritten)
	assert.False(t, report.ProfitLoss.HasHistory)
	assert.NotEmpty(t, report.Warnings)
}

func TestHistory(t *testing.T) {
	f := newCycleFixture(t)
	_, err := f.svc.RunCycle(context.Background())
	require.NoError(t, err)

	h, err := f.svc.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, h.Batches, 1)
}
