package evaluate

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/correlate"
	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/state"
)

type stubApprover struct{ approve bool }

func (a stubApprover) IsApproved(domain.MatchCandidate) bool { return a.approve }

type stubCooldown struct{ allow bool }

func (c stubCooldown) Allow(string, float64) bool { return c.allow }

type stubExecutor struct {
	intents []domain.TradeIntent
}

func (e *stubExecutor) Attempt(_ context.Context, intent domain.TradeIntent) domain.TradeResult {
	e.intents = append(e.intents, intent)
	return domain.TradeResult{Intent: intent, Status: domain.TradeSuccess}
}

type stubBooks struct {
	snap domain.BookSnapshot
	err  error
}

func (b stubBooks) GetBook(context.Context, string) (domain.BookSnapshot, error) {
	return b.snap, b.err
}

type fixture struct {
	state    *state.State
	sink     *recordingSink
	executor *stubExecutor
	ev       *Evaluator
}

func newFixture(t *testing.T, mutate func(*fixtureOptions)) *fixture {
	t.Helper()
	opts := &fixtureOptions{
		approve:      true,
		allow:        true,
		betUSD:       10,
		liquidityNum: 1000,
		books: stubBooks{snap: domain.BookSnapshot{
			Asks: []domain.PriceLevel{{Price: 0.40, Size: 100}},
			Bids: []domain.PriceLevel{{Price: 0.39, Size: 100}},
		}},
	}
	if mutate != nil {
		mutate(opts)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := state.New()
	st.UpsertSportsEvent(domain.SportsEvent{
		MatchID:  "m1",
		HomeName: "Lakers",
		AwayName: "Celtics",
		Match:    "Lakers vs Celtics",
		Periods: []domain.Period{{
			Win1x2: &domain.Win1x2{
				Win1: &domain.OddsValue{Value: 2.0},
				Win2: &domain.OddsValue{Value: 15.0},
			},
		}},
	})
	st.SetMarketEvents([]domain.MarketEvent{{
		ID:    "ev1",
		Title: "Lakers vs Celtics",
		Markets: []domain.Market{{
			ID:               "mkt1",
			SportsMarketType: "moneyline",
			Question:         "Lakers vs Celtics",
			Outcomes:         `["Lakers","Celtics"]`,
			OutcomePrices:    `["0.40","0.60"]`,
			ClobTokenIDs:     `["tokL","tokC"]`,
			LiquidityNum:     opts.liquidityNum,
			Active:           true,
		}},
	}})

	sink := &recordingSink{}
	executor := &stubExecutor{}
	ev := New(
		st,
		correlate.NewMatcher(correlate.DefaultThresholds(), logger),
		stubApprover{approve: opts.approve},
		opts.books,
		NewChangeLog(sink, 1.12, logger),
		stubCooldown{allow: opts.allow},
		executor,
		Settings{BetUSD: opts.betUSD, ArbRatio: 1.12},
		logger,
	)
	return &fixture{state: st, sink: sink, executor: executor, ev: ev}
}

type fixtureOptions struct {
	approve      bool
	allow        bool
	betUSD       float64
	liquidityNum float64
	books        stubBooks
}

// Source odds 2.00 against target price 0.40 implies odds 2.50 and ratio
// 1.25, comfortably above the 1.12 trigger.
func TestTickTriggersArbitrage(t *testing.T) {
	f := newFixture(t, nil)
	f.ev.Tick(context.Background())

	require.Len(t, f.executor.intents, 1)
	intent := f.executor.intents[0]
	assert.Equal(t, "tokL", intent.TokenID)
	assert.Equal(t, "Lakers", intent.OutcomeName)
	assert.InDelta(t, 25.0, intent.SizeShares, 1e-9) // 10 USD / 0.40
	assert.InDelta(t, 0.40, intent.TargetPrice, 1e-9)

	// The scan row reached the sink; the trigger row carried no new values
	// relative to it, so the rate limiter collapsed the pair to one row.
	require.Len(t, f.sink.recs, 1)
	scan := f.sink.recs[0]
	assert.Equal(t, domain.TriggerInfo, scan.TriggerType)
	assert.InDelta(t, 1.25, scan.Ratio, 1e-9)
	require.NotNil(t, scan.AvailUSDAtTh)
	assert.InDelta(t, 40.0, *scan.AvailUSDAtTh, 1e-9)
}

// A re-firing arbitrage with unchanged odds and prices must not grow the
// opportunity log: the first tick's scan row is the only emission.
func TestRepeatedTicksDoNotDuplicateRecords(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < 5; i++ {
		f.ev.Tick(context.Background())
	}

	assert.Len(t, f.executor.intents, 5)
	assert.Len(t, f.sink.recs, 1)
}

func TestTickUnapprovedMatchDoesNotTrade(t *testing.T) {
	f := newFixture(t, func(o *fixtureOptions) { o.approve = false })
	f.ev.Tick(context.Background())
	assert.Empty(t, f.executor.intents)
	assert.Empty(t, f.sink.recs)
}

func TestTickCooldownBlocksTrigger(t *testing.T) {
	f := newFixture(t, func(o *fixtureOptions) { o.allow = false })
	f.ev.Tick(context.Background())
	assert.Empty(t, f.executor.intents)
	// The scan record still flows; only the trigger is suppressed.
	assert.NotEmpty(t, f.sink.recs)
}

func TestTickDeclaredLiquidityGate(t *testing.T) {
	f := newFixture(t, func(o *fixtureOptions) { o.liquidityNum = 5 })
	f.ev.Tick(context.Background())
	assert.Empty(t, f.executor.intents)
}

func TestTickThresholdDepthGate(t *testing.T) {
	f := newFixture(t, func(o *fixtureOptions) {
		// Only 2 USD of asks inside the threshold price.
		o.books = stubBooks{snap: domain.BookSnapshot{
			Asks: []domain.PriceLevel{{Price: 0.40, Size: 5}},
			Bids: []domain.PriceLevel{{Price: 0.39, Size: 100}},
		}}
	})
	f.ev.Tick(context.Background())
	assert.Empty(t, f.executor.intents)
}

func TestTickNoAsksUnderThresholdBlocksTrigger(t *testing.T) {
	f := newFixture(t, func(o *fixtureOptions) {
		// Asks exist, but only above the ~0.4464 threshold price.
		o.books = stubBooks{snap: domain.BookSnapshot{
			Asks: []domain.PriceLevel{{Price: 0.60, Size: 100}},
			Bids: []domain.PriceLevel{{Price: 0.39, Size: 100}},
		}}
	})
	f.ev.Tick(context.Background())

	// A fetchable book with nothing inside the threshold reads as zero depth.
	assert.Empty(t, f.executor.intents)
	require.NotEmpty(t, f.sink.recs)
	require.NotNil(t, f.sink.recs[0].AvailUSDAtTh)
	assert.Zero(t, *f.sink.recs[0].AvailUSDAtTh)
}

func TestTickBookFetchFailureBlocksTrigger(t *testing.T) {
	f := newFixture(t, func(o *fixtureOptions) {
		o.books = stubBooks{err: domain.ErrNotFound}
	})
	f.ev.Tick(context.Background())

	// With a token id present, an unfetchable book reads as zero depth.
	assert.Empty(t, f.executor.intents)
	require.NotEmpty(t, f.sink.recs)
	require.NotNil(t, f.sink.recs[0].AvailUSDAtTh)
	assert.Zero(t, *f.sink.recs[0].AvailUSDAtTh)
}

func TestExtractSourceOddsSkipsNonPositive(t *testing.T) {
	ev := domain.SportsEvent{
		HomeName: "A",
		AwayName: "B",
		Periods: []domain.Period{{
			Win1x2: &domain.Win1x2{
				Win1:    &domain.OddsValue{Value: 1.8},
				Win2:    &domain.OddsValue{Value: 0},
				WinNone: &domain.OddsValue{Value: 3.1},
			},
		}},
	}
	odds := extractSourceOdds(ev)
	require.Len(t, odds, 2)
	assert.Equal(t, "A", odds[0].Name)
	assert.Equal(t, "Draw", odds[1].Name)
}

func TestSyntheticSourceEventGuaranteesTrigger(t *testing.T) {
	f := newFixture(t, nil)
	markets := f.state.MarketEvents()
	ev, ok := f.ev.syntheticSourceEvent(markets[0])
	require.True(t, ok)
	assert.Equal(t, "test_ev1", ev.MatchID)
	assert.Equal(t, "Lakers vs Celtics", ev.Match)

	// Odds on the first priced outcome sit below fair value: 2.5/1.15.
	require.NotNil(t, ev.Periods[0].Win1x2.Win1)
	assert.InDelta(t, 2.5/1.15, ev.Periods[0].Win1x2.Win1.Value, 1e-9)
}
