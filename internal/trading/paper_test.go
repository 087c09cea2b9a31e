package trading

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/state"
)

type fakeBooks struct {
	snaps map[string]domain.BookSnapshot
}

func (b fakeBooks) GetBook(_ context.Context, tokenID string) (domain.BookSnapshot, error) {
	snap, ok := b.snaps[tokenID]
	if !ok {
		return domain.BookSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

type tradeRecorder struct {
	trades []domain.ClosedTrade
}

func (r *tradeRecorder) Append(trade domain.ClosedTrade) error {
	r.trades = append(r.trades, trade)
	return nil
}

func position() domain.PaperPosition {
	return domain.PaperPosition{
		TokenID:    "tok1",
		MarketID:   "mkt1",
		MatchKey:   "Lakers vs Celtics",
		OutcomeKey: "Lakers",
		EntryPrice: 0.40,
		EntryTime:  time.Now().UTC().Add(-time.Minute),
		TargetUSD:  10,
		Shares:     25,
	}
}

func newMonitor(st *state.State, books domain.BookSource, trades domain.PaperTradeLog) *Monitor {
	return NewMonitor(st, books, trades, MonitorConfig{TakeProfitAbs: 0.05}, discardLogger())
}

func TestTickClosesAtTakeProfit(t *testing.T) {
	st := state.New()
	require.True(t, st.OpenPosition(position()))

	books := fakeBooks{snaps: map[string]domain.BookSnapshot{
		"tok1": {Bids: []domain.PriceLevel{{Price: 0.46, Size: 100}}, Asks: []domain.PriceLevel{}},
	}}
	rec := &tradeRecorder{}
	m := newMonitor(st, books, rec)

	m.Tick(context.Background())

	require.Len(t, rec.trades, 1)
	trade := rec.trades[0]
	assert.Equal(t, domain.CloseTakeProfit, trade.Reason)
	assert.Equal(t, "paper", trade.Mode)
	assert.InDelta(t, 0.46, trade.ExitPrice, 1e-9)
	// 10 USD filled at 0.46 is ~21.74 shares; entry cost 0.40 per share.
	assert.InDelta(t, 10.0/0.46, trade.Shares, 1e-9)
	assert.InDelta(t, 10.0-0.40*(10.0/0.46), trade.PnLUSD, 1e-9)
	assert.False(t, st.HasPosition("tok1"))
}

func TestTickSkipsWhenBidBelowTakeProfit(t *testing.T) {
	st := state.New()
	require.True(t, st.OpenPosition(position()))

	books := fakeBooks{snaps: map[string]domain.BookSnapshot{
		"tok1": {Bids: []domain.PriceLevel{{Price: 0.44, Size: 100}}, Asks: []domain.PriceLevel{}},
	}}
	rec := &tradeRecorder{}
	m := newMonitor(st, books, rec)

	m.Tick(context.Background())
	assert.Empty(t, rec.trades)
	assert.True(t, st.HasPosition("tok1"))
}

func TestTickSkipsOnMissingBook(t *testing.T) {
	st := state.New()
	require.True(t, st.OpenPosition(position()))

	m := newMonitor(st, fakeBooks{}, &tradeRecorder{})
	m.Tick(context.Background())
	assert.True(t, st.HasPosition("tok1"))
}

func TestTickPartialFillStillClosesFully(t *testing.T) {
	st := state.New()
	require.True(t, st.OpenPosition(position()))

	// Only 2.30 USD of bids at/above TP: far below the 10 USD target.
	books := fakeBooks{snaps: map[string]domain.BookSnapshot{
		"tok1": {Bids: []domain.PriceLevel{{Price: 0.46, Size: 5}}, Asks: []domain.PriceLevel{}},
	}}
	rec := &tradeRecorder{}
	m := newMonitor(st, books, rec)

	m.Tick(context.Background())
	require.Len(t, rec.trades, 1)
	assert.InDelta(t, 5.0, rec.trades[0].Shares, 1e-9)
	assert.False(t, st.HasPosition("tok1"))
}

func TestTakeProfitCappedBelowOne(t *testing.T) {
	st := state.New()
	pos := position()
	pos.EntryPrice = 0.98
	require.True(t, st.OpenPosition(pos))

	books := fakeBooks{snaps: map[string]domain.BookSnapshot{
		"tok1": {Bids: []domain.PriceLevel{{Price: 0.999, Size: 100}}, Asks: []domain.PriceLevel{}},
	}}
	rec := &tradeRecorder{}
	m := newMonitor(st, books, rec)

	m.Tick(context.Background())
	require.Len(t, rec.trades, 1)
	assert.InDelta(t, 0.999, rec.trades[0].ExitPrice, 1e-9)
}
