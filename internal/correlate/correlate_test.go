package correlate

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

func testMatcher() *Matcher {
	return NewMatcher(DefaultThresholds(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTokenSortScorerOrderIndependent(t *testing.T) {
	s := TokenSortScorer{}
	assert.Equal(t, 100, s.Score("real madrid vs barcelona", "barcelona vs real madrid"))
}

func TestPartialScorerContainment(t *testing.T) {
	s := PartialScorer{}
	assert.Equal(t, 100, s.Score("arsenal", "arsenal fc to win"))
	assert.Less(t, s.Score("arsenal", "tottenham hotspur"), 50)
}

func TestFindEventMatch(t *testing.T) {
	m := testMatcher()
	events := []domain.MarketEvent{
		{ID: "1", Title: "Lakers vs Celtics"},
		{ID: "2", Title: "Celtics vs. Lakers"},
		{ID: "3", Title: "Yankees vs Red Sox"},
	}

	best, score := m.FindEventMatch("Lakers vs Celtics", events)
	require.NotNil(t, best)
	assert.Equal(t, "1", best.ID) // first-seen maximum wins ties
	assert.GreaterOrEqual(t, score, 70)
}

func TestFindEventMatchBelowThreshold(t *testing.T) {
	m := testMatcher()
	events := []domain.MarketEvent{{ID: "1", Title: "completely unrelated market"}}
	best, _ := m.FindEventMatch("Lakers vs Celtics", events)
	assert.Nil(t, best)
}

func TestFindMoneylineMarketExplicitTag(t *testing.T) {
	m := testMatcher()
	ev := domain.MarketEvent{
		Title: "Lakers vs Celtics",
		Markets: []domain.Market{
			{ID: "a", Question: "Will the Lakers win?"},
			{ID: "b", SportsMarketType: "moneyline", Question: "Lakers vs Celtics"},
		},
	}
	got := m.FindMoneylineMarket(ev)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.ID)
}

func TestFindMoneylineMarketFuzzyStrict(t *testing.T) {
	m := testMatcher()
	ev := domain.MarketEvent{
		Title: "Lakers vs Celtics",
		Markets: []domain.Market{
			// Exact question match with 2 outcomes passes the >95 gate.
			{ID: "a", Question: "Lakers vs Celtics", Outcomes: `["Lakers","Celtics"]`},
		},
	}
	got := m.FindMoneylineMarket(ev)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ID)

	// A loosely similar question must not pass.
	ev.Markets[0].Question = "Lakers versus the Boston Celtics game"
	assert.Nil(t, m.FindMoneylineMarket(ev))
}

func TestMatchOutcome(t *testing.T) {
	m := testMatcher()
	src := []domain.OutcomeOdds{
		{Name: "Arsenal", Price: 2.0},
		{Name: "Chelsea", Price: 3.5},
		{Name: "Draw", Price: 3.2},
	}
	got := m.MatchOutcome(src, "Arsenal FC")
	require.NotNil(t, got)
	assert.Equal(t, "Arsenal", got.Name)

	assert.Nil(t, m.MatchOutcome(src, "Tottenham"))
}

func TestBuildMoneylineFromBinaries(t *testing.T) {
	m := testMatcher()
	ev := domain.MarketEvent{
		Markets: []domain.Market{
			{
				ID: "h", Question: "Will Arsenal win the match?", Active: true,
				OutcomePrices: `["0.45","0.55"]`, ClobTokenIDs: `["tok-h","tok-h-no"]`,
				LiquidityNum: 1200,
			},
			{
				ID: "d", Question: "Will the match end in a draw?", Active: true,
				OutcomePrices: `["0.30","0.70"]`, ClobTokenIDs: `["tok-d","tok-d-no"]`,
			},
			{
				ID: "a", Question: "Will Chelsea win the match?", Active: true,
				OutcomePrices: `["0.25","0.75"]`, ClobTokenIDs: `["tok-a","tok-a-no"]`,
			},
			{
				// Closed markets are skipped.
				ID: "x", Question: "Will Arsenal win the first half?", Active: true, Closed: true,
				OutcomePrices: `["0.50","0.50"]`,
			},
		},
	}

	legs := m.BuildMoneylineFromBinaries(ev, "Arsenal", "Chelsea")
	require.Len(t, legs, 3)
	assert.InDelta(t, 0.45, legs["home"].PYes, 1e-9)
	assert.Equal(t, "tok-h", legs["home"].TokenID)
	assert.InDelta(t, 1200.0, legs["home"].Liquidity, 1e-9)
	assert.InDelta(t, 0.30, legs["draw"].PYes, 1e-9)
	assert.Equal(t, "a", legs["away"].Market.ID)
}

func TestBuildMoneylineRejectsExtremePrices(t *testing.T) {
	m := testMatcher()
	ev := domain.MarketEvent{
		Markets: []domain.Market{
			{ID: "h", Question: "Will Arsenal win?", Active: true, OutcomePrices: `["0.9995","0.0005"]`},
		},
	}
	legs := m.BuildMoneylineFromBinaries(ev, "Arsenal", "Chelsea")
	assert.Empty(t, legs)
}

func TestGroupItemTitleEquality(t *testing.T) {
	m := testMatcher()
	ev := domain.MarketEvent{
		Markets: []domain.Market{
			{ID: "h", Question: "Match winner?", GroupItemTitle: "Arsenal", Active: true,
				OutcomePrices: `["0.45","0.55"]`},
		},
	}
	legs := m.BuildMoneylineFromBinaries(ev, "Arsenal", "Chelsea")
	require.Contains(t, legs, "home")
	assert.Equal(t, "h", legs["home"].Market.ID)
}
