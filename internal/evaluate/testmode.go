package evaluate

import (
	"strconv"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// syntheticSourceEvent fabricates a source event whose odds are set just
// below fair value against the market's own prices, so the arbitrage trigger
// is guaranteed to fire. Used only in test mode to validate the full
// evaluate-and-execute path against live market data.
func (e *Evaluator) syntheticSourceEvent(ev domain.MarketEvent) (domain.SportsEvent, bool) {
	market := e.matcher.FindMoneylineMarket(ev)
	if market == nil {
		return domain.SportsEvent{}, false
	}

	outcomes := domain.DecodeStringArray(market.Outcomes)
	prices := domain.DecodeStringArray(market.Prices)
	if len(prices) == 0 {
		prices = domain.DecodeStringArray(market.OutcomePrices)
	}
	if len(outcomes) < 2 || len(prices) < 2 {
		return domain.SportsEvent{}, false
	}

	targetOutcome := ""
	targetPrice := 0.0
	for i, raw := range prices {
		if i >= len(outcomes) {
			break
		}
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if p >= 0.001 && p <= 0.999 {
			targetOutcome = outcomes[i]
			targetPrice = p
			break
		}
	}
	if targetOutcome == "" {
		return domain.SportsEvent{}, false
	}

	testOdd := (1 / targetPrice) / 1.15
	if testOdd < 1.01 {
		testOdd = 1.01
	}
	homeName := outcomes[0]
	awayName := outcomes[1]
	win1, win2 := 15.0, 15.0
	switch targetOutcome {
	case homeName:
		win1 = testOdd
	case awayName:
		win2 = testOdd
	}

	league := "Test League"
	if len(ev.Series) > 0 && ev.Series[0].Title != "" {
		league = ev.Series[0].Title
	}

	return domain.SportsEvent{
		MatchID:    "test_" + ev.ID,
		LeagueName: league,
		HomeName:   homeName,
		AwayName:   awayName,
		Match:      homeName + " vs " + awayName,
		IsLive:     true,
		Periods: []domain.Period{{
			Win1x2: &domain.Win1x2{
				Win1:    &domain.OddsValue{Value: win1},
				Win2:    &domain.OddsValue{Value: win2},
				WinNone: &domain.OddsValue{Value: 15.0},
			},
		}},
	}, true
}
