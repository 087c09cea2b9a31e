package correlate

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// Thresholds are the minimum similarity scores for each matching layer. The
// market threshold is deliberately stricter than the event threshold:
// misidentifying the market inside a correctly-matched event is costlier than
// missing the event entirely.
type Thresholds struct {
	Event   int // accept event pair when score >= Event
	Outcome int // accept outcome mapping when score > Outcome
	Market  int // accept fuzzy market discovery when score > Market
}

// DefaultThresholds mirrors the tuned production values.
func DefaultThresholds() Thresholds {
	return Thresholds{Event: 70, Outcome: 80, Market: 95}
}

// Matcher correlates sports-feed events with Polymarket events and outcomes.
type Matcher struct {
	events     Scorer
	outcomes   Scorer
	markets    Scorer
	thresholds Thresholds
	logger     *slog.Logger
}

// NewMatcher builds a Matcher with the standard scorer per layer: token-sort
// for event titles, partial for outcome names, plain ratio for market
// questions.
func NewMatcher(thresholds Thresholds, logger *slog.Logger) *Matcher {
	return &Matcher{
		events:     TokenSortScorer{},
		outcomes:   PartialScorer{},
		markets:    RatioScorer{},
		thresholds: thresholds,
		logger:     logger.With(slog.String("component", "correlator")),
	}
}

// FindEventMatch returns the best-scoring target event for the source title,
// or nil when the best score is below the event threshold. Ties keep the
// first-seen maximum; under equal scores the result depends on the order of
// the events slice, a known nondeterminism boundary we do not paper over with
// an artificial sort.
func (m *Matcher) FindEventMatch(sourceTitle string, events []domain.MarketEvent) (*domain.MarketEvent, int) {
	if sourceTitle == "" {
		return nil, 0
	}
	normalized := Normalize(sourceTitle)
	bestScore := 0
	var best *domain.MarketEvent
	for i := range events {
		if events[i].Title == "" {
			continue
		}
		score := m.events.Score(normalized, Normalize(events[i].Title))
		if score > bestScore {
			bestScore = score
			best = &events[i]
		}
	}
	if best == nil || bestScore < m.thresholds.Event {
		return nil, bestScore
	}
	return best, bestScore
}

// FindMoneylineMarket locates the combined-outcome market inside an event.
// A market explicitly tagged as moneyline wins outright; otherwise the market
// whose question text best matches the event title is taken, but only above
// the strict market threshold and only when it carries 2 or 3 outcomes.
func (m *Matcher) FindMoneylineMarket(ev domain.MarketEvent) *domain.Market {
	for i := range ev.Markets {
		if ev.Markets[i].SportsMarketType == "moneyline" {
			return &ev.Markets[i]
		}
	}

	bestScore := 0
	var best *domain.Market
	title := Normalize(ev.Title)
	for i := range ev.Markets {
		n := len(domain.DecodeStringArray(ev.Markets[i].Outcomes))
		if n != 2 && n != 3 {
			continue
		}
		score := m.markets.Score(title, Normalize(ev.Markets[i].Question))
		if score > bestScore {
			bestScore = score
			best = &ev.Markets[i]
		}
	}
	if best != nil && bestScore > m.thresholds.Market {
		m.logger.Debug("fuzzy-identified moneyline market",
			slog.String("event", ev.Title),
			slog.Int("score", bestScore),
		)
		return best
	}
	return nil
}

// MatchOutcome maps a target outcome name back to the source outcome whose
// name it contains (or nearly contains). Returns nil when nothing clears the
// outcome threshold.
func (m *Matcher) MatchOutcome(sourceOdds []domain.OutcomeOdds, targetOutcome string) *domain.OutcomeOdds {
	if targetOutcome == "" {
		return nil
	}
	target := Normalize(targetOutcome)
	for i := range sourceOdds {
		name := Normalize(sourceOdds[i].Name)
		if name == "" {
			continue
		}
		if m.outcomes.Score(name, target) > m.thresholds.Outcome {
			return &sourceOdds[i]
		}
	}
	return nil
}

// BinaryLeg is one synthesized moneyline outcome assembled from an
// independent yes/no market.
type BinaryLeg struct {
	Market    *domain.Market
	PYes      float64
	TokenID   string
	Liquidity float64
}

// BuildMoneylineFromBinaries assembles home/draw/away legs from independent
// binary markets when the event has no combined moneyline market. Keys of the
// returned map are "home", "draw", "away"; absent keys mean no usable market
// was found for that outcome.
func (m *Matcher) BuildMoneylineFromBinaries(ev domain.MarketEvent, homeName, awayName string) map[string]BinaryLeg {
	results := make(map[string]BinaryLeg)
	homeL := strings.ToLower(homeName)
	awayL := strings.ToLower(awayName)

	for i := range ev.Markets {
		market := &ev.Markets[i]
		if !market.Active || market.Closed || !market.OrderBookEnabled() {
			continue
		}

		ql := strings.ToLower(market.Question)
		gil := strings.ToLower(market.GroupItemTitle)

		key := ""
		switch {
		case strings.Contains(ql, "draw") || strings.Contains(gil, "draw"):
			key = "draw"
		case homeL != "" && (strings.Contains(ql, homeL) || homeL == gil) && (strings.Contains(ql, "win") || homeL == gil):
			key = "home"
		case awayL != "" && (strings.Contains(ql, awayL) || awayL == gil) && (strings.Contains(ql, "win") || awayL == gil):
			key = "away"
		}
		if key == "" {
			continue
		}

		prices := domain.DecodeStringArray(market.OutcomePrices)
		if len(prices) == 0 {
			prices = domain.DecodeStringArray(market.Prices)
		}
		if len(prices) == 0 {
			continue
		}
		pYes, err := strconv.ParseFloat(prices[0], 64)
		if err != nil || pYes < 0.001 || pYes > 0.999 {
			continue
		}

		tokenID := ""
		if tokens := domain.DecodeStringArray(market.ClobTokenIDs); len(tokens) > 0 {
			tokenID = tokens[0]
		}

		results[key] = BinaryLeg{
			Market:    market,
			PYes:      pYes,
			TokenID:   tokenID,
			Liquidity: market.LiquidityNum,
		}
	}

	return results
}
