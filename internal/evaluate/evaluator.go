package evaluate

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/correlate"
	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/liquidity"
	"github.com/alanyoungcy/oddsarb/internal/state"
)

// Approver gates trading on human-confirmed event correlations.
type Approver interface {
	IsApproved(c domain.MatchCandidate) bool
}

// CooldownGate reports whether a new attempt under the key is allowed at the
// current price.
type CooldownGate interface {
	Allow(key string, currentPrice float64) bool
}

// Executor commits a fully-populated trade intent.
type Executor interface {
	Attempt(ctx context.Context, intent domain.TradeIntent) domain.TradeResult
}

// Settings are the evaluator's trigger parameters.
type Settings struct {
	BetUSD   float64
	ArbRatio float64
	Interval time.Duration
	TestMode bool
}

// Evaluator runs the per-tick comparison of sports odds against prediction
// market prices and fires the execution gateway on qualifying spreads.
type Evaluator struct {
	state    *state.State
	matcher  *correlate.Matcher
	approver Approver
	books    domain.BookSource
	changes  *ChangeLog
	cooldown CooldownGate
	executor Executor
	settings Settings
	logger   *slog.Logger
}

func New(
	st *state.State,
	matcher *correlate.Matcher,
	approver Approver,
	books domain.BookSource,
	changes *ChangeLog,
	cooldown CooldownGate,
	executor Executor,
	settings Settings,
	logger *slog.Logger,
) *Evaluator {
	if settings.Interval <= 0 {
		settings.Interval = 2 * time.Second
	}
	return &Evaluator{
		state:    st,
		matcher:  matcher,
		approver: approver,
		books:    books,
		changes:  changes,
		cooldown: cooldown,
		executor: executor,
		settings: settings,
		logger:   logger.With(slog.String("component", "evaluator")),
	}
}

// Run ticks until the context is cancelled.
func (e *Evaluator) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.settings.Interval)
	defer ticker.Stop()
	for {
		e.Tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick evaluates every sports event against the latest market poll. Outcomes
// are processed in iteration order within the tick; any missing odds, price,
// or identifier skips that outcome only.
func (e *Evaluator) Tick(ctx context.Context) {
	sports := e.state.SportsEvents()
	markets := e.state.MarketEvents()

	if e.settings.TestMode && len(markets) > 0 {
		e.logger.Warn("test mode active: injecting synthetic source event")
		for i := range markets {
			if ev, ok := e.syntheticSourceEvent(markets[i]); ok {
				sports = append(sports, ev)
				break
			}
		}
	}

	e.logger.Info("evaluator tick",
		slog.Int("source_events", len(sports)),
		slog.Int("target_events", len(markets)),
	)

	for _, src := range sports {
		title := src.Match
		if title == "" {
			continue
		}

		target, score := e.matcher.FindEventMatch(title, markets)
		if target == nil {
			continue
		}
		candidate := domain.MatchCandidate{
			SourceTitle: title,
			TargetTitle: target.Title,
			TargetID:    target.ID,
			Score:       score,
		}
		if !e.approver.IsApproved(candidate) {
			continue
		}
		e.logger.Info("match confirmed",
			slog.String("source", title),
			slog.String("target", target.Title),
			slog.Int("score", score),
		)

		odds := extractSourceOdds(src)
		if len(odds) == 0 {
			continue
		}

		if market := e.matcher.FindMoneylineMarket(*target); market != nil {
			e.processMoneylineMarket(ctx, src, title, odds, target, market)
		} else {
			e.processBinaryMarkets(ctx, src, title, odds, target)
		}
	}
}

// extractSourceOdds pulls home/away/draw decimal odds out of the first
// period's moneyline block. Non-positive odds are dropped.
func extractSourceOdds(ev domain.SportsEvent) []domain.OutcomeOdds {
	if len(ev.Periods) == 0 || ev.Periods[0].Win1x2 == nil {
		return nil
	}
	w := ev.Periods[0].Win1x2

	var out []domain.OutcomeOdds
	if ev.HomeName != "" && w.Win1 != nil && w.Win1.Value > 0 {
		out = append(out, domain.OutcomeOdds{Name: ev.HomeName, Price: w.Win1.Value})
	}
	if ev.AwayName != "" && w.Win2 != nil && w.Win2.Value > 0 {
		out = append(out, domain.OutcomeOdds{Name: ev.AwayName, Price: w.Win2.Value})
	}
	if w.WinNone != nil && w.WinNone.Value > 0 {
		out = append(out, domain.OutcomeOdds{Name: "Draw", Price: w.WinNone.Value})
	}
	return out
}

func (e *Evaluator) processMoneylineMarket(
	ctx context.Context,
	src domain.SportsEvent,
	title string,
	odds []domain.OutcomeOdds,
	target *domain.MarketEvent,
	market *domain.Market,
) {
	outcomes := domain.DecodeStringArray(market.Outcomes)
	prices := domain.DecodeStringArray(market.OutcomePrices)
	tokens := domain.DecodeStringArray(market.ClobTokenIDs)

	for idx, outcomeName := range outcomes {
		srcOutcome := e.matcher.MatchOutcome(odds, outcomeName)
		if srcOutcome == nil || idx >= len(prices) {
			continue
		}
		price, err := strconv.ParseFloat(prices[idx], 64)
		if err != nil {
			continue
		}
		tokenID := ""
		if idx < len(tokens) {
			tokenID = tokens[idx]
		} else if len(tokens) > 0 {
			e.logger.Warn("token id count does not match outcomes, skipping outcome",
				slog.String("market_id", market.ID),
				slog.String("outcome", outcomeName),
			)
			continue
		}
		e.evaluateOutcome(ctx, evalInput{
			src:         src,
			matchKey:    title,
			targetID:    target.ID,
			outcomeKey:  outcomeName,
			sourceOdds:  srcOutcome.Price,
			targetPrice: price,
			tokenID:     tokenID,
			liquidity:   market.LiquidityNum,
			marketID:    market.ID,
		})
	}
}

func (e *Evaluator) processBinaryMarkets(
	ctx context.Context,
	src domain.SportsEvent,
	title string,
	odds []domain.OutcomeOdds,
	target *domain.MarketEvent,
) {
	if src.HomeName == "" || src.AwayName == "" {
		return
	}
	legs := e.matcher.BuildMoneylineFromBinaries(*target, src.HomeName, src.AwayName)

	for _, m := range []struct {
		key   string
		label string
	}{
		{key: "home", label: src.HomeName},
		{key: "draw", label: "Draw"},
		{key: "away", label: src.AwayName},
	} {
		leg, ok := legs[m.key]
		if !ok {
			continue
		}
		srcOutcome := findOutcome(odds, m.label)
		if srcOutcome == nil {
			continue
		}
		e.evaluateOutcome(ctx, evalInput{
			src:         src,
			matchKey:    title,
			targetID:    target.ID,
			outcomeKey:  m.label,
			sourceOdds:  srcOutcome.Price,
			targetPrice: leg.PYes,
			tokenID:     leg.TokenID,
			liquidity:   leg.Liquidity,
			marketID:    leg.Market.ID,
		})
	}
}

func findOutcome(odds []domain.OutcomeOdds, name string) *domain.OutcomeOdds {
	for i := range odds {
		if odds[i].Name == name {
			return &odds[i]
		}
	}
	return nil
}

type evalInput struct {
	src         domain.SportsEvent
	matchKey    string
	targetID    string
	outcomeKey  string
	sourceOdds  float64
	targetPrice float64
	tokenID     string
	liquidity   float64
	marketID    string
}

// evaluateOutcome prices one (match, outcome) pair, records it through the
// change log, and fires the executor when every trigger gate passes.
func (e *Evaluator) evaluateOutcome(ctx context.Context, in evalInput) {
	if in.sourceOdds <= 0 || in.targetPrice <= 0 || in.targetPrice >= 1 {
		return
	}
	targetOdds := 1 / in.targetPrice
	ratio := targetOdds / in.sourceOdds
	edgePct := (ratio - 1) * 100

	// Depth at the price where the ratio would equal exactly the trigger.
	thresholdPrice := 1 / (in.sourceOdds * e.settings.ArbRatio)
	var availShares, availUSD, wavgPrice *float64
	if in.tokenID != "" {
		zero := 0.0
		availShares, availUSD = &zero, &zero
		if book, err := e.books.GetBook(ctx, in.tokenID); err == nil {
			sum := liquidity.SummarizeAsksToPrice(book, thresholdPrice)
			availShares, availUSD, wavgPrice = &sum.Shares, &sum.USD, &sum.WAvgPrice
		}
	}

	rec := domain.OpportunityRecord{
		Timestamp:       time.Now().UTC(),
		MatchKey:        in.matchKey,
		OutcomeKey:      in.outcomeKey,
		SourceOdds:      in.sourceOdds,
		TargetPrice:     in.targetPrice,
		TargetOdds:      targetOdds,
		Ratio:           ratio,
		EdgePct:         edgePct,
		Liquidity:       in.liquidity,
		TriggerType:     domain.TriggerInfo,
		Reason:          "scan",
		MarketID:        in.marketID,
		TokenID:         in.tokenID,
		AvailSharesAtTh: availShares,
		AvailUSDAtTh:    availUSD,
		WAvgPriceAtTh:   wavgPrice,
	}
	e.changes.Record(rec)

	if ratio < e.settings.ArbRatio || in.targetPrice < 0.001 || in.targetPrice > 0.999 {
		return
	}

	intent := domain.TradeIntent{
		ID:            "",
		Timestamp:     time.Now().UTC(),
		SourceMatchID: in.src.MatchID,
		TargetEventID: in.targetID,
		MarketID:      in.marketID,
		TokenID:       in.tokenID,
		MatchTitle:    in.matchKey,
		OutcomeName:   in.outcomeKey,
		SourceOdds:    in.sourceOdds,
		TargetPrice:   in.targetPrice,
		TargetOdds:    targetOdds,
		Liquidity:     in.liquidity,
		BetUSD:        e.settings.BetUSD,
		SizeShares:    e.settings.BetUSD / in.targetPrice,
	}
	if !e.cooldown.Allow(intent.CooldownKey(), in.targetPrice) {
		e.logger.Debug("cooldown active, skipping trigger",
			slog.String("key", intent.CooldownKey()))
		return
	}
	if in.liquidity < e.settings.BetUSD {
		e.logger.Warn("declared liquidity below bet size, skipping",
			slog.String("outcome", in.outcomeKey),
			slog.Float64("liquidity", in.liquidity),
			slog.Float64("bet_usd", e.settings.BetUSD),
		)
		return
	}
	if availUSD != nil && *availUSD < e.settings.BetUSD {
		e.logger.Warn("depth at threshold below bet size, skipping",
			slog.String("outcome", in.outcomeKey),
			slog.Float64("avail_usd", *availUSD),
			slog.Float64("bet_usd", e.settings.BetUSD),
		)
		return
	}

	arbRec := rec
	arbRec.TriggerType = domain.TriggerArbitrage
	arbRec.Reason = "threshold"
	e.changes.Record(arbRec)

	result := e.executor.Attempt(ctx, intent)
	e.logger.Info("trade attempt finished",
		slog.String("outcome", in.outcomeKey),
		slog.String("status", string(result.Status)),
	)
}
