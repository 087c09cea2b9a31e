package trading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/state"
)

// minSizeMarker is the venue's error-message fragment for orders below the
// minimum size. There is no structured rejection code on the wire.
const minSizeMarker = "lower than the minimum"

// OrderPlacer submits a buy order to the venue and returns the raw response
// body for audit.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, tokenID string, price, sizeShares float64) (string, error)
}

// TradeAuditRecord is the full audit payload for one attempt: the trade plus
// the feed history surrounding it.
type TradeAuditRecord struct {
	Intent          domain.TradeIntent  `json:"trade_details"`
	Status          domain.TradeStatus  `json:"trade_status"`
	Response        string              `json:"api_response,omitempty"`
	Error           string              `json:"trade_error,omitempty"`
	PreTradeWindow  []domain.FeedSample `json:"pre_trade_window_60s"`
	PostTradeWindow []domain.FeedSample `json:"post_trade_window_120s"`
}

// TradeAuditor persists completed audit records.
type TradeAuditor interface {
	SaveTradeRecord(rec TradeAuditRecord) error
}

// Notifier pushes trade outcomes to operator channels. Implementations must
// not block the trading path for long.
type Notifier interface {
	NotifyTrade(ctx context.Context, result domain.TradeResult)
}

// GatewayConfig sets the gateway's execution policy.
type GatewayConfig struct {
	SellMode   string // paper, live, or both
	AuditDelay time.Duration
	PreWindow  time.Duration
}

// Gateway commits trade intents: it registers paper positions, places live
// orders, advances cooldown state, and schedules the deferred audit snapshot.
type Gateway struct {
	placer   OrderPlacer
	cooldown *Cooldown
	state    *state.State
	auditor  TradeAuditor
	notifier Notifier
	cfg      GatewayConfig
	logger   *slog.Logger
	tasks    taskGroup
}

func NewGateway(
	placer OrderPlacer,
	cooldown *Cooldown,
	st *state.State,
	auditor TradeAuditor,
	notifier Notifier,
	cfg GatewayConfig,
	logger *slog.Logger,
) *Gateway {
	if cfg.AuditDelay <= 0 {
		cfg.AuditDelay = 120 * time.Second
	}
	if cfg.PreWindow <= 0 {
		cfg.PreWindow = 60 * time.Second
	}
	return &Gateway{
		placer:   placer,
		cooldown: cooldown,
		state:    st,
		auditor:  auditor,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "execution_gateway")),
	}
}

// Attempt executes one trade intent. A venue rejection for minimum order size
// is reclassified as SKIPPED_MIN_SIZE: no capital moved, but retrying at the
// same price would hit the same limit, so it still advances cooldown state
// and gets an audit snapshot. True failures record nothing.
func (g *Gateway) Attempt(ctx context.Context, intent domain.TradeIntent) domain.TradeResult {
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	if intent.Timestamp.IsZero() {
		intent.Timestamp = time.Now().UTC()
	}

	if intent.TargetPrice <= 0 || intent.TargetPrice >= 1 {
		err := fmt.Errorf("trading: %w: price %.4f outside (0,1)", domain.ErrInvalidPrice, intent.TargetPrice)
		g.logger.Error("rejecting trade intent", slog.String("error", err.Error()))
		return domain.TradeResult{Intent: intent, Status: domain.TradeFailure, Err: err}
	}
	if intent.SizeShares <= 0 {
		intent.SizeShares = intent.BetUSD / intent.TargetPrice
	}

	g.logger.Info("attempting trade",
		slog.String("id", intent.ID),
		slog.String("match", intent.MatchTitle),
		slog.String("outcome", intent.OutcomeName),
		slog.Float64("price", intent.TargetPrice),
		slog.Float64("shares", intent.SizeShares),
	)

	if paperMode(g.cfg.SellMode) && intent.TokenID != "" {
		opened := g.state.OpenPosition(domain.PaperPosition{
			TokenID:    intent.TokenID,
			MarketID:   intent.MarketID,
			MatchKey:   intent.MatchTitle,
			OutcomeKey: intent.OutcomeName,
			EntryPrice: intent.TargetPrice,
			EntryTime:  intent.Timestamp,
			TargetUSD:  intent.BetUSD,
			Shares:     intent.SizeShares,
		})
		if opened {
			g.logger.Info("paper position opened", slog.String("token_id", intent.TokenID))
		}
		if g.cfg.SellMode == "paper" {
			return domain.TradeResult{Intent: intent, Status: domain.TradeSuccess, Response: "paper"}
		}
	}

	result := domain.TradeResult{Intent: intent}
	resp, err := g.placer.PlaceOrder(ctx, intent.TokenID, intent.TargetPrice, intent.SizeShares)
	switch {
	case err == nil:
		result.Status = domain.TradeSuccess
		result.Response = resp
		g.logger.Info("order posted", slog.String("id", intent.ID))
	case strings.Contains(strings.ToLower(err.Error()), minSizeMarker):
		result.Status = domain.TradeSkippedMinSize
		result.Err = err
		g.logger.Warn("order below venue minimum size, marking skipped",
			slog.String("id", intent.ID))
	default:
		result.Status = domain.TradeFailure
		result.Err = err
		g.logger.Error("order placement failed",
			slog.String("id", intent.ID),
			slog.String("error", err.Error()),
		)
	}

	if result.Status.CooldownEligible() {
		g.cooldown.Append(intent.CooldownKey(), intent.TargetPrice)
		g.scheduleAudit(ctx, result)
	}
	if g.notifier != nil {
		g.notifier.NotifyTrade(ctx, result)
	}
	return result
}

// scheduleAudit captures the pre-trade feed window now and defers the record
// write until the post-trade window has elapsed. Shutdown flushes early with
// whatever post-trade history exists rather than dropping the record.
func (g *Gateway) scheduleAudit(ctx context.Context, result domain.TradeResult) {
	pre := g.samplesBetween(result.Intent.Timestamp.Add(-g.cfg.PreWindow), result.Intent.Timestamp, true)
	g.tasks.Go(func() {
		t := time.NewTimer(g.cfg.AuditDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}

		rec := TradeAuditRecord{
			Intent:         result.Intent,
			Status:         result.Status,
			Response:       result.Response,
			PreTradeWindow: pre,
			PostTradeWindow: g.samplesBetween(
				result.Intent.Timestamp,
				result.Intent.Timestamp.Add(g.cfg.AuditDelay),
				false,
			),
		}
		if result.Err != nil {
			rec.Error = result.Err.Error()
		}
		if err := g.auditor.SaveTradeRecord(rec); err != nil {
			g.logger.Error("trade audit record save failed",
				slog.String("id", result.Intent.ID),
				slog.String("error", err.Error()),
			)
			return
		}
		g.logger.Info("trade audit record saved", slog.String("id", result.Intent.ID))
	})
}

// samplesBetween merges both feed histories and keeps samples inside
// (from, to], or [from, to] when fromInclusive is set.
func (g *Gateway) samplesBetween(from, to time.Time, fromInclusive bool) []domain.FeedSample {
	var out []domain.FeedSample
	all := append(g.state.SportsHistory(), g.state.MarketHistory()...)
	for _, s := range all {
		afterFrom := s.Timestamp.After(from) || (fromInclusive && s.Timestamp.Equal(from))
		if afterFrom && !s.Timestamp.After(to) {
			out = append(out, s)
		}
	}
	return out
}

// Wait blocks until every deferred audit task has finished. Called during
// shutdown after the root context is cancelled.
func (g *Gateway) Wait() {
	g.tasks.Wait()
}

func paperMode(sellMode string) bool {
	return sellMode == "paper" || sellMode == "both"
}
