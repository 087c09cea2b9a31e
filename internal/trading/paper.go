package trading

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/liquidity"
	"github.com/alanyoungcy/oddsarb/internal/state"
)

// MonitorConfig sets the paper monitor's exit policy.
type MonitorConfig struct {
	TakeProfitAbs float64
	Interval      time.Duration
}

// Monitor walks open paper positions looking for a take-profit exit. Closing
// is all-or-nothing per tick: a partial fill below the target notional still
// fully closes the position at the realized shares and PnL.
type Monitor struct {
	state  *state.State
	books  domain.BookSource
	trades domain.PaperTradeLog
	cfg    MonitorConfig
	logger *slog.Logger
}

func NewMonitor(st *state.State, books domain.BookSource, trades domain.PaperTradeLog, cfg MonitorConfig, logger *slog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	return &Monitor{
		state:  st,
		books:  books,
		trades: trades,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "paper_monitor")),
	}
}

// Run ticks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick evaluates each open position once. A missing book skips the position
// for this tick only.
func (m *Monitor) Tick(ctx context.Context) {
	for _, pos := range m.state.Positions() {
		book, err := m.books.GetBook(ctx, pos.TokenID)
		if err != nil {
			continue
		}

		tpPrice := pos.EntryPrice + m.cfg.TakeProfitAbs
		if tpPrice > 0.999 {
			tpPrice = 0.999
		}
		bestBid, ok := liquidity.BestBid(book)
		if !ok || bestBid < tpPrice {
			continue
		}

		est := liquidity.EstimateBidFill(book, tpPrice, pos.TargetUSD)
		if est.FilledUSD <= 0 || est.FilledShares <= 0 || est.WAvgPrice <= 0 {
			continue
		}

		pnl := est.FilledUSD - pos.EntryPrice*est.FilledShares
		trade := domain.ClosedTrade{
			EntryTime:  pos.EntryTime,
			ExitTime:   time.Now().UTC(),
			MatchKey:   pos.MatchKey,
			OutcomeKey: pos.OutcomeKey,
			MarketID:   pos.MarketID,
			TokenID:    pos.TokenID,
			EntryPrice: pos.EntryPrice,
			ExitPrice:  est.WAvgPrice,
			Shares:     est.FilledShares,
			PnLUSD:     pnl,
			Reason:     domain.CloseTakeProfit,
			Mode:       "paper",
		}
		if err := m.trades.Append(trade); err != nil {
			m.logger.Error("paper trade log append failed",
				slog.String("token_id", pos.TokenID),
				slog.String("error", err.Error()),
			)
		}
		m.state.ClosePosition(pos.TokenID)
		m.logger.Info("paper position closed",
			slog.String("token_id", pos.TokenID),
			slog.Float64("exit_price", est.WAvgPrice),
			slog.Float64("pnl_usd", pnl),
		)
	}
}
