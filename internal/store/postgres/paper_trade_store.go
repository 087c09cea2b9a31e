package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

var _ domain.PaperTradeLog = (*PaperTradeStore)(nil)

// PaperTradeStore mirrors closed paper trades into the paper_trades table.
type PaperTradeStore struct {
	pool *pgxpool.Pool
}

func NewPaperTradeStore(pool *pgxpool.Pool) *PaperTradeStore {
	return &PaperTradeStore{pool: pool}
}

func (s *PaperTradeStore) Append(trade domain.ClosedTrade) error {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	const q = `
		INSERT INTO paper_trades (
			entry_ts, exit_ts, match_key, outcome_key, market_id, token_id,
			entry_price, exit_price, shares, pnl_usd, reason, mode
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	_, err := s.pool.Exec(ctx, q,
		trade.EntryTime.UTC(),
		trade.ExitTime.UTC(),
		trade.MatchKey,
		trade.OutcomeKey,
		trade.MarketID,
		trade.TokenID,
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Shares,
		trade.PnLUSD,
		string(trade.Reason),
		trade.Mode,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert paper trade: %w", err)
	}
	return nil
}

// TotalPnL sums realised paper pnl, used by the status endpoint.
func (s *PaperTradeStore) TotalPnL(ctx context.Context) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(pnl_usd), 0) FROM paper_trades",
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum pnl: %w", err)
	}
	return total, nil
}
