package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

const insertTimeout = 5 * time.Second

var _ domain.OpportunityLog = (*OpportunityStore)(nil)

// OpportunityStore mirrors opportunity records into the opportunities table.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

func (s *OpportunityStore) Append(rec domain.OpportunityRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	const q = `
		INSERT INTO opportunities (
			ts, match_key, outcome_key, source_odds, target_price, target_odds,
			ratio, edge_pct, liquidity, trigger_type, reason, market_id,
			token_id, avail_shares_at_th, avail_usd_at_th, wavg_price_at_th
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

	_, err := s.pool.Exec(ctx, q,
		rec.Timestamp.UTC(),
		rec.MatchKey,
		rec.OutcomeKey,
		rec.SourceOdds,
		rec.TargetPrice,
		rec.TargetOdds,
		rec.Ratio,
		rec.EdgePct,
		rec.Liquidity,
		string(rec.TriggerType),
		rec.Reason,
		rec.MarketID,
		rec.TokenID,
		rec.AvailSharesAtTh,
		rec.AvailUSDAtTh,
		rec.WAvgPriceAtTh,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity: %w", err)
	}
	return nil
}

// RecentTriggers returns the most recent arbitrage-triggered records, newest
// first, for the approval/review surfaces.
func (s *OpportunityStore) RecentTriggers(ctx context.Context, limit int) ([]domain.OpportunityRecord, error) {
	const q = `
		SELECT ts, match_key, outcome_key, source_odds, target_price, target_odds,
		       ratio, edge_pct, liquidity, trigger_type, reason, market_id,
		       token_id, avail_shares_at_th, avail_usd_at_th, wavg_price_at_th
		FROM opportunities
		WHERE trigger_type = $1
		ORDER BY ts DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, q, string(domain.TriggerArbitrage), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query triggers: %w", err)
	}
	defer rows.Close()

	var out []domain.OpportunityRecord
	for rows.Next() {
		var rec domain.OpportunityRecord
		var trigger string
		err := rows.Scan(
			&rec.Timestamp, &rec.MatchKey, &rec.OutcomeKey, &rec.SourceOdds,
			&rec.TargetPrice, &rec.TargetOdds, &rec.Ratio, &rec.EdgePct,
			&rec.Liquidity, &trigger, &rec.Reason, &rec.MarketID,
			&rec.TokenID, &rec.AvailSharesAtTh, &rec.AvailUSDAtTh, &rec.WAvgPriceAtTh,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		rec.TriggerType = domain.TriggerType(trigger)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return out, nil
}
