// Package evaluate implements the per-tick opportunity evaluation loop and
// the change-suppressed opportunity log feeding the audit sinks.
package evaluate

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// ChangeLog forwards opportunity records to a sink only when they carry new
// information. Per (match, outcome) key it retains the last emitted ratio and
// raw prices; a record passes when it is the first for its key, the ratio
// moved by at least minRatioDelta, the raw prices changed, or the ratio
// crossed the arbitrage threshold upward. The cross always passes regardless
// of the delta test so the crossing moment is never lost to suppression.
// Trigger classification grants no exemption: a persisting arbitrage whose
// values do not move is one row, not one row per tick.
type ChangeLog struct {
	sink     domain.OpportunityLog
	arbRatio float64
	logger   *slog.Logger

	mu   sync.Mutex
	last map[changeKey]lastEmit
}

const minRatioDelta = 0.01

type changeKey struct {
	matchKey   string
	outcomeKey string
}

type lastEmit struct {
	ratio       float64
	sourceOdds  float64
	targetPrice float64
}

func NewChangeLog(sink domain.OpportunityLog, arbRatio float64, logger *slog.Logger) *ChangeLog {
	return &ChangeLog{
		sink:     sink,
		arbRatio: arbRatio,
		logger:   logger.With(slog.String("component", "opportunity_log")),
		last:     make(map[changeKey]lastEmit),
	}
}

// Record applies the suppression policy and appends passing records to the
// sink. The record's Reason is replaced with the change reason when a delta
// test, not the caller, decided the emission.
func (l *ChangeLog) Record(rec domain.OpportunityRecord) {
	key := changeKey{matchKey: rec.MatchKey, outcomeKey: rec.OutcomeKey}

	l.mu.Lock()
	prev, seen := l.last[key]

	emit := !seen
	reason := rec.Reason
	if seen {
		switch {
		case abs(rec.Ratio-prev.ratio) >= minRatioDelta:
			emit = true
			reason = fmt.Sprintf("ratio_delta=%.4f", rec.Ratio-prev.ratio)
		case rec.SourceOdds != prev.sourceOdds || rec.TargetPrice != prev.targetPrice:
			emit = true
			reason = "price_change"
		}
		if prev.ratio < l.arbRatio && l.arbRatio <= rec.Ratio {
			emit = true
			reason = fmt.Sprintf("cross_up_%.2f", l.arbRatio)
		}
	}
	if !emit {
		l.mu.Unlock()
		return
	}
	l.last[key] = lastEmit{ratio: rec.Ratio, sourceOdds: rec.SourceOdds, targetPrice: rec.TargetPrice}
	l.mu.Unlock()

	rec.Reason = reason
	if err := l.sink.Append(rec); err != nil {
		l.logger.Error("opportunity sink append failed",
			slog.String("match_key", rec.MatchKey),
			slog.String("outcome_key", rec.OutcomeKey),
			slog.String("error", err.Error()),
		)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
