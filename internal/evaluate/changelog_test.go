package evaluate

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

type recordingSink struct {
	recs []domain.OpportunityRecord
}

func (s *recordingSink) Append(rec domain.OpportunityRecord) error {
	s.recs = append(s.recs, rec)
	return nil
}

func newChangeLog(sink domain.OpportunityLog) *ChangeLog {
	return NewChangeLog(sink, 1.12, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func rec(ratio, sourceOdds, targetPrice float64) domain.OpportunityRecord {
	return domain.OpportunityRecord{
		MatchKey:    "Lakers vs Celtics",
		OutcomeKey:  "Lakers",
		SourceOdds:  sourceOdds,
		TargetPrice: targetPrice,
		Ratio:       ratio,
		TriggerType: domain.TriggerInfo,
		Reason:      "scan",
	}
}

func TestFirstRecordAlwaysEmits(t *testing.T) {
	sink := &recordingSink{}
	l := newChangeLog(sink)

	l.Record(rec(1.00, 2.0, 0.5))
	require.Len(t, sink.recs, 1)
	assert.Equal(t, "scan", sink.recs[0].Reason)
}

func TestSmallRatioDriftSuppressed(t *testing.T) {
	sink := &recordingSink{}
	l := newChangeLog(sink)

	l.Record(rec(1.00, 2.0, 0.5))
	l.Record(rec(1.00, 2.0, 0.5))
	l.Record(rec(1.005, 2.0, 0.5))
	require.Len(t, sink.recs, 1)

	// A full centipoint of ratio movement emits again.
	l.Record(rec(1.02, 2.0, 0.5))
	require.Len(t, sink.recs, 2)
	assert.Contains(t, sink.recs[1].Reason, "ratio_delta=")
}

func TestPriceChangeWithFlatRatioEmits(t *testing.T) {
	sink := &recordingSink{}
	l := newChangeLog(sink)

	l.Record(rec(1.00, 2.0, 0.5))
	// Both legs moved together: ratio flat, prices changed.
	l.Record(rec(1.00, 2.2, 0.4545))
	require.Len(t, sink.recs, 2)
	assert.Equal(t, "price_change", sink.recs[1].Reason)
}

func TestUpwardCrossAlwaysEmits(t *testing.T) {
	sink := &recordingSink{}
	l := newChangeLog(sink)

	l.Record(rec(1.115, 2.0, 0.5))
	// Delta 0.008 < 0.01, but the ratio crossed 1.12 going up.
	l.Record(rec(1.123, 2.0, 0.5))
	require.Len(t, sink.recs, 2)
	assert.Equal(t, "cross_up_1.12", sink.recs[1].Reason)

	// Downward re-cross with small delta is suppressed again.
	l.Record(rec(1.118, 2.0, 0.5))
	assert.Len(t, sink.recs, 2)
}

func TestSuppressionDoesNotAdvanceState(t *testing.T) {
	sink := &recordingSink{}
	l := newChangeLog(sink)

	l.Record(rec(1.00, 2.0, 0.5))
	// Each step below the delta alone, but cumulative drift past it must
	// eventually emit because suppressed records do not update the baseline.
	l.Record(rec(1.006, 2.0, 0.5))
	l.Record(rec(1.011, 2.0, 0.5))
	require.Len(t, sink.recs, 2)
}

func TestRepeatedArbitrageRecordsCollapse(t *testing.T) {
	sink := &recordingSink{}
	l := newChangeLog(sink)

	// A persisting arbitrage re-fires every tick with unchanged values; the
	// limiter must collapse the repeats to the first row.
	for i := 0; i < 5; i++ {
		arb := rec(1.25, 2.0, 0.4)
		arb.TriggerType = domain.TriggerArbitrage
		arb.Reason = "threshold"
		l.Record(arb)
	}

	require.Len(t, sink.recs, 1)
	assert.Equal(t, domain.TriggerArbitrage, sink.recs[0].TriggerType)
	assert.Equal(t, "threshold", sink.recs[0].Reason)
}

func TestArbitrageEmitsOnCrossNotOnRepeat(t *testing.T) {
	sink := &recordingSink{}
	l := newChangeLog(sink)

	l.Record(rec(1.115, 2.0, 0.5))
	require.Len(t, sink.recs, 1)

	// Crossing tick with a sub-delta move: the scan row is suppressed and
	// the trigger row carries the cross.
	arb := rec(1.123, 2.0, 0.5)
	arb.TriggerType = domain.TriggerArbitrage
	arb.Reason = "threshold"
	l.Record(arb)
	require.Len(t, sink.recs, 2)
	assert.Equal(t, domain.TriggerArbitrage, sink.recs[1].TriggerType)
	assert.Equal(t, "cross_up_1.12", sink.recs[1].Reason)

	// Same trigger again next tick: no new information, no new row.
	l.Record(arb)
	assert.Len(t, sink.recs, 2)
}

func TestKeysAreIndependent(t *testing.T) {
	sink := &recordingSink{}
	l := newChangeLog(sink)

	a := rec(1.00, 2.0, 0.5)
	b := rec(1.00, 2.0, 0.5)
	b.OutcomeKey = "Celtics"

	l.Record(a)
	l.Record(b)
	assert.Len(t, sink.recs, 2)
}
