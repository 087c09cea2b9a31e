package state

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

func TestSportsEventsUpsert(t *testing.T) {
	s := New()
	s.UpsertSportsEvent(domain.SportsEvent{MatchID: "m1", HomeName: "A", AwayName: "B"})
	s.UpsertSportsEvent(domain.SportsEvent{MatchID: "m1", HomeName: "A2", AwayName: "B"})
	s.UpsertSportsEvent(domain.SportsEvent{MatchID: "m2", HomeName: "C", AwayName: "D"})

	events := s.SportsEvents()
	require.Len(t, events, 2)
	for _, ev := range events {
		if ev.MatchID == "m1" {
			assert.Equal(t, "A2", ev.HomeName)
		}
	}
}

func TestHistoryRingBounded(t *testing.T) {
	r := newRing(3)
	for i := 0; i < 5; i++ {
		r.push(domain.FeedSample{Source: strconv.Itoa(i)})
	}
	snap := r.snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "2", snap[0].Source)
	assert.Equal(t, "4", snap[2].Source)
}

func TestHistoryDepthEnforced(t *testing.T) {
	s := New()
	for i := 0; i < HistoryDepth+10; i++ {
		s.RecordSportsSample(domain.FeedSample{Timestamp: time.Now()})
	}
	assert.Len(t, s.SportsHistory(), HistoryDepth)
}

func TestPositionLifecycle(t *testing.T) {
	s := New()
	p := domain.PaperPosition{TokenID: "tok", EntryPrice: 0.4, Shares: 25}

	assert.True(t, s.OpenPosition(p))
	assert.False(t, s.OpenPosition(p)) // one open position per token
	assert.True(t, s.HasPosition("tok"))

	got, ok := s.ClosePosition("tok")
	require.True(t, ok)
	assert.Equal(t, 0.4, got.EntryPrice)
	assert.False(t, s.HasPosition("tok"))

	_, ok = s.ClosePosition("tok")
	assert.False(t, ok)
}

func TestReviewQueueNonBlocking(t *testing.T) {
	s := New()
	c := domain.MatchCandidate{SourceTitle: "a", TargetID: "1"}
	for i := 0; i < reviewQueueSize; i++ {
		require.True(t, s.EnqueueReview(c))
	}
	assert.False(t, s.EnqueueReview(c))
}
