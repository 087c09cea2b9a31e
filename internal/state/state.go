// Package state holds the mutable runtime state shared between the feed
// ingesters, the evaluator, the paper-trade monitor, and the approval UI.
// Everything is guarded by a single RWMutex; readers get copies, never views.
package state

import (
	"sync"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// HistoryDepth bounds the per-feed sample history kept for the periodic JSON
// snapshots.
const HistoryDepth = 500

// reviewQueueSize bounds the approval prompt backlog. The enqueue side drops
// rather than blocks when the reviewer is away.
const reviewQueueSize = 256

// State is the in-memory hub for live feed data and open paper positions.
type State struct {
	mu            sync.RWMutex
	sportsEvents  map[string]domain.SportsEvent
	marketEvents  []domain.MarketEvent
	sportsHistory *ring
	marketHistory *ring
	positions     map[string]domain.PaperPosition

	reviews chan domain.MatchCandidate
}

func New() *State {
	return &State{
		sportsEvents:  make(map[string]domain.SportsEvent),
		sportsHistory: newRing(HistoryDepth),
		marketHistory: newRing(HistoryDepth),
		positions:     make(map[string]domain.PaperPosition),
		reviews:       make(chan domain.MatchCandidate, reviewQueueSize),
	}
}

// UpsertSportsEvent stores or replaces the latest odds message for a match.
func (s *State) UpsertSportsEvent(ev domain.SportsEvent) {
	s.mu.Lock()
	s.sportsEvents[ev.MatchID] = ev
	s.mu.Unlock()
}

// SportsEvents returns a copy of the current sports-feed events.
func (s *State) SportsEvents() []domain.SportsEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SportsEvent, 0, len(s.sportsEvents))
	for _, ev := range s.sportsEvents {
		out = append(out, ev)
	}
	return out
}

// SetMarketEvents replaces the latest prediction-market poll result.
func (s *State) SetMarketEvents(events []domain.MarketEvent) {
	s.mu.Lock()
	s.marketEvents = events
	s.mu.Unlock()
}

// MarketEvents returns a copy of the latest poll result.
func (s *State) MarketEvents() []domain.MarketEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MarketEvent, len(s.marketEvents))
	copy(out, s.marketEvents)
	return out
}

// RecordSportsSample appends one raw sports-feed message to the bounded
// history ring.
func (s *State) RecordSportsSample(sample domain.FeedSample) {
	s.mu.Lock()
	s.sportsHistory.push(sample)
	s.mu.Unlock()
}

// RecordMarketSample appends one market poll summary to the bounded history
// ring.
func (s *State) RecordMarketSample(sample domain.FeedSample) {
	s.mu.Lock()
	s.marketHistory.push(sample)
	s.mu.Unlock()
}

// SportsHistory returns the retained sports samples, oldest first.
func (s *State) SportsHistory() []domain.FeedSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sportsHistory.snapshot()
}

// MarketHistory returns the retained market samples, oldest first.
func (s *State) MarketHistory() []domain.FeedSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marketHistory.snapshot()
}

// OpenPosition records a paper position keyed by its token. Returns false if
// a position for the token is already open.
func (s *State) OpenPosition(p domain.PaperPosition) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[p.TokenID]; ok {
		return false
	}
	s.positions[p.TokenID] = p
	return true
}

// HasPosition reports whether a paper position is open for the token.
func (s *State) HasPosition(tokenID string) bool {
	s.mu.RLock()
	_, ok := s.positions[tokenID]
	s.mu.RUnlock()
	return ok
}

// ClosePosition removes and returns the position for the token.
func (s *State) ClosePosition(tokenID string) (domain.PaperPosition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[tokenID]
	if ok {
		delete(s.positions, tokenID)
	}
	return p, ok
}

// Positions returns a copy of all open paper positions.
func (s *State) Positions() []domain.PaperPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PaperPosition, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out
}

// EnqueueReview offers a candidate to the approval prompt. Returns false when
// the queue is full; the candidate stays in the registry's pending set either
// way.
func (s *State) EnqueueReview(c domain.MatchCandidate) bool {
	select {
	case s.reviews <- c:
		return true
	default:
		return false
	}
}

// Reviews exposes the approval prompt queue.
func (s *State) Reviews() <-chan domain.MatchCandidate {
	return s.reviews
}

// RequeueReviewAfter puts a candidate back on the queue after a delay, used
// when the reviewer lets a prompt time out. The timer goroutine exits early
// when done is closed.
func (s *State) RequeueReviewAfter(c domain.MatchCandidate, d time.Duration, done <-chan struct{}) {
	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			s.EnqueueReview(c)
		case <-done:
		}
	}()
}
