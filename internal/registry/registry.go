// Package registry implements the match-approval state machine. A correlated
// (source event, target event) pair must be approved by a human before the
// evaluator may trade on it. Approved pairs are persisted; the backing store
// is re-read whenever its version advances so an external reviewer tool can
// approve pairs out-of-band.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// Store is the persistence adapter behind the registry. ApprovedVersion
// returns an opaque modification token (the file mtime for the file store)
// that changes when an external editor mutates the approved list.
type Store interface {
	ApprovedVersion() (time.Time, error)
	LoadApproved() ([]domain.MatchCandidate, error)
	SaveApproved(pairs []domain.MatchCandidate) error
	AppendPending(c domain.MatchCandidate) error
	LoadPending() ([]domain.MatchCandidate, error)
}

// PendingObserver is notified once when a never-seen candidate is enqueued
// for review. The approval UI collaborators register one.
type PendingObserver func(c domain.MatchCandidate)

// Registry classifies candidate keys as approved, pending, or rejected.
// A key is in at most one of the three sets; unseen keys are auto-enqueued
// into pending on first sighting. Safe for concurrent use.
type Registry struct {
	store  Store
	logger *slog.Logger

	mu              sync.Mutex
	approved        map[string]bool
	pending         map[string]domain.MatchCandidate
	rejected        map[string]bool
	approvedVersion time.Time
	observer        PendingObserver
}

// New creates a Registry over the given store and performs an initial load of
// the persisted approved pairs.
func New(store Store, logger *slog.Logger) *Registry {
	r := &Registry{
		store:    store,
		logger:   logger.With(slog.String("component", "match_registry")),
		approved: make(map[string]bool),
		pending:  make(map[string]domain.MatchCandidate),
		rejected: make(map[string]bool),
	}
	r.mu.Lock()
	r.reloadLocked()
	r.mu.Unlock()
	return r
}

// SetPendingObserver registers the observer called on each newly-enqueued
// pending candidate.
func (r *Registry) SetPendingObserver(obs PendingObserver) {
	r.mu.Lock()
	r.observer = obs
	r.mu.Unlock()
}

// reloadLocked refreshes the approved set when the store version advanced.
// A malformed payload is treated as an empty approved set for this cycle and
// the cached version is left untouched so the next check retries: failing
// toward "ask for re-approval" beats trusting unparsable data.
func (r *Registry) reloadLocked() {
	version, err := r.store.ApprovedVersion()
	if err != nil {
		r.logger.Error("stat approved store failed", slog.String("error", err.Error()))
		return
	}
	if version.IsZero() {
		r.approved = make(map[string]bool)
		r.approvedVersion = time.Time{}
		return
	}
	if version.Equal(r.approvedVersion) {
		return
	}
	pairs, err := r.store.LoadApproved()
	if err != nil {
		r.logger.Error("failed to parse approved matches, treating as empty",
			slog.String("error", err.Error()))
		r.approved = make(map[string]bool)
		return
	}
	keys := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if p.SourceTitle != "" && p.TargetID != "" {
			keys[p.Key()] = true
		}
	}
	r.approved = keys
	r.approvedVersion = version
	r.logger.Info("loaded approved match pairs", slog.Int("count", len(keys)))
}

// IsApproved reports whether the pair may be traded. Rejected keys return
// false with no side effects. A never-seen key is enqueued into pending
// exactly once, persisted to the pending log, and surfaced to the observer.
func (r *Registry) IsApproved(c domain.MatchCandidate) bool {
	r.mu.Lock()
	r.reloadLocked()
	key := c.Key()
	if r.approved[key] {
		r.mu.Unlock()
		return true
	}
	if r.rejected[key] {
		r.mu.Unlock()
		return false
	}
	if _, ok := r.pending[key]; ok {
		r.mu.Unlock()
		return false
	}
	r.registerPendingLocked(c, true)
	obs := r.observer
	r.mu.Unlock()
	if obs != nil {
		obs(c)
	}
	return false
}

// registerPendingLocked adds the candidate to the pending set and optionally
// appends it to the persisted pending log.
func (r *Registry) registerPendingLocked(c domain.MatchCandidate, persist bool) {
	key := c.Key()
	if r.approved[key] || r.rejected[key] {
		return
	}
	if _, ok := r.pending[key]; ok {
		return
	}
	r.pending[key] = c
	if persist {
		if err := r.store.AppendPending(c); err != nil {
			r.logger.Error("append pending record failed", slog.String("error", err.Error()))
		}
		r.logger.Warn("match candidate requires manual approval",
			slog.String("source", c.SourceTitle),
			slog.String("target", c.TargetTitle),
			slog.Int("score", c.Score),
		)
	}
}

// EnqueuePending records a candidate as pending without re-persisting or
// notifying. Used by the bootstrap replay of the pending log so rows are not
// duplicated on restart.
func (r *Registry) EnqueuePending(c domain.MatchCandidate) {
	r.mu.Lock()
	r.registerPendingLocked(c, false)
	r.mu.Unlock()
}

// IsKnown reports whether the key has been classified in any of the three
// sets.
func (r *Registry) IsKnown(c domain.MatchCandidate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := c.Key()
	if _, ok := r.pending[key]; ok {
		return true
	}
	return r.approved[key] || r.rejected[key]
}

// Approve persists the pair into the approved list (de-duplicated on the full
// tuple) and promotes the key out of pending/rejected. Idempotent.
func (r *Registry) Approve(c domain.MatchCandidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.store.LoadApproved()
	if err != nil {
		r.logger.Error("approved list unreadable, rewriting clean",
			slog.String("error", err.Error()))
		existing = nil
	}
	found := false
	for _, p := range existing {
		if p.SourceTitle == c.SourceTitle && p.TargetID == c.TargetID && p.TargetTitle == c.TargetTitle {
			found = true
			break
		}
	}
	if !found {
		existing = append(existing, c)
	}
	if err := r.store.SaveApproved(existing); err != nil {
		return err
	}

	key := c.Key()
	r.approved[key] = true
	delete(r.pending, key)
	delete(r.rejected, key)
	if version, err := r.store.ApprovedVersion(); err == nil {
		r.approvedVersion = version
	}
	r.logger.Info("match approved",
		slog.String("source", c.SourceTitle),
		slog.String("target", c.TargetTitle),
		slog.String("target_id", c.TargetID),
	)
	return nil
}

// Reject marks the key rejected for the lifetime of the process. Rejection is
// intentionally not persisted: reject means "not yet", approve means
// "permanent".
func (r *Registry) Reject(c domain.MatchCandidate) {
	r.mu.Lock()
	key := c.Key()
	r.rejected[key] = true
	delete(r.pending, key)
	r.mu.Unlock()
	r.logger.Info("match rejected",
		slog.String("source", c.SourceTitle),
		slog.String("target", c.TargetTitle),
	)
}

// Pending returns a snapshot of the candidates currently awaiting review.
func (r *Registry) Pending() []domain.MatchCandidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.MatchCandidate, 0, len(r.pending))
	for _, c := range r.pending {
		out = append(out, c)
	}
	return out
}
