// Package book serves orderbook snapshots through a short-TTL cache so that
// several consumers evaluating the same token inside one tick share a single
// upstream fetch.
package book

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// DefaultTTL bounds snapshot staleness. Books move fast during live games;
// two seconds is long enough to dedupe a tick and short enough to stay honest.
const DefaultTTL = 2 * time.Second

// Fetcher retrieves a fresh snapshot from the upstream book endpoint.
type Fetcher interface {
	FetchBook(ctx context.Context, tokenID string) (domain.BookSnapshot, error)
}

var _ domain.BookSource = (*Service)(nil)

// Service is the cached book source handed to the evaluator and the paper
// monitor. Fetch failures are returned to the caller and never disturb a
// previously cached snapshot.
type Service struct {
	cache   domain.BookSnapshotCache
	fetcher Fetcher
	logger  *slog.Logger
}

func NewService(cache domain.BookSnapshotCache, fetcher Fetcher, logger *slog.Logger) *Service {
	return &Service{
		cache:   cache,
		fetcher: fetcher,
		logger:  logger.With(slog.String("component", "book_service")),
	}
}

func (s *Service) GetBook(ctx context.Context, tokenID string) (domain.BookSnapshot, error) {
	if tokenID == "" {
		return domain.BookSnapshot{}, domain.ErrNotFound
	}
	if snap, err := s.cache.Get(ctx, tokenID); err == nil {
		return snap, nil
	}

	snap, err := s.fetcher.FetchBook(ctx, tokenID)
	if err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("book: fetch %s: %w", tokenID, err)
	}
	if !snap.Valid() {
		return domain.BookSnapshot{}, fmt.Errorf("book: fetch %s: %w", tokenID, domain.ErrInvalidBook)
	}
	snap.TokenID = tokenID
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	if err := s.cache.Set(ctx, tokenID, snap); err != nil {
		s.logger.Warn("book cache set failed", slog.String("token_id", tokenID),
			slog.String("error", err.Error()))
	}
	return snap, nil
}

var _ domain.BookSnapshotCache = (*MemoryCache)(nil)

// MemoryCache is the default in-process BookSnapshotCache. Entries expire
// lazily on read.
type MemoryCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	snap      domain.BookSnapshot
	expiresAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Set(_ context.Context, tokenID string, snap domain.BookSnapshot) error {
	c.mu.Lock()
	c.entries[tokenID] = memoryEntry{snap: snap, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Get(_ context.Context, tokenID string) (domain.BookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[tokenID]
	if !ok {
		return domain.BookSnapshot{}, domain.ErrNotFound
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, tokenID)
		return domain.BookSnapshot{}, domain.ErrNotFound
	}
	return e.snap, nil
}
