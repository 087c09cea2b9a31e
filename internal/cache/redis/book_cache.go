package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

var _ domain.BookSnapshotCache = (*BookCache)(nil)

// BookCache implements domain.BookSnapshotCache over Redis with a server-side
// TTL, so expiry needs no sweeper and is shared across processes.
//
// Key schema:
//
//	book:{tokenID} - JSON-encoded snapshot, SET with EX
type BookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client, ttl time.Duration) *BookCache {
	return &BookCache{rdb: c.Underlying(), ttl: ttl}
}

func bookKey(tokenID string) string { return "book:" + tokenID }

type bookPayload struct {
	TokenID   string       `json:"token_id"`
	Asks      [][2]float64 `json:"asks"`
	Bids      [][2]float64 `json:"bids"`
	FetchedAt time.Time    `json:"fetched_at"`
}

func toPayload(snap domain.BookSnapshot) bookPayload {
	p := bookPayload{
		TokenID:   snap.TokenID,
		Asks:      make([][2]float64, 0, len(snap.Asks)),
		Bids:      make([][2]float64, 0, len(snap.Bids)),
		FetchedAt: snap.FetchedAt,
	}
	for _, lvl := range snap.Asks {
		p.Asks = append(p.Asks, [2]float64{lvl.Price, lvl.Size})
	}
	for _, lvl := range snap.Bids {
		p.Bids = append(p.Bids, [2]float64{lvl.Price, lvl.Size})
	}
	return p
}

func fromPayload(p bookPayload) domain.BookSnapshot {
	snap := domain.BookSnapshot{
		TokenID:   p.TokenID,
		Asks:      make([]domain.PriceLevel, 0, len(p.Asks)),
		Bids:      make([]domain.PriceLevel, 0, len(p.Bids)),
		FetchedAt: p.FetchedAt,
	}
	for _, lvl := range p.Asks {
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: lvl[0], Size: lvl[1]})
	}
	for _, lvl := range p.Bids {
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: lvl[0], Size: lvl[1]})
	}
	return snap
}

// Set stores the snapshot under the book key with the cache TTL.
func (bc *BookCache) Set(ctx context.Context, tokenID string, snap domain.BookSnapshot) error {
	data, err := json.Marshal(toPayload(snap))
	if err != nil {
		return fmt.Errorf("redis: encode book %s: %w", tokenID, err)
	}
	if err := bc.rdb.Set(ctx, bookKey(tokenID), data, bc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", tokenID, err)
	}
	return nil
}

// Get returns the cached snapshot or domain.ErrNotFound once the server-side
// TTL has expired the key.
func (bc *BookCache) Get(ctx context.Context, tokenID string) (domain.BookSnapshot, error) {
	data, err := bc.rdb.Get(ctx, bookKey(tokenID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BookSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("redis: get book %s: %w", tokenID, err)
	}
	var p bookPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("redis: decode book %s: %w", tokenID, err)
	}
	return fromPayload(p), nil
}
