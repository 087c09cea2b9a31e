// Package trading implements the execution gateway, the trade cooldown
// ledger, and the paper position monitor.
package trading

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// DefaultCooldownWindow is how long a recorded attempt keeps blocking
// re-entry at a non-improved price.
const DefaultCooldownWindow = 120 * time.Second

// Cooldown is the per-instrument ledger of recent trade attempts. An entry
// blocks a new attempt while the current price is not strictly better for a
// buyer, i.e. current >= recorded; the gate releases once the price drops.
type Cooldown struct {
	window time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string][]domain.CooldownEntry
}

func NewCooldown(window time.Duration, logger *slog.Logger) *Cooldown {
	if window <= 0 {
		window = DefaultCooldownWindow
	}
	return &Cooldown{
		window:  window,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "cooldown")),
		entries: make(map[string][]domain.CooldownEntry),
	}
}

// Allow prunes entries older than the window, then reports whether an attempt
// at currentPrice may proceed.
func (c *Cooldown) Allow(key string, currentPrice float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	kept := c.entries[key][:0]
	for _, e := range c.entries[key] {
		if now.Sub(e.Timestamp) < c.window {
			kept = append(kept, e)
		}
	}
	c.entries[key] = kept

	for _, e := range kept {
		if currentPrice >= e.Price {
			c.logger.Warn("cooldown active",
				slog.String("key", key),
				slog.Float64("recorded_price", e.Price),
				slog.Float64("current_price", currentPrice),
			)
			return false
		}
	}
	return true
}

// Append records an attempt under the key.
func (c *Cooldown) Append(key string, price float64) {
	c.mu.Lock()
	c.entries[key] = append(c.entries[key], domain.CooldownEntry{Timestamp: c.now(), Price: price})
	c.mu.Unlock()
}
