package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/state"
)

// EventSource fetches the current event list from the prediction market.
type EventSource interface {
	GetEvents(ctx context.Context, seriesIDs []string) ([]domain.MarketEvent, error)
}

// GammaPoller polls the events API and keeps only live, tradable events in
// shared state. Poll failures leave the previous snapshot in place.
type GammaPoller struct {
	source    EventSource
	state     *state.State
	snapshots *SnapshotWriter
	seriesIDs []string
	interval  time.Duration
	logger    *slog.Logger
}

func NewGammaPoller(source EventSource, st *state.State, snapshots *SnapshotWriter, seriesIDs []string, interval time.Duration, logger *slog.Logger) *GammaPoller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &GammaPoller{
		source:    source,
		state:     st,
		snapshots: snapshots,
		seriesIDs: seriesIDs,
		interval:  interval,
		logger:    logger.With(slog.String("component", "gamma_poller")),
	}
}

// Run polls until the context is cancelled.
func (p *GammaPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.Poll(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll performs one fetch-and-filter pass.
func (p *GammaPoller) Poll(ctx context.Context) {
	events, err := p.source.GetEvents(ctx, p.seriesIDs)
	if err != nil {
		p.logger.Error("events poll failed", slog.String("error", err.Error()))
		return
	}

	live := make([]domain.MarketEvent, 0, len(events))
	for _, ev := range events {
		if ev.Active && !ev.Closed && IsLive(ev) {
			live = append(live, ev)
		}
	}
	p.state.SetMarketEvents(live)

	if len(live) > 0 {
		ids := make([]string, 0, len(live))
		for _, ev := range live {
			ids = append(ids, ev.ID)
		}
		p.state.RecordMarketSample(domain.FeedSample{
			Timestamp: time.Now().UTC(),
			Source:    "polymarket",
			Data: map[string]any{
				"event_count": len(live),
				"event_ids":   ids,
			},
		})
	}
	if p.snapshots != nil {
		p.snapshots.WriteThrottled("market_events", live)
	}
	p.logger.Info("events poll",
		slog.Int("returned", len(events)),
		slog.Int("live_tracked", len(live)),
	)
}

// IsLive reports whether an event shows in-play signals: an explicit live
// flag, a non-initial score, or elapsed game time.
func IsLive(ev domain.MarketEvent) bool {
	if ev.Live {
		return true
	}
	if ev.Score != "" && ev.Score != "0-0" {
		return true
	}
	return ev.Elapsed != ""
}
