// Package feed ingests the two live data sources: the sports-odds push feed
// over a local websocket and the Gamma events poll.
package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// snapshotInterval throttles how often each feed dumps its current view to
// disk for offline inspection.
const snapshotInterval = 3 * time.Second

// SnapshotWriter dumps feed views as pretty-printed JSON, at most once per
// interval per file. Write failures are logged and swallowed; snapshots are
// diagnostics, not state.
type SnapshotWriter struct {
	dir    string
	logger *slog.Logger

	mu        sync.Mutex
	lastWrite map[string]time.Time
}

func NewSnapshotWriter(dir string, logger *slog.Logger) (*SnapshotWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("feed: create snapshot dir: %w", err)
	}
	return &SnapshotWriter{
		dir:       dir,
		logger:    logger.With(slog.String("component", "snapshot_writer")),
		lastWrite: make(map[string]time.Time),
	}, nil
}

// WriteThrottled writes payload to <dir>/<name>.json unless the same file was
// written within the snapshot interval.
func (w *SnapshotWriter) WriteThrottled(name string, payload any) {
	w.mu.Lock()
	last := w.lastWrite[name]
	now := time.Now()
	if now.Sub(last) <= snapshotInterval {
		w.mu.Unlock()
		return
	}
	w.lastWrite[name] = now
	w.mu.Unlock()

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		w.logger.Debug("snapshot encode failed", slog.String("name", name),
			slog.String("error", err.Error()))
		return
	}
	path := filepath.Join(w.dir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		w.logger.Debug("snapshot write failed", slog.String("path", path),
			slog.String("error", err.Error()))
	}
}
