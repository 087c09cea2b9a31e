package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/trading"
)

// Uploader mirrors completed trade records to remote object storage.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) error
}

var _ trading.TradeAuditor = (*TradeWriter)(nil)

// TradeWriter persists one JSON file per trade attempt, holding the trade
// details plus the surrounding feed history windows. When an uploader is set,
// each file is also mirrored to object storage; upload failures are logged
// and do not fail the local write.
type TradeWriter struct {
	dir      string
	uploader Uploader
	logger   *slog.Logger
}

func NewTradeWriter(dir string, uploader Uploader, logger *slog.Logger) (*TradeWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create trade log dir: %w", err)
	}
	return &TradeWriter{
		dir:      dir,
		uploader: uploader,
		logger:   logger.With(slog.String("component", "trade_audit")),
	}, nil
}

func (w *TradeWriter) SaveTradeRecord(rec trading.TradeAuditRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("audit: encode trade record: %w", err)
	}

	name := fmt.Sprintf("trade_%s_%d.json", rec.Intent.SourceMatchID, rec.Intent.Timestamp.Unix())
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("audit: write trade record: %w", err)
	}

	if w.uploader != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		key := "trades/" + name
		if err := w.uploader.Upload(ctx, key, data); err != nil {
			w.logger.Error("trade record upload failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
