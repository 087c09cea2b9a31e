// Package audit persists the engine's append-only trails: the opportunity
// log, the paper-trade log, and per-trade JSON snapshots.
package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

const csvTimeLayout = "2006-01-02 15:04:05"

var opportunityHeader = []string{
	"timestamp_utc", "mkey", "oKey", "o_pin", "p_yes", "o_pm", "ratio",
	"edge_pct", "liquidity", "trigger_type", "reason", "pm_market_id",
	"token_id", "avail_shares_at_th", "avail_usd_at_th", "wavg_price_at_th",
}

var paperTradeHeader = []string{
	"timestamp_entry_utc", "timestamp_exit_utc", "mkey", "oKey",
	"pm_market_id", "token_id", "entry_price", "exit_price", "shares",
	"pnl_usd", "reason", "mode",
}

var _ domain.OpportunityLog = (*OpportunityCSV)(nil)

// OpportunityCSV appends opportunity records to a CSV file, creating it with
// a header row on first use.
type OpportunityCSV struct {
	mu   sync.Mutex
	path string
}

func NewOpportunityCSV(path string) (*OpportunityCSV, error) {
	if err := ensureCSV(path, opportunityHeader); err != nil {
		return nil, err
	}
	return &OpportunityCSV{path: path}, nil
}

func (l *OpportunityCSV) Append(rec domain.OpportunityRecord) error {
	row := []string{
		rec.Timestamp.UTC().Format(csvTimeLayout),
		rec.MatchKey,
		rec.OutcomeKey,
		fmtFloat(rec.SourceOdds, 4),
		fmtFloat(rec.TargetPrice, 4),
		fmtFloat(rec.TargetOdds, 4),
		fmtFloat(rec.Ratio, 4),
		fmt.Sprintf("%.2f", rec.EdgePct),
		fmt.Sprintf("%.2f", rec.Liquidity),
		string(rec.TriggerType),
		rec.Reason,
		rec.MarketID,
		rec.TokenID,
		fmtOptFloat(rec.AvailSharesAtTh, 4),
		fmtOptFloat(rec.AvailUSDAtTh, 2),
		fmtOptFloat(rec.WAvgPriceAtTh, 4),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return appendRow(l.path, row)
}

var _ domain.PaperTradeLog = (*PaperTradeCSV)(nil)

// PaperTradeCSV appends closed paper trades to a CSV file.
type PaperTradeCSV struct {
	mu   sync.Mutex
	path string
}

func NewPaperTradeCSV(path string) (*PaperTradeCSV, error) {
	if err := ensureCSV(path, paperTradeHeader); err != nil {
		return nil, err
	}
	return &PaperTradeCSV{path: path}, nil
}

func (l *PaperTradeCSV) Append(trade domain.ClosedTrade) error {
	row := []string{
		trade.EntryTime.UTC().Format(csvTimeLayout),
		trade.ExitTime.UTC().Format(csvTimeLayout),
		trade.MatchKey,
		trade.OutcomeKey,
		trade.MarketID,
		trade.TokenID,
		fmt.Sprintf("%.4f", trade.EntryPrice),
		fmt.Sprintf("%.4f", trade.ExitPrice),
		fmt.Sprintf("%.6f", trade.Shares),
		fmt.Sprintf("%.2f", trade.PnLUSD),
		string(trade.Reason),
		trade.Mode,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return appendRow(l.path, row)
}

// ensureCSV creates the file with its header when absent.
func ensureCSV(path string, header []string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("audit: create dir %s: %w", dir, err)
		}
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("audit: stat %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audit: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	_ = w.Write(header)
	w.Flush()
	if err := f.Close(); err != nil {
		return fmt.Errorf("audit: close %s: %w", path, err)
	}
	return nil
}

func appendRow(path string, row []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("audit: append %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("audit: flush %s: %w", path, err)
	}
	return nil
}

func fmtFloat(f float64, prec int) string {
	if f == 0 {
		return ""
	}
	return fmt.Sprintf("%.*f", prec, f)
}

func fmtOptFloat(f *float64, prec int) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%.*f", prec, *f)
}
