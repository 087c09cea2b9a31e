package audit

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/trading"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestOpportunityCSVAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opportunities_changes.csv")
	log, err := NewOpportunityCSV(path)
	require.NoError(t, err)

	usd := 40.0
	err = log.Append(domain.OpportunityRecord{
		Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		MatchKey:     "Lakers vs Celtics",
		OutcomeKey:   "Lakers",
		SourceOdds:   2.0,
		TargetPrice:  0.40,
		TargetOdds:   2.5,
		Ratio:        1.25,
		EdgePct:      25.0,
		Liquidity:    1000,
		TriggerType:  domain.TriggerArbitrage,
		Reason:       "threshold",
		MarketID:     "mkt1",
		TokenID:      "tok1",
		AvailUSDAtTh: &usd,
	})
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "timestamp_utc", rows[0][0])
	assert.Equal(t, "2026-03-01 12:00:00", rows[1][0])
	assert.Equal(t, "1.2500", rows[1][6])
	assert.Equal(t, "ARBITRAGE", rows[1][9])
	assert.Equal(t, "", rows[1][13]) // shares at threshold not measured
	assert.Equal(t, "40.00", rows[1][14])
}

func TestOpportunityCSVHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opps.csv")
	_, err := NewOpportunityCSV(path)
	require.NoError(t, err)
	log, err := NewOpportunityCSV(path) // reopen, header must not repeat
	require.NoError(t, err)
	require.NoError(t, log.Append(domain.OpportunityRecord{Timestamp: time.Now()}))

	rows := readCSV(t, path)
	assert.Len(t, rows, 2)
}

func TestPaperTradeCSVAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper_trades.csv")
	log, err := NewPaperTradeCSV(path)
	require.NoError(t, err)

	err = log.Append(domain.ClosedTrade{
		EntryTime:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ExitTime:   time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
		MatchKey:   "Lakers vs Celtics",
		OutcomeKey: "Lakers",
		MarketID:   "mkt1",
		TokenID:    "tok1",
		EntryPrice: 0.40,
		ExitPrice:  0.46,
		Shares:     21.739130,
		PnLUSD:     1.30,
		Reason:     domain.CloseTakeProfit,
		Mode:       "paper",
	})
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "TP", rows[1][10])
	assert.Equal(t, "paper", rows[1][11])
	assert.Equal(t, "0.4600", rows[1][7])
}

type fakeUploader struct {
	keys []string
}

func (u *fakeUploader) Upload(_ context.Context, key string, _ []byte) error {
	u.keys = append(u.keys, key)
	return nil
}

func TestTradeWriterWritesAndUploads(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}
	w, err := NewTradeWriter(dir, up, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err = w.SaveTradeRecord(trading.TradeAuditRecord{
		Intent: domain.TradeIntent{
			ID:            "id1",
			Timestamp:     ts,
			SourceMatchID: "m1",
			TokenID:       "tok1",
		},
		Status: domain.TradeSuccess,
	})
	require.NoError(t, err)

	name := "trade_m1_" + strconv.FormatInt(ts.Unix(), 10) + ".json"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"trade_status": "SUCCESS"`)
	require.Len(t, up.keys, 1)
	assert.Equal(t, "trades/"+name, up.keys[0])
}
