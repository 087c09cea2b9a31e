package domain

import "time"

// PaperPosition is a simulated open trade tracked for strategy evaluation.
// At most one open paper position exists per token id.
type PaperPosition struct {
	TokenID    string
	MarketID   string
	MatchKey   string
	OutcomeKey string
	EntryPrice float64
	EntryTime  time.Time
	TargetUSD  float64
	Shares     float64
}

// CloseReason records why a position was closed.
type CloseReason string

const (
	CloseTakeProfit CloseReason = "TP"
)

// ClosedTrade is the persisted record of a closed paper position.
type ClosedTrade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	MatchKey   string
	OutcomeKey string
	MarketID   string
	TokenID    string
	EntryPrice float64
	ExitPrice  float64
	Shares     float64
	PnLUSD     float64
	Reason     CloseReason
	Mode       string
}

// PaperTradeLog receives closed paper trade records.
type PaperTradeLog interface {
	Append(trade ClosedTrade) error
}
