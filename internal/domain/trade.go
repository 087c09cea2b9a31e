package domain

import "time"

// TradeStatus is the outcome classification of an order attempt.
type TradeStatus string

const (
	TradeSuccess        TradeStatus = "SUCCESS"
	TradeSkippedMinSize TradeStatus = "SKIPPED_MIN_SIZE"
	TradeFailure        TradeStatus = "FAILURE"
)

// CooldownEligible reports whether the status advances cooldown state. A
// minimum-size rejection moved no capital but still counts: retrying at the
// same price would hit the same venue limit.
func (s TradeStatus) CooldownEligible() bool {
	return s == TradeSuccess || s == TradeSkippedMinSize
}

// TradeIntent is a fully-populated request to commit capital on one outcome.
type TradeIntent struct {
	ID            string
	Timestamp     time.Time
	SourceMatchID string
	TargetEventID string
	MarketID      string
	TokenID       string
	MatchTitle    string
	OutcomeName   string
	SourceOdds    float64
	TargetPrice   float64
	TargetOdds    float64
	Liquidity     float64
	BetUSD        float64
	SizeShares    float64
}

// CooldownKey is the dedup key for repeated trade attempts: the CLOB token id
// when known, otherwise market id + outcome.
func (t TradeIntent) CooldownKey() string {
	if t.TokenID != "" {
		return t.TokenID
	}
	return t.MarketID + ":" + t.OutcomeName
}

// TradeResult is the gateway's record of a single attempt.
type TradeResult struct {
	Intent   TradeIntent
	Status   TradeStatus
	Response string
	Err      error
}

// CooldownEntry is one recorded trade attempt under a cooldown key.
type CooldownEntry struct {
	Timestamp time.Time
	Price     float64
}

// FeedSample is one timestamped feed observation kept in the history rings
// and replayed into post-trade audit snapshots.
type FeedSample struct {
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Data      map[string]any `json:"data"`
}
