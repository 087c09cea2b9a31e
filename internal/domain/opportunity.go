package domain

import "time"

// TriggerType classifies an opportunity record.
type TriggerType string

const (
	TriggerInfo      TriggerType = "INFO"
	TriggerArbitrage TriggerType = "ARBITRAGE"
)

// OpportunityRecord is one evaluated (match, outcome) observation. Records are
// ephemeral; only the change-suppressed subset reaches the audit log. The
// *AtTh fields are nil when no orderbook was consulted for the tick.
type OpportunityRecord struct {
	Timestamp       time.Time
	MatchKey        string
	OutcomeKey      string
	SourceOdds      float64
	TargetPrice     float64
	TargetOdds      float64
	Ratio           float64
	EdgePct         float64
	Liquidity       float64
	TriggerType     TriggerType
	Reason          string
	MarketID        string
	TokenID         string
	AvailSharesAtTh *float64
	AvailUSDAtTh    *float64
	WAvgPriceAtTh   *float64
}

// OpportunityLog receives opportunity records that survived rate limiting.
type OpportunityLog interface {
	Append(rec OpportunityRecord) error
}
