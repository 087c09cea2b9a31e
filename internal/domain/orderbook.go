package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// BookSnapshot is a full snapshot of bids and asks for one CLOB token,
// treated as immutable once fetched.
type BookSnapshot struct {
	TokenID   string
	Asks      []PriceLevel
	Bids      []PriceLevel
	FetchedAt time.Time
}

// Valid reports whether the snapshot carries both sides of the book. Payloads
// that decoded without an asks or bids array are discarded by the fetch layer.
func (s BookSnapshot) Valid() bool {
	return s.Asks != nil && s.Bids != nil
}

// LiquiditySummary aggregates ask-side depth up to a price ceiling.
// A zero-valued summary with OK=false means no ask level qualified.
type LiquiditySummary struct {
	Shares    float64
	USD       float64
	WAvgPrice float64
	OK        bool
}

// FillEstimate is the result of walking bid levels toward a target notional.
// All fields are zero when no bid level qualified.
type FillEstimate struct {
	FilledUSD    float64
	FilledShares float64
	WAvgPrice    float64
}
