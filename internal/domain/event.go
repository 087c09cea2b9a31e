package domain

import "encoding/json"

// SportsEvent is one live event from the sports-odds push feed. The wire
// format mirrors the upstream parser's JSON, so field tags follow its casing.
type SportsEvent struct {
	MatchID    string   `json:"MatchId"`
	Pid        int64    `json:"Pid"`
	LeagueName string   `json:"LeagueName"`
	HomeName   string   `json:"homeName"`
	AwayName   string   `json:"awayName"`
	Match      string   `json:"match"`
	IsLive     bool     `json:"isLive"`
	HomeScore  int      `json:"HomeScore"`
	AwayScore  int      `json:"AwayScore"`
	Periods    []Period `json:"Periods"`
}

// Period carries the per-period odds blocks; only the first period's Win1x2
// moneyline block is consumed by the evaluator.
type Period struct {
	Win1x2 *Win1x2 `json:"Win1x2"`
}

// Win1x2 holds home/away/draw decimal odds.
type Win1x2 struct {
	Win1    *OddsValue `json:"Win1"`
	Win2    *OddsValue `json:"Win2"`
	WinNone *OddsValue `json:"WinNone"`
}

// OddsValue wraps a single decimal odds quote.
type OddsValue struct {
	Value float64 `json:"value"`
}

// OutcomeOdds pairs an outcome name with its source-side decimal odds.
type OutcomeOdds struct {
	Name  string
	Price float64
}

// MarketEvent is one event from the Gamma events API with its markets.
type MarketEvent struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Active  bool         `json:"active"`
	Closed  bool         `json:"closed"`
	Live    bool         `json:"live"`
	Score   string       `json:"score"`
	Elapsed string       `json:"elapsed"`
	Series  []SeriesInfo `json:"series"`
	Markets []Market     `json:"markets"`
}

// SeriesInfo identifies the league/series an event belongs to.
type SeriesInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Market is a single Gamma market. Outcomes, OutcomePrices, Prices and
// ClobTokenIDs are JSON-encoded arrays of strings on the wire; use
// DecodeStringArray to unpack them.
type Market struct {
	ID               string  `json:"id"`
	Question         string  `json:"question"`
	Outcomes         string  `json:"outcomes"`
	OutcomePrices    string  `json:"outcomePrices"`
	Prices           string  `json:"prices"`
	ClobTokenIDs     string  `json:"clobTokenIds"`
	SportsMarketType string  `json:"sportsMarketType"`
	GroupItemTitle   string  `json:"groupItemTitle"`
	Active           bool    `json:"active"`
	Closed           bool    `json:"closed"`
	EnableOrderBook  *bool   `json:"enableOrderBook"`
	LiquidityNum     float64 `json:"liquidityNum"`
}

// OrderBookEnabled reports whether the market supports CLOB trading. The
// Gamma API omits the field for most markets, which means enabled.
func (m Market) OrderBookEnabled() bool {
	return m.EnableOrderBook == nil || *m.EnableOrderBook
}

// DecodeStringArray unpacks a JSON-encoded array-of-strings field such as
// outcomes or clobTokenIds. Malformed payloads yield nil.
func DecodeStringArray(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
