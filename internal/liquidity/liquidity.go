// Package liquidity provides pure functions over orderbook snapshots: ask-side
// depth summaries, realistic bid-side fill estimation, and best-bid lookup.
// None of these touch the network; callers pass in a fetched BookSnapshot.
package liquidity

import (
	"sort"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// epsilon absorbs float accumulation error when deciding whether a bid level
// fits entirely inside the remaining notional.
const epsilon = 1e-9

// SummarizeAsksToPrice aggregates ask levels priced at or below maxPrice.
// Levels with non-positive price or size are ignored. Returns OK=false when
// nothing qualifies. Iteration order does not matter: the sums are
// associative, so no sort is performed.
func SummarizeAsksToPrice(book domain.BookSnapshot, maxPrice float64) domain.LiquiditySummary {
	var shares, usd float64
	for _, lvl := range book.Asks {
		if lvl.Price <= 0 || lvl.Size <= 0 || lvl.Price > maxPrice {
			continue
		}
		shares += lvl.Size
		usd += lvl.Price * lvl.Size
	}
	if shares > 0 && usd > 0 {
		return domain.LiquiditySummary{
			Shares:    shares,
			USD:       usd,
			WAvgPrice: usd / shares,
			OK:        true,
		}
	}
	return domain.LiquiditySummary{}
}

// EstimateBidFill walks bid levels priced at or above minPrice, best price
// first, accumulating until targetUSD is filled. The final level is consumed
// fractionally so the fill never exceeds the target. The descending walk is
// load-bearing: it models an aggressive marketable sell taking the best
// available price first. Returns a zero estimate when no level qualifies.
func EstimateBidFill(book domain.BookSnapshot, minPrice, targetUSD float64) domain.FillEstimate {
	levels := make([]domain.PriceLevel, 0, len(book.Bids))
	for _, lvl := range book.Bids {
		if lvl.Price >= minPrice && lvl.Price > 0 && lvl.Size > 0 {
			levels = append(levels, lvl)
		}
	}
	if len(levels) == 0 {
		return domain.FillEstimate{}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })

	var filledUSD, filledShares float64
	for _, lvl := range levels {
		if filledUSD >= targetUSD {
			break
		}
		levelUSD := lvl.Price * lvl.Size
		needUSD := targetUSD - filledUSD
		if levelUSD <= needUSD+epsilon {
			filledUSD += levelUSD
			filledShares += lvl.Size
			continue
		}
		filledUSD += needUSD
		filledShares += needUSD / lvl.Price
		break
	}

	if filledShares <= 0 {
		return domain.FillEstimate{}
	}
	return domain.FillEstimate{
		FilledUSD:    filledUSD,
		FilledShares: filledShares,
		WAvgPrice:    filledUSD / filledShares,
	}
}

// BestBid returns the highest bid price with positive size, or 0 with ok=false
// when the bid side is empty.
func BestBid(book domain.BookSnapshot) (float64, bool) {
	best := 0.0
	for _, lvl := range book.Bids {
		if lvl.Size > 0 && lvl.Price > best {
			best = lvl.Price
		}
	}
	return best, best > 0
}
