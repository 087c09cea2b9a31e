package polymarket

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// APIBook is the CLOB book endpoint's wire format. Asks and Bids are
// pointers so a payload that omits a side can be told apart from an empty
// side; a one-sided payload is not a valid book.
type APIBook struct {
	Market  string      `json:"market"`
	AssetID string      `json:"asset_id"`
	Asks    *[]APILevel `json:"asks"`
	Bids    *[]APILevel `json:"bids"`
}

// APILevel is one price level; the API quotes both fields as strings.
type APILevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Valid reports whether both sides were present in the payload.
func (b APIBook) Valid() bool {
	return b.Asks != nil && b.Bids != nil
}

// ToDomainSnapshot converts the wire book to the domain snapshot. Levels with
// unparsable numbers are dropped.
func (b APIBook) ToDomainSnapshot(tokenID string) domain.BookSnapshot {
	snap := domain.BookSnapshot{
		TokenID: tokenID,
		Asks:    make([]domain.PriceLevel, 0, levelCount(b.Asks)),
		Bids:    make([]domain.PriceLevel, 0, levelCount(b.Bids)),
	}
	if b.Asks != nil {
		for _, lvl := range *b.Asks {
			if dl, ok := lvl.toDomain(); ok {
				snap.Asks = append(snap.Asks, dl)
			}
		}
	}
	if b.Bids != nil {
		for _, lvl := range *b.Bids {
			if dl, ok := lvl.toDomain(); ok {
				snap.Bids = append(snap.Bids, dl)
			}
		}
	}
	return snap
}

func levelCount(levels *[]APILevel) int {
	if levels == nil {
		return 0
	}
	return len(*levels)
}

func (l APILevel) toDomain() (domain.PriceLevel, bool) {
	price, err := strconv.ParseFloat(l.Price, 64)
	if err != nil {
		return domain.PriceLevel{}, false
	}
	size, err := strconv.ParseFloat(l.Size, 64)
	if err != nil {
		return domain.PriceLevel{}, false
	}
	return domain.PriceLevel{Price: price, Size: size}, true
}

// APIOrderResult is the CLOB order endpoint's response envelope.
type APIOrderResult struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
