package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// bookParamVariants are the query keys the book endpoint accepts. Which key a
// given instrument answers to is inconsistent across markets, so a fetch
// tries each in order and takes the first payload that parses as a full book.
var bookParamVariants = []string{"asset_id", "market", "tokens"}

// ClobClient is the REST client for the CLOB book and order endpoints.
type ClobClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// apiKey may be empty for book-only (read) use.
func NewClobClient(baseURL, apiKey string) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// FetchBook retrieves the orderbook for a token, trying each accepted query
// key until one yields a two-sided book. One FetchBook call makes at most one
// pass over the variants.
func (c *ClobClient) FetchBook(ctx context.Context, tokenID string) (domain.BookSnapshot, error) {
	if tokenID == "" {
		return domain.BookSnapshot{}, fmt.Errorf("polymarket/clob: fetch book: %w", domain.ErrNotFound)
	}

	var lastErr error
	for _, key := range bookParamVariants {
		params := url.Values{}
		params.Set(key, tokenID)

		body, err := c.doGet(ctx, "/book?"+params.Encode())
		if err != nil {
			lastErr = err
			continue
		}

		var book APIBook
		if err := json.Unmarshal(body, &book); err != nil {
			lastErr = fmt.Errorf("decode book: %w", err)
			continue
		}
		if !book.Valid() {
			lastErr = domain.ErrInvalidBook
			continue
		}

		snap := book.ToDomainSnapshot(tokenID)
		snap.FetchedAt = time.Now()
		return snap, nil
	}
	return domain.BookSnapshot{}, fmt.Errorf("polymarket/clob: fetch book %s: %w", tokenID, lastErr)
}

// PlaceOrder posts a GTC buy order and returns the raw response body. A venue
// rejection surfaces as an error carrying the venue's message verbatim, so
// callers can classify rejections by message content.
func (c *ClobClient) PlaceOrder(ctx context.Context, tokenID string, price, sizeShares float64) (string, error) {
	payload := map[string]any{
		"order": map[string]any{
			"tokenID": tokenID,
			"price":   strconv.FormatFloat(price, 'f', -1, 64),
			"size":    strconv.FormatFloat(sizeShares, 'f', -1, 64),
			"side":    "BUY",
		},
		"orderType": "GTC",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("polymarket/clob: marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("polymarket/clob: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("polymarket/clob: post order: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("polymarket/clob: read order response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return "", fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var result APIOrderResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}
	if !result.Success {
		return string(respBody), fmt.Errorf("polymarket/clob: order rejected: %s", result.ErrorMsg)
	}
	return string(respBody), nil
}

func (c *ClobClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}
