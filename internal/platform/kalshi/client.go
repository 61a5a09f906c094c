package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Client is the REST client for the Kalshi exchange API.
type Client struct {
	baseURL    string
	apiKeyID   string
	signer     *Signer
	httpClient *http.Client
}

// NewClient creates a new Kalshi REST client.
//
// baseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
// apiKeyID is the Kalshi API key identifier; signer holds the matching RSA key.
func NewClient(baseURL, apiKeyID string, signer *Signer) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKeyID: apiKeyID,
		signer:   signer,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetMarket returns a single market by its ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (Market, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(ticker))

	body, err := c.doSignedGet(ctx, path)
	if err != nil {
		return Market{}, fmt.Errorf("kalshi: get market %s: %w", ticker, err)
	}

	var resp struct {
		Market Market `json:"market"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Market{}, fmt.Errorf("kalshi: decode market: %w", domain.ErrProtocol)
	}

	return resp.Market, nil
}

// GetOrderbook returns the current orderbook for the given market ticker.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (Orderbook, error) {
	path := fmt.Sprintf("/markets/%s/orderbook", url.PathEscape(ticker))

	body, err := c.doSignedGet(ctx, path)
	if err != nil {
		return Orderbook{}, fmt.Errorf("kalshi: get orderbook %s: %w", ticker, err)
	}

	var resp struct {
		Orderbook Orderbook `json:"orderbook"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Orderbook{}, fmt.Errorf("kalshi: decode orderbook: %w", domain.ErrProtocol)
	}

	resp.Orderbook.Ticker = ticker
	return resp.Orderbook, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doSignedGet builds, signs, sends, and reads a GET request against the
// Kalshi API. Signing happens immediately before the request goes out because
// the server rejects stale timestamps.
func (c *Client) doSignedGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	signature, timestamp, err := c.signer.Sign(http.MethodGet, path, time.Now())
	if err != nil {
		return nil, err
	}
	req.Header.Set("KALSHI-ACCESS-KEY", c.apiKeyID)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", signature)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", timestamp)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors. 401/403 and
// 404 wrap the fatal sentinels; everything else is transient and retried by
// the poll loop.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr ErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s (%s): %w", apiErr.Message, apiErr.Code, domain.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%s (%s): %w", apiErr.Message, apiErr.Code, domain.ErrNotFound)
	default:
		return fmt.Errorf("HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.Code)
	}
}
