package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// GammaClient is the REST client for the Polymarket Gamma API, used at
// startup to resolve a market slug to the CLOB token id the stream client
// subscribes with.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// gammaMarket is the slice of the Gamma market object needed for resolution.
// Outcomes and clobTokenIds are JSON-encoded arrays inside strings.
type gammaMarket struct {
	Question     string `json:"question"`
	Outcomes     string `json:"outcomes"`
	ClobTokenIDs string `json:"clobTokenIds"`
}

// ResolveTokenID looks up the market with the given slug and returns the CLOB
// token id for the outcome whose name contains the anchor (case-insensitive).
// An empty anchor selects the first outcome. Returns ErrNotFound when the
// slug or the anchor resolves to nothing.
func (g *GammaClient) ResolveTokenID(ctx context.Context, slug, anchor string) (string, error) {
	params := url.Values{}
	params.Set("slug", slug)

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return "", fmt.Errorf("polymarket/gamma: get market by slug %s: %w", slug, err)
	}

	var markets []gammaMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return "", fmt.Errorf("polymarket/gamma: decode markets: %w", domain.ErrProtocol)
	}
	if len(markets) == 0 {
		return "", fmt.Errorf("polymarket/gamma: slug %s: %w", slug, domain.ErrNotFound)
	}

	m := markets[0]
	var outcomes, tokenIDs []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return "", fmt.Errorf("polymarket/gamma: decode outcomes: %w", domain.ErrProtocol)
	}
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokenIDs); err != nil {
		return "", fmt.Errorf("polymarket/gamma: decode clob token ids: %w", domain.ErrProtocol)
	}
	if len(tokenIDs) == 0 {
		return "", fmt.Errorf("polymarket/gamma: market %q has no tokens: %w", m.Question, domain.ErrNotFound)
	}

	if anchor == "" {
		return tokenIDs[0], nil
	}

	needle := strings.ToLower(anchor)
	for i, outcome := range outcomes {
		if i >= len(tokenIDs) {
			break
		}
		if strings.Contains(strings.ToLower(outcome), needle) {
			return tokenIDs[i], nil
		}
	}

	return "", fmt.Errorf("polymarket/gamma: outcome %q not found in market %q: %w",
		anchor, m.Question, domain.ErrNotFound)
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return body, nil
}
