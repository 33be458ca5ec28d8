package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/trackrecord/internal/model"
)

// Source is the market data contract the core consumes. Implemented
// outside the pipeline; fakes stand in for it in tests.
type Source interface {
	// Search returns markets matching a free-text term
	Search(ctx context.Context, term string) ([]model.Market, error)
	// GetByID returns one market, or nil when unknown
	GetByID(ctx context.Context, id string) (*model.Market, error)
}

// Client talks to a gamma-style prediction market listing API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a rate-limited market API client
func NewClient(cfg model.MarketConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// gammaMarket is the wire shape: outcome names and prices arrive as
// stringified JSON arrays.
type gammaMarket struct {
	ID            string      `json:"id"`
	Slug          string      `json:"slug"`
	Question      string      `json:"question"`
	EndDate       string      `json:"endDate"`
	Outcomes      string      `json:"outcomes"`
	OutcomePrices string      `json:"outcomePrices"`
	Volume        json.Number `json:"volume"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
}

// Search queries the listing API for a free-text term
func (c *Client) Search(ctx context.Context, term string) ([]model.Market, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/markets?search=%s&limit=20", c.baseURL, url.QueryEscape(term))
	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var wire []gammaMarket
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}

	markets := make([]model.Market, 0, len(wire))
	for _, g := range wire {
		markets = append(markets, g.toModel())
	}
	return markets, nil
}

// GetByID fetches one market; nil result means the ID is unknown
func (c *Client) GetByID(ctx context.Context, id string) (*model.Market, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/markets/%s", c.baseURL, url.PathEscape(id))
	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var g gammaMarket
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode market %s: %w", id, err)
	}
	m := g.toModel()
	return &m, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4_000_000))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (g gammaMarket) toModel() model.Market {
	m := model.Market{
		ID:       g.ID,
		Slug:     g.Slug,
		Question: g.Question,
		Active:   g.Active && !g.Closed,
	}
	if t, err := time.Parse(time.RFC3339, g.EndDate); err == nil {
		m.EndDate = t
	}
	if v, err := g.Volume.Float64(); err == nil {
		m.Volume = v
	}
	m.OutcomePrices = parseOutcomePrices(g.Outcomes, g.OutcomePrices)
	return m
}

// parseOutcomePrices zips the stringified outcome and price arrays into
// a name -> price map. Unparseable input yields an empty map.
func parseOutcomePrices(outcomes, prices string) map[string]float64 {
	out := make(map[string]float64)

	var names []string
	var priceStrings []string
	if err := json.Unmarshal([]byte(outcomes), &names); err != nil {
		return out
	}
	if err := json.Unmarshal([]byte(prices), &priceStrings); err != nil {
		return out
	}
	for i, name := range names {
		if i >= len(priceStrings) {
			break
		}
		if p, err := strconv.ParseFloat(priceStrings[i], 64); err == nil {
			out[name] = p
		}
	}
	return out
}
