// Package httpfeed loads quotes from an HTTP JSON endpoint published by the odds ETL.
package httpfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/liamashdown/arbscan/internal/config"
	"github.com/liamashdown/arbscan/internal/feed"
	"github.com/liamashdown/arbscan/internal/market"
	"github.com/liamashdown/arbscan/internal/metrics"
	"github.com/liamashdown/arbscan/internal/ratelimit"
)

// Client fetches quote rows from the feed API
type Client struct {
	baseURL      string
	httpClient   *http.Client
	authMode     config.AuthMode
	bearerToken  string
	apiKey       string
	extraHeaders map[string]string
	limiter      *ratelimit.Limiter
}

// NewClient creates a feed client from the FEED_HTTP_* settings
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.FeedHTTPBaseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		authMode:     cfg.FeedHTTPAuthMode,
		bearerToken:  cfg.FeedHTTPBearerToken,
		apiKey:       cfg.FeedHTTPAPIKey,
		extraHeaders: cfg.FeedHTTPExtraHeaders,
		limiter:      ratelimit.New(cfg.FeedHTTPRPS),
	}
}

// LoadQuotes fetches GET {base}/quotes?from=&to= and converts the rows.
// Client satisfies feed.Source.
func (c *Client) LoadQuotes(ctx context.Context, r feed.DateRange) ([]market.RawQuote, error) {
	start := time.Now()
	rows, err := c.getQuotes(ctx, r)
	metrics.RecordFeedRequest("http", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	quotes := make([]market.RawQuote, 0, len(rows))
	for i, row := range rows {
		q, err := row.RawQuote()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		// The endpoint may ignore the filter; enforce it here
		if !r.Contains(q.GameDate) {
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (c *Client) getQuotes(ctx context.Context, r feed.DateRange) ([]QuoteRow, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL + "/quotes")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	q := u.Query()
	if r.Start != "" {
		q.Set("from", r.Start)
	}
	if r.End != "" {
		q.Set("to", r.End)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("401 Unauthorized (auth_mode=%s) - check credentials", c.authMode)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var rows []QuoteRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return rows, nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	switch c.authMode {
	case config.AuthModeBearer:
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	case config.AuthModeAPIKey:
		req.Header.Set("X-API-KEY", c.apiKey)
	case config.AuthModeNone:
	}

	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}
}
