// Package salesapi talks to the backend aggregation service that indexes
// on-chain purchase events: totals sold, per-address purchases, USD
// progress and wallet registration.
package salesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// envelope is the API's uniform response wrapper. A non-2xx status or
// success=false is a failure.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// TokenSales is a wallet's purchase record.
type TokenSales struct {
	TotalTokensPurchased string `json:"totalTokensPurchased"`
	FormattedAmount      string `json:"formattedAmount"`
}

// UserProgress is a wallet's aggregated USD spend across phases.
type UserProgress struct {
	Address            string  `json:"address"`
	TotalUSDValue      float64 `json:"totalUsdValue"`
	RawTotalUSDValue   string  `json:"rawTotalUsdValue"`
	ProgressPercentage float64 `json:"progressPercentage"`
	TokenSales         float64 `json:"tokenSales"`
}

// RateLimitError is returned when the refresh endpoint throttles the
// caller. RetryAfter comes from the Retry-After header, defaulting to 60 s.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// Client is a thin HTTP client for the aggregation API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the API at base.
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// TotalTokensSold returns the total tokens sold. Pass phaseID 0 for the
// all-phases total.
func (c *Client) TotalTokensSold(ctx context.Context, phaseID int) (float64, error) {
	path := "/api/token-sales/total"
	if phaseID > 0 {
		path = fmt.Sprintf("/api/token-sales/phase/%d/total", phaseID)
	}

	var data struct {
		TotalTokensSold string `json:"totalTokensSold"`
	}
	if err := c.getJSON(ctx, path, &data); err != nil {
		return 0, err
	}
	total, err := strconv.ParseFloat(data.TotalTokensSold, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing total tokens sold %q: %w", data.TotalTokensSold, err)
	}
	return total, nil
}

// SalesByAddress returns addr's purchase record. Pass phaseID 0 for all
// phases.
func (c *Client) SalesByAddress(ctx context.Context, addr common.Address, phaseID int) (TokenSales, error) {
	path := "/api/token-sales/address/" + strings.ToLower(addr.Hex())
	if phaseID > 0 {
		path += fmt.Sprintf("?phaseId=%d", phaseID)
	}

	var data TokenSales
	err := c.getJSON(ctx, path, &data)
	return data, err
}

// UserProgress returns addr's aggregated USD spend, served from the API's
// cache.
func (c *Client) UserProgress(ctx context.Context, addr common.Address) (UserProgress, error) {
	path := "/api/token-sales/address/" + strings.ToLower(addr.Hex()) + "/usd-value"

	var data UserProgress
	err := c.getJSON(ctx, path, &data)
	return data, err
}

// RefreshUserProgress forces the API to recompute addr's USD spend,
// bypassing its cache. Throttled callers receive a *RateLimitError.
func (c *Client) RefreshUserProgress(ctx context.Context, addr common.Address) (UserProgress, error) {
	path := "/api/token-sales/address/" + strings.ToLower(addr.Hex()) + "/refresh-usd-value"

	var data UserProgress
	err := c.doJSON(ctx, http.MethodPost, path, nil, &data)
	return data, err
}

// ConnectWallet registers a wallet connection, with an optional referral.
func (c *Client) ConnectWallet(ctx context.Context, addr common.Address, ref string) error {
	body := map[string]string{"address": addr.Hex()}
	if ref != "" {
		body["ref"] = ref
	}
	var ignored json.RawMessage
	return c.doJSON(ctx, http.MethodPost, "/api/connectwallet", body, &ignored)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if !env.Success {
		if env.Error == "" {
			env.Error = "request failed"
		}
		return fmt.Errorf("API error: %s", env.Error)
	}
	return json.Unmarshal(env.Data, out)
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 60 * time.Second
}
