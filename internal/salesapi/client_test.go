package salesapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWallet = common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")

// apiMock serves canned envelopes per path and records requests.
func apiMock(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func respond(t *testing.T, w http.ResponseWriter, data interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
	require.NoError(t, err)
}

func TestTotalTokensSold(t *testing.T) {
	c := apiMock(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/token-sales/total", r.URL.Path)
		respond(t, w, map[string]string{"totalTokensSold": "1234567.89"})
	})

	total, err := c.TotalTokensSold(context.Background(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 1234567.89, total, 1e-6)
}

func TestTotalTokensSoldPerPhase(t *testing.T) {
	c := apiMock(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/token-sales/phase/2/total", r.URL.Path)
		respond(t, w, map[string]string{"totalTokensSold": "500"})
	})

	total, err := c.TotalTokensSold(context.Background(), 2)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, total, 1e-9)
}

func TestSalesByAddressLowercasesAndFilters(t *testing.T) {
	c := apiMock(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/token-sales/address/0xab5801a7d398351b8be11c439e05c5b3259aec9b", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("phaseId"))
		respond(t, w, TokenSales{TotalTokensPurchased: "1000", FormattedAmount: "1,000"})
	})

	sales, err := c.SalesByAddress(context.Background(), testWallet, 3)
	require.NoError(t, err)
	assert.Equal(t, "1000", sales.TotalTokensPurchased)
}

func TestUserProgress(t *testing.T) {
	c := apiMock(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		respond(t, w, UserProgress{TotalUSDValue: 150.5, ProgressPercentage: 12.3})
	})

	p, err := c.UserProgress(context.Background(), testWallet)
	require.NoError(t, err)
	assert.InDelta(t, 150.5, p.TotalUSDValue, 1e-9)
}

func TestRefreshUserProgressUsesPost(t *testing.T) {
	c := apiMock(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/refresh-usd-value")
		respond(t, w, UserProgress{TotalUSDValue: 200})
	})

	p, err := c.RefreshUserProgress(context.Background(), testWallet)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, p.TotalUSDValue, 1e-9)
}

func TestRefreshUserProgressRateLimited(t *testing.T) {
	c := apiMock(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.RefreshUserProgress(context.Background(), testWallet)
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 30*time.Second, rateErr.RetryAfter)
}

func TestRateLimitDefaultRetryAfter(t *testing.T) {
	c := apiMock(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.RefreshUserProgress(context.Background(), testWallet)
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 60*time.Second, rateErr.RetryAfter)
}

func TestConnectWallet(t *testing.T) {
	c := apiMock(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/connectwallet", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, testWallet.Hex(), body["address"])
		assert.Equal(t, "0xref", body["ref"])
		respond(t, w, map[string]string{"status": "ok"})
	})

	require.NoError(t, c.ConnectWallet(context.Background(), testWallet, "0xref"))
}

func TestEnvelopeFailureSurfaced(t *testing.T) {
	c := apiMock(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"indexer lagging"}`)) //nolint:errcheck
	})

	_, err := c.TotalTokensSold(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexer lagging")
}

func TestNon2xxIsFailure(t *testing.T) {
	c := apiMock(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.TotalTokensSold(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestBadTotalRejected(t *testing.T) {
	c := apiMock(t, func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, map[string]string{"totalTokensSold": "not-a-number"})
	})

	_, err := c.TotalTokensSold(context.Background(), 0)
	assert.Error(t, err)
}
