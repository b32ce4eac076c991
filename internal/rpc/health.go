package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/ryfenlabs/presale-cli/internal/chain"
)

// Discard nodes more than this many blocks behind the best.
const staleBlockThreshold = 3

// Endpoint represents a single RPC endpoint with its measured attributes.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Healthy     bool
}

// HealthCheck pings a single RPC endpoint and reports whether it's healthy.
// A node is considered healthy if it responds within timeout and its block
// is within staleBlockThreshold of bestBlock (pass 0 to skip recency check).
func HealthCheck(ctx context.Context, url string, bestBlock uint64) (Endpoint, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c := chain.NewEVMClient(url)
	latency, blockNum, err := c.Ping(timeoutCtx)

	ep := Endpoint{
		URL:         url,
		Latency:     latency,
		BlockNumber: blockNum,
		Healthy:     err == nil,
	}

	if err == nil && bestBlock > 0 && bestBlock-blockNum > staleBlockThreshold {
		ep.Healthy = false
	}

	return ep, err
}

// ProbeAll health-checks every URL in parallel and returns results in the
// same order as the input.
func ProbeAll(ctx context.Context, urls []string) []Endpoint {
	results := make([]Endpoint, len(urls))
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			results[idx], _ = HealthCheck(ctx, u, 0) //nolint:errcheck
		}(i, url)
	}

	wg.Wait()
	return results
}
