package rpc

import (
	"context"
	"errors"
	"sync"

	"github.com/ryfenlabs/presale-cli/internal/chain"
)

// ErrNoHealthyRPC is returned when every configured RPC endpoint has failed.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Failover routes calls through a prioritized list of RPC endpoints.
// The first endpoint that serves a call successfully becomes the sticky
// active endpoint; transport failures advance to the next one, wrapping
// around the list. An RPC application error (e.g. a reverted eth_call)
// means the node answered and does NOT trigger failover.
type Failover struct {
	mu      sync.Mutex
	clients []*chain.EVMClient
	active  int
}

// NewFailover creates a failover router over urls, in priority order.
func NewFailover(urls []string) (*Failover, error) {
	if len(urls) == 0 {
		return nil, ErrNoHealthyRPC
	}
	clients := make([]*chain.EVMClient, len(urls))
	for i, u := range urls {
		clients[i] = chain.NewEVMClient(u)
	}
	return &Failover{clients: clients}, nil
}

// Active returns the URL of the currently preferred endpoint.
func (f *Failover) Active() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[f.active].URL()
}

// Endpoints returns all configured endpoint URLs in priority order.
func (f *Failover) Endpoints() []string {
	urls := make([]string, len(f.clients))
	for i, c := range f.clients {
		urls[i] = c.URL()
	}
	return urls
}

// Do runs fn against the active endpoint, advancing through the list on
// transport failure until fn succeeds or every endpoint has been tried.
func (f *Failover) Do(ctx context.Context, fn func(context.Context, *chain.EVMClient) error) error {
	f.mu.Lock()
	start := f.active
	n := len(f.clients)
	f.mu.Unlock()

	var lastErr error
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		err := fn(ctx, f.clients[idx])
		if err == nil {
			f.setActive(idx)
			return nil
		}

		// The caller cancelled; no point trying other endpoints.
		if ctx.Err() != nil {
			return err
		}

		// The node answered with an application error: the endpoint is
		// healthy, the call itself is bad. Surface it as-is.
		var rpcErr *chain.RPCError
		if errors.As(err, &rpcErr) {
			f.setActive(idx)
			return err
		}

		lastErr = err
	}

	return errors.Join(ErrNoHealthyRPC, lastErr)
}

func (f *Failover) setActive(idx int) {
	f.mu.Lock()
	f.active = idx
	f.mu.Unlock()
}
