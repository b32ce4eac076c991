package presale

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ryfenlabs/presale-cli/internal/chain"
	"github.com/ryfenlabs/presale-cli/internal/config"
)

// Writes landing within this window are reported to the observer as one.
const writeCoalesceWindow = 50 * time.Millisecond

// Balance is a wallet balance in display units. Known is false when the
// last fetch failed; an unknown balance must never block a purchase.
type Balance struct {
	Known  bool
	Amount float64
}

// Fetchers supplies the fetch function for each cached datum.
// ChainFetchers builds the production set over a Reader; tests substitute
// their own.
type Fetchers struct {
	PhaseID       func(ctx context.Context) (int, error)
	PhaseEnd      func(ctx context.Context) (uint64, error)
	TokenPriceUSD func(ctx context.Context) (float64, error)
	ETHPriceUSD   func(ctx context.Context) (float64, error)
	TokensSold    func(ctx context.Context) (float64, error)
	Balance       func(ctx context.Context, asset Asset, addr common.Address) (float64, error)
}

// ChainFetchers builds the fetch set backed by the presale contract.
// soldTotal may be nil, in which case the contract's TokenSold view is used.
func ChainFetchers(r *Reader, soldTotal func(ctx context.Context) (float64, error)) Fetchers {
	if soldTotal == nil {
		soldTotal = func(ctx context.Context) (float64, error) {
			raw, err := r.TokensSold(ctx)
			if err != nil {
				return 0, err
			}
			return chain.UnitsToFloat(raw, 18), nil
		}
	}
	return Fetchers{
		PhaseID:  r.PhaseID,
		PhaseEnd: r.PhaseEndTimestamp,
		TokenPriceUSD: func(ctx context.Context) (float64, error) {
			raw, err := r.TokenPricePerUsdt(ctx)
			if err != nil {
				return 0, err
			}
			return NormalizeTokenPrice(TokensPerUSD(raw)), nil
		},
		ETHPriceUSD: func(ctx context.Context) (float64, error) {
			raw, err := r.LatestPriceETH(ctx)
			if err != nil {
				return 0, err
			}
			return ETHUSDFromRaw(raw), nil
		},
		TokensSold: soldTotal,
		Balance: func(ctx context.Context, asset Asset, addr common.Address) (float64, error) {
			ctx, cancel := context.WithTimeout(ctx, config.BalanceFetchTimeout)
			defer cancel()
			if asset == AssetETH {
				wei, err := r.NativeBalance(ctx, addr)
				if err != nil {
					return 0, err
				}
				return chain.WeiToFloat(wei), nil
			}
			token := r.StableAddress(asset)
			if (token == common.Address{}) {
				return 0, fmt.Errorf("%s address not configured", asset)
			}
			decimals, err := r.TokenDecimals(ctx, token)
			if err != nil {
				return 0, err
			}
			raw, err := r.TokenBalance(ctx, token, addr)
			if err != nil {
				return 0, err
			}
			return chain.UnitsToFloat(raw, decimals), nil
		},
	}
}

// entry is one cached datum with its own staleness window.
// interval 0 means a fetch is attempted on every uncached read.
type entry[T any] struct {
	value     T
	fetchedAt time.Time
	interval  time.Duration
}

func (e *entry[T]) fresh(now time.Time) bool {
	return !e.fetchedAt.IsZero() && e.interval > 0 && now.Sub(e.fetchedAt) < e.interval
}

// Cache holds the last-fetched value for each time-sensitive datum. Reads
// inside the staleness window return the cached value without a chain call;
// forced reads always fetch. A failed fetch keeps the previous value (or the
// seeded default) and surfaces the failure as a non-fatal warning — the
// cache always has some displayable value.
type Cache struct {
	fetch Fetchers

	mu         sync.Mutex
	phaseID    entry[int]
	phaseEnd   entry[uint64]
	tokenPrice entry[float64]
	ethPrice   entry[float64]
	sold       entry[float64]
	balances   map[string]Balance

	now func() time.Time

	onWrite    func(datum string)
	pending    map[string]struct{}
	coalescing bool
}

// NewCache creates a cache seeded with the pre-fetch defaults.
func NewCache(f Fetchers) *Cache {
	c := &Cache{
		fetch:    f,
		balances: make(map[string]Balance),
		pending:  make(map[string]struct{}),
		now:      time.Now,
	}
	c.phaseID = entry[int]{value: config.DefaultPhaseID, interval: config.DataRefreshInterval}
	c.phaseEnd = entry[uint64]{interval: config.DataRefreshInterval}
	c.tokenPrice = entry[float64]{value: config.DefaultTokenPriceUSD, interval: config.TokenPriceRefreshInterval}
	c.ethPrice = entry[float64]{value: config.DefaultETHPriceUSD, interval: config.DataRefreshInterval}
	c.sold = entry[float64]{interval: config.DataRefreshInterval}
	return c
}

// OnWrite registers an observer for cache writes. Writes within
// writeCoalesceWindow of each other are delivered in one batch.
func (c *Cache) OnWrite(fn func(datum string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWrite = fn
}

// PhaseID returns the ongoing phase id. The returned error is a non-fatal
// warning: the value is always usable.
func (c *Cache) PhaseID(ctx context.Context, force bool) (int, error) {
	return getEntry(ctx, c, &c.phaseID, "phaseId", force, c.fetch.PhaseID)
}

// PhaseEnd returns the phase-end unix timestamp; 0 means not yet known and
// the countdown stays hidden.
func (c *Cache) PhaseEnd(ctx context.Context, force bool) (uint64, error) {
	return getEntry(ctx, c, &c.phaseEnd, "phaseEnd", force, c.fetch.PhaseEnd)
}

// TokenPriceUSD returns the normalized USD-per-token price.
func (c *Cache) TokenPriceUSD(ctx context.Context, force bool) (float64, error) {
	return getEntry(ctx, c, &c.tokenPrice, "tokenPrice", force, c.fetch.TokenPriceUSD)
}

// ETHPriceUSD returns the ETH/USD price.
func (c *Cache) ETHPriceUSD(ctx context.Context, force bool) (float64, error) {
	return getEntry(ctx, c, &c.ethPrice, "ethPrice", force, c.fetch.ETHPriceUSD)
}

// TokensSold returns the cumulative tokens sold.
func (c *Cache) TokensSold(ctx context.Context, force bool) (float64, error) {
	return getEntry(ctx, c, &c.sold, "tokensSold", force, c.fetch.TokensSold)
}

// Balance returns the wallet balance for asset. Balances carry no staleness
// window: they are cached per (asset, address) and refetched when the pair
// changes or when forced. A failed fetch returns the unknown sentinel but is
// not cached, so the next read retries once the endpoint recovers.
func (c *Cache) Balance(ctx context.Context, asset Asset, addr common.Address, force bool) Balance {
	key := string(asset) + "/" + addr.Hex()

	c.mu.Lock()
	if b, ok := c.balances[key]; ok && !force {
		c.mu.Unlock()
		return b
	}
	c.mu.Unlock()

	amount, err := c.fetch.Balance(ctx, asset, addr)
	if err != nil {
		return Balance{}
	}
	b := Balance{Known: true, Amount: amount}

	c.mu.Lock()
	c.balances[key] = b
	c.notifyLocked("balance")
	c.mu.Unlock()
	return b
}

// getEntry implements the shared read-through-or-cached path.
func getEntry[T any](ctx context.Context, c *Cache, e *entry[T], datum string, force bool, fetch func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if !force && e.fresh(c.now()) {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		// Keep the previous (or seeded) value; surface a warning.
		return e.value, fmt.Errorf("refresh %s: %w", datum, err)
	}
	e.value = v
	e.fetchedAt = c.now()
	c.notifyLocked(datum)
	return v, nil
}

// notifyLocked schedules the coalesced observer call. Caller holds c.mu.
func (c *Cache) notifyLocked(datum string) {
	if c.onWrite == nil {
		return
	}
	c.pending[datum] = struct{}{}
	if c.coalescing {
		return
	}
	c.coalescing = true
	time.AfterFunc(writeCoalesceWindow, func() {
		c.mu.Lock()
		batch := c.pending
		c.pending = make(map[string]struct{})
		c.coalescing = false
		fn := c.onWrite
		c.mu.Unlock()
		for datum := range batch {
			fn(datum)
		}
	})
}
