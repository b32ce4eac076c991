package presale

import (
	"context"
	"sync"
	"time"
)

// Countdown is the time remaining in the current phase, split for display.
// Known is false until a phase-end timestamp has been fetched.
type Countdown struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
	Known   bool
}

// Expired reports whether the countdown has reached zero.
func (c Countdown) Expired() bool {
	return c.Known && c.Days == 0 && c.Hours == 0 && c.Minutes == 0 && c.Seconds == 0
}

// SplitCountdown computes the remaining time until endUnix. Once the
// deadline passes the fields pin at zero; no phase rollover happens here.
func SplitCountdown(endUnix uint64, now time.Time) Countdown {
	if endUnix == 0 {
		return Countdown{}
	}
	remaining := time.Unix(int64(endUnix), 0).Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Countdown{
		Days:    int(remaining / (24 * time.Hour)),
		Hours:   int(remaining % (24 * time.Hour) / time.Hour),
		Minutes: int(remaining % time.Hour / time.Minute),
		Seconds: int(remaining % time.Minute / time.Second),
		Known:   true,
	}
}

// RefreshDriver sequences the cache refreshes around widget lifecycle
// events: the ordered mount fetch, manual refresh, and the phase-change
// watch. Later fetches in the sequence depend on the resolved phase id, so
// the sequence is strictly sequential.
type RefreshDriver struct {
	cache      *Cache
	userTotals func(ctx context.Context) error

	mu        sync.Mutex
	lastPhase int
}

// NewRefreshDriver creates a driver over cache.
func NewRefreshDriver(cache *Cache) *RefreshDriver {
	return &RefreshDriver{cache: cache}
}

// OnUserTotals registers the force-refresh of the connected wallet's
// purchased-token total, run at the end of a manual refresh.
func (d *RefreshDriver) OnUserTotals(fn func(ctx context.Context) error) {
	d.userTotals = fn
}

// Mount runs the initial forced fetch sequence:
// phase id → phase end → token price → ETH price → sold totals.
// Every failure is collected as a non-fatal warning; the sequence always
// runs to completion.
func (d *RefreshDriver) Mount(ctx context.Context) []error {
	return d.run(ctx, false)
}

// Refresh re-runs the mount sequence and additionally refreshes the user's
// purchased total when a wallet is connected.
func (d *RefreshDriver) Refresh(ctx context.Context) []error {
	return d.run(ctx, true)
}

func (d *RefreshDriver) run(ctx context.Context, withUser bool) []error {
	var warns []error
	collect := func(err error) {
		if err != nil {
			warns = append(warns, err)
		}
	}

	phase, err := d.cache.PhaseID(ctx, true)
	collect(err)
	d.mu.Lock()
	d.lastPhase = phase
	d.mu.Unlock()

	_, err = d.cache.PhaseEnd(ctx, true)
	collect(err)
	_, err = d.cache.TokenPriceUSD(ctx, true)
	collect(err)
	_, err = d.cache.ETHPriceUSD(ctx, true)
	collect(err)
	_, err = d.cache.TokensSold(ctx, true)
	collect(err)

	if withUser && d.userTotals != nil {
		collect(d.userTotals(ctx))
	}
	return warns
}

// AfterPurchase force-refreshes the data a confirmed purchase changes: the
// sold totals and, when registered, the wallet's purchased total.
func (d *RefreshDriver) AfterPurchase(ctx context.Context) []error {
	var warns []error
	if _, err := d.cache.TokensSold(ctx, true); err != nil {
		warns = append(warns, err)
	}
	if d.userTotals != nil {
		if err := d.userTotals(ctx); err != nil {
			warns = append(warns, err)
		}
	}
	return warns
}

// TrackPhase observes the cached phase id and, when it changed since the
// last observation, force-refreshes the sold totals only. Returns the
// current phase id and whether a change was seen.
func (d *RefreshDriver) TrackPhase(ctx context.Context) (int, bool, error) {
	phase, err := d.cache.PhaseID(ctx, false)
	if err != nil {
		return phase, false, err
	}
	d.mu.Lock()
	if phase == d.lastPhase {
		d.mu.Unlock()
		return phase, false, nil
	}
	d.lastPhase = phase
	d.mu.Unlock()
	_, err = d.cache.TokensSold(ctx, true)
	return phase, true, err
}
