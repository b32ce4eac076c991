package presale

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/ryfenlabs/presale-cli/internal/chain"
	"github.com/ryfenlabs/presale-cli/internal/config"
)

// ─────────────────────────────────────────────────────────────────────────────
// Price normalization
// ─────────────────────────────────────────────────────────────────────────────

// TokensPerUSD converts the raw TokenPricePerUsdt value (1e18 scaled) to a
// floating tokens-per-USD figure.
func TokensPerUSD(raw *big.Int) float64 {
	return chain.UnitsToFloat(raw, 18)
}

// NormalizeTokenPrice derives the USD-per-token price from a tokens-per-USD
// figure. When the naive inversion lands above 100 USD the raw value is
// assumed to have been USD-per-token already, and it is inverted back.
// The threshold is a compatibility heuristic carried over from the deployed
// storefront; it can misfire for a legitimately high-priced token.
func NormalizeTokenPrice(tokensPerUSD float64) float64 {
	if tokensPerUSD <= 0 {
		return config.DefaultTokenPriceUSD
	}
	price := 1 / tokensPerUSD
	if price > 100 {
		price = 1 / price
	}
	return price
}

// ETHUSDFromRaw converts the contract's Chainlink feed value (1e8 scaled)
// to a USD price, falling back to the seeded default when absent.
func ETHUSDFromRaw(raw *big.Int) float64 {
	if raw == nil || raw.Sign() <= 0 {
		return config.DefaultETHPriceUSD
	}
	return chain.UnitsToFloat(raw, 8)
}

// ─────────────────────────────────────────────────────────────────────────────
// Conversions
// ─────────────────────────────────────────────────────────────────────────────

// StableToTokens converts a stablecoin payment to a token amount.
// Stable assets are assumed 1:1 with USD.
func StableToTokens(payUSD, usdPerToken float64) float64 {
	if usdPerToken <= 0 {
		return 0
	}
	return payUSD / usdPerToken
}

// TokensToStable converts a token amount back to a stablecoin payment.
func TokensToStable(tokens, usdPerToken float64) float64 {
	return tokens * usdPerToken
}

// NativeToTokensFormula estimates tokens for an ETH payment from prices
// alone. The contract conversion in Engine.NativeTokens is preferred; this
// is the fallback path.
func NativeToTokensFormula(payETH, ethUSD, usdPerToken float64) float64 {
	if usdPerToken <= 0 {
		return 0
	}
	return payETH * ethUSD / usdPerToken
}

// TokensToNative converts a token amount to an ETH payment.
func TokensToNative(tokens, usdPerToken, ethUSD float64) float64 {
	if ethUSD <= 0 {
		return 0
	}
	return tokens * usdPerToken / ethUSD
}

// ─────────────────────────────────────────────────────────────────────────────
// Display formatting
// ─────────────────────────────────────────────────────────────────────────────

// FormatTokens renders a token amount for display (2 decimal places).
func FormatTokens(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// FormatUSD renders a USD amount for display (2 decimal places).
func FormatUSD(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// FormatNative renders an ETH amount for display (6 decimal places).
func FormatNative(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// FormatPrice renders a per-token USD price for display (4 decimal places).
func FormatPrice(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

// ─────────────────────────────────────────────────────────────────────────────
// Quote engine
// ─────────────────────────────────────────────────────────────────────────────

// ErrFormulaFallback is the non-fatal warning returned alongside a usable
// quote when the contract conversion was unavailable and the price formula
// was used instead.
var ErrFormulaFallback = fmt.Errorf("contract conversion unavailable, quoted from prices")

// Engine derives token amounts from payment amounts and back. The native
// path round-trips through the contract's ETHToToken view; stable paths are
// computed locally.
type Engine struct {
	reader  *Reader
	session QuoteSession
}

// NewEngine creates a quote engine over reader.
func NewEngine(reader *Reader) *Engine {
	return &Engine{reader: reader}
}

// NativeTokens returns the token amount payETH buys. The contract's own
// conversion is preferred; if the call fails the prices formula is used and
// ErrFormulaFallback is returned alongside the usable result.
func (e *Engine) NativeTokens(ctx context.Context, payETH, ethUSD, usdPerToken float64) (float64, error) {
	wei, err := chain.EtherToWei(strconv.FormatFloat(payETH, 'f', -1, 64))
	if err == nil && e.reader != nil {
		raw, callErr := e.reader.ETHToToken(ctx, wei)
		if callErr == nil {
			return chain.UnitsToFloat(raw, 18), nil
		}
	}
	return NativeToTokensFormula(payETH, ethUSD, usdPerToken), ErrFormulaFallback
}

// NativeTokensSeq is NativeTokens tagged with a session sequence number.
// The returned apply func reports whether this result is still the latest
// issued conversion; stale results must be discarded by the caller.
func (e *Engine) NativeTokensSeq(ctx context.Context, payETH, ethUSD, usdPerToken float64) (tokens float64, warn error, apply func() bool) {
	seq := e.session.Next()
	tokens, warn = e.NativeTokens(ctx, payETH, ethUSD, usdPerToken)
	return tokens, warn, func() bool { return e.session.Apply(seq) }
}

// QuoteSession orders racing native-asset conversions. Each request takes a
// monotonically increasing sequence number; a response is applied only when
// no newer request has been issued since.
type QuoteSession struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// Next issues a new sequence number.
func (s *QuoteSession) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Apply reports whether seq is still the latest issued request, recording it
// as applied when so. Out-of-order responses return false.
func (s *QuoteSession) Apply(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued || seq <= s.applied {
		return false
	}
	s.applied = seq
	return true
}
