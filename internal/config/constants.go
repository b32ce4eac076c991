package config

import "time"

// FallbackRPCURLs are public Sepolia endpoints tried in order when no
// endpoint is configured (or after the configured one fails).
var FallbackRPCURLs = []string{
	"https://eth-sepolia.g.alchemy.com/v2/demo",
	"https://rpc.sepolia.org",
	"https://eth-sepolia.public.blastapi.io",
	"https://sepolia.infura.io/v3/9aa3d95b3bc440fa88ea12eaa4456161",
}

// Refresh windows for cached on-chain data. Wallet balances carry no window:
// they refetch whenever the asset or address changes.
const (
	DataRefreshInterval       = 5 * time.Minute
	TokenPriceRefreshInterval = 5 * time.Minute
)

// Seeded defaults used before the first successful fetch.
const (
	DefaultPhaseID       = 1
	DefaultTokenPriceUSD = 0.0015
	DefaultETHPriceUSD   = 2000.0
)

// GasReserveETH is kept out of any native-asset purchase so the buy
// transaction itself can still pay for gas.
const GasReserveETH = 0.001

// SaleTokenSymbol is the display symbol of the token being sold.
const SaleTokenSymbol = "RYFN"

// ExplorerTxURL prefixes a transaction hash to form an explorer link.
const ExplorerTxURL = "https://sepolia.etherscan.io/tx/"

// Timeouts.
const (
	TxTimeout           = 2 * time.Minute  // whole purchase sequence, wall clock
	BalanceFetchTimeout = 8 * time.Second  // hard ceiling so the UI never sticks in loading
	RPCCallTimeout      = 15 * time.Second // single JSON-RPC round trip
)

// GasBufferPct is added on top of every gas estimate before submission.
const GasBufferPct = 20

// PhaseTargets maps a phase id to its cumulative USD raise target. Phases
// outside the map have no target and the progress bar is hidden.
var PhaseTargets = map[int]float64{
	1: 94_500,
	2: 262_500,
	3: 315_000,
	4: 367_500,
}
