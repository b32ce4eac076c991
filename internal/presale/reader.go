package presale

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ryfenlabs/presale-cli/internal/chain"
	"github.com/ryfenlabs/presale-cli/internal/rpc"
)

// Reader exposes typed access to the presale contract's view functions and
// the ERC-20 surface of the stable payment assets. Every call is routed
// through the endpoint failover.
type Reader struct {
	rpc     *rpc.Failover
	presale common.Address
	usdt    common.Address
	usdc    common.Address
}

// NewReader creates a Reader bound to the presale contract and the two
// stable-asset token contracts.
func NewReader(f *rpc.Failover, presale, usdt, usdc common.Address) *Reader {
	return &Reader{rpc: f, presale: presale, usdt: usdt, usdc: usdc}
}

// PresaleAddress returns the presale contract address.
func (r *Reader) PresaleAddress() common.Address { return r.presale }

// StableAddress returns the token contract address for a stable asset.
// The zero address means the asset is not configured.
func (r *Reader) StableAddress(asset Asset) common.Address {
	switch asset {
	case AssetUSDT:
		return r.usdt
	case AssetUSDC:
		return r.usdc
	default:
		return common.Address{}
	}
}

// ActiveEndpoint returns the RPC endpoint currently serving calls.
func (r *Reader) ActiveEndpoint() string { return r.rpc.Active() }

// ─────────────────────────────────────────────────────────────────────────────
// Presale contract views
// ─────────────────────────────────────────────────────────────────────────────

// TokenPricePerUsdt returns the raw tokens-per-USDT value, scaled by 1e18.
func (r *Reader) TokenPricePerUsdt(ctx context.Context) (*big.Int, error) {
	return r.quantity(ctx, r.presale, calldata(selTokenPricePerUsdt))
}

// ETHToToken asks the contract how many tokens weiAmount buys.
func (r *Reader) ETHToToken(ctx context.Context, weiAmount *big.Int) (*big.Int, error) {
	return r.quantity(ctx, r.presale, calldata(selETHToToken, encodeUint(weiAmount)))
}

// LatestPriceETH returns the ETH/USD price from the contract's Chainlink
// feed, scaled by 1e8.
func (r *Reader) LatestPriceETH(ctx context.Context) (*big.Int, error) {
	return r.quantity(ctx, r.presale, calldata(selLatestPriceETH))
}

// PhaseEndTimestamp returns the unix timestamp at which the current phase ends.
func (r *Reader) PhaseEndTimestamp(ctx context.Context) (uint64, error) {
	n, err := r.quantity(ctx, r.presale, calldata(selPhaseEndTimestamp))
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// PhaseID returns the ongoing phase id.
func (r *Reader) PhaseID(ctx context.Context) (int, error) {
	n, err := r.quantity(ctx, r.presale, calldata(selOngoingPhaseID))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

// TokensSold returns the cumulative tokens sold, scaled by 1e18.
func (r *Reader) TokensSold(ctx context.Context) (*big.Int, error) {
	return r.quantity(ctx, r.presale, calldata(selTokenSold))
}

// PresaleOpen reports whether the presale is accepting purchases.
func (r *Reader) PresaleOpen(ctx context.Context) (bool, error) {
	n, err := r.quantity(ctx, r.presale, calldata(selPresaleStatus))
	if err != nil {
		return false, err
	}
	return n.Sign() != 0, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Balances and ERC-20 views
// ─────────────────────────────────────────────────────────────────────────────

// NativeBalance returns addr's ETH balance in wei.
func (r *Reader) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var out *big.Int
	err := r.rpc.Do(ctx, func(ctx context.Context, c *chain.EVMClient) error {
		n, err := c.BalanceAt(ctx, addr)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

// TokenBalance returns owner's raw balance of an ERC-20 token.
func (r *Reader) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return r.quantity(ctx, token, calldata(selBalanceOf, encodeAddress(owner)))
}

// TokenDecimals returns the token's reported decimals.
func (r *Reader) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	n, err := r.quantity(ctx, token, calldata(selDecimals))
	if err != nil {
		return 0, err
	}
	return uint8(n.Uint64()), nil
}

// Allowance returns the raw amount spender may transfer on owner's behalf.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return r.quantity(ctx, token, calldata(selAllowance, encodeAddress(owner), encodeAddress(spender)))
}

// ─────────────────────────────────────────────────────────────────────────────
// Transaction plumbing (used by the purchase orchestrator)
// ─────────────────────────────────────────────────────────────────────────────

func (r *Reader) ChainID(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := r.rpc.Do(ctx, func(ctx context.Context, c *chain.EVMClient) error {
		n, err := c.ChainID(ctx)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

func (r *Reader) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	var out uint64
	err := r.rpc.Do(ctx, func(ctx context.Context, c *chain.EVMClient) error {
		n, err := c.PendingNonce(ctx, addr)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

func (r *Reader) GasPrice(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := r.rpc.Do(ctx, func(ctx context.Context, c *chain.EVMClient) error {
		n, err := c.GasPrice(ctx)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

func (r *Reader) EstimateGas(ctx context.Context, from, to common.Address, data []byte, value *big.Int) (uint64, error) {
	var out uint64
	err := r.rpc.Do(ctx, func(ctx context.Context, c *chain.EVMClient) error {
		n, err := c.EstimateGas(ctx, from, to, data, value)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

func (r *Reader) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	var out string
	err := r.rpc.Do(ctx, func(ctx context.Context, c *chain.EVMClient) error {
		h, err := c.SendRawTransaction(ctx, raw)
		if err != nil {
			return err
		}
		out = h
		return nil
	})
	return out, err
}

func (r *Reader) WaitForReceipt(ctx context.Context, hash string) (*chain.Receipt, error) {
	var out *chain.Receipt
	err := r.rpc.Do(ctx, func(ctx context.Context, c *chain.EVMClient) error {
		rcpt, err := c.WaitForReceipt(ctx, hash)
		if err != nil {
			return err
		}
		out = rcpt
		return nil
	})
	return out, err
}

// quantity runs an eth_call returning a single uint through the failover.
func (r *Reader) quantity(ctx context.Context, to common.Address, data []byte) (*big.Int, error) {
	var out *big.Int
	err := r.rpc.Do(ctx, func(ctx context.Context, c *chain.EVMClient) error {
		n, err := c.CallContractQuantity(ctx, to, data)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}
