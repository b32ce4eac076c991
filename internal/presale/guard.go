package presale

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ryfenlabs/presale-cli/internal/config"
)

// Guard gates purchases on wallet balance and ERC-20 allowance.
type Guard struct {
	reader *Reader
}

// NewGuard creates a Guard over reader.
func NewGuard(reader *Reader) *Guard {
	return &Guard{reader: reader}
}

// HasSufficientBalance reports whether balance covers payAmount. The native
// asset additionally reserves config.GasReserveETH for transaction fees.
// An unknown balance returns true: an indeterminate state must not block
// the purchase, only a known-insufficient balance does.
func HasSufficientBalance(asset Asset, payAmount float64, balance Balance) bool {
	if !balance.Known {
		return true
	}
	required := payAmount
	if asset == AssetETH {
		required += config.GasReserveETH
	}
	return balance.Amount >= required
}

// HasSufficientAllowance reports whether the presale contract may already
// spend amount of token on owner's behalf. Only meaningful for stable
// assets; the native asset never needs an allowance.
func (g *Guard) HasSufficientAllowance(ctx context.Context, token, owner common.Address, amount *big.Int) (bool, error) {
	allowance, err := g.reader.Allowance(ctx, token, owner, g.reader.PresaleAddress())
	if err != nil {
		return false, err
	}
	return allowance.Cmp(amount) >= 0, nil
}
