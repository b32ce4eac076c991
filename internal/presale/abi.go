package presale

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Function selectors for the presale contract and the ERC-20 surface it
// touches. Computed once from the canonical signatures.
var (
	selTokenPricePerUsdt = selector("TokenPricePerUsdt()")
	selETHToToken        = selector("ETHToToken(uint256)")
	selLatestPriceETH    = selector("getLatestPriceETH()")
	selPhaseEndTimestamp = selector("currentPhaseEndTimestamp()")
	selOngoingPhaseID    = selector("onGoingPhaseId()")
	selTokenSold         = selector("TokenSold()")
	selPresaleStatus     = selector("presaleStatus()")
	selBuyWithETH        = selector("BuyWithETH(address)")
	selBuyWithUSDT       = selector("BuyWithUSDT(uint256,address)")
	selBuyWithUSDC       = selector("BuyWithUSDC(uint256,address)")

	selBalanceOf = selector("balanceOf(address)") // 0x70a08231
	selDecimals  = selector("decimals()")         // 0x313ce567
	selAllowance = selector("allowance(address,address)") // 0xdd62ed3e
	selApprove   = selector("approve(address,uint256)")   // 0x095ea7b3
)

// selector computes the 4-byte function selector for a canonical signature.
func selector(sig string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig)) //nolint:errcheck
	return h.Sum(nil)[:4]
}

// encodeAddress left-pads an address to a 32-byte ABI word.
func encodeAddress(a common.Address) []byte {
	word := make([]byte, 32)
	copy(word[12:], a.Bytes())
	return word
}

// encodeUint encodes a non-negative integer as a 32-byte ABI word.
func encodeUint(n *big.Int) []byte {
	word := make([]byte, 32)
	if n != nil {
		n.FillBytes(word)
	}
	return word
}

// calldata concatenates a selector with its encoded argument words.
func calldata(sel []byte, words ...[]byte) []byte {
	out := make([]byte, 0, 4+32*len(words))
	out = append(out, sel...)
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}
