package presale

import (
	"fmt"
	"strings"
)

// Asset identifies the payment asset for a purchase. The native asset pays
// from the wallet's ETH balance and keeps a gas reserve; the stable assets
// are ERC-20 tokens requiring an allowance for the presale contract.
type Asset string

const (
	AssetETH  Asset = "ETH"
	AssetUSDT Asset = "USDT"
	AssetUSDC Asset = "USDC"
)

// ParseAsset parses a user-supplied asset name.
func ParseAsset(s string) (Asset, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ETH":
		return AssetETH, nil
	case "USDT":
		return AssetUSDT, nil
	case "USDC":
		return AssetUSDC, nil
	default:
		return "", fmt.Errorf("unknown asset %q (want ETH, USDT or USDC)", s)
	}
}

// Stable reports whether the asset is a USD stablecoin.
func (a Asset) Stable() bool { return a == AssetUSDT || a == AssetUSDC }

func (a Asset) String() string { return string(a) }

// buySelector returns the presale contract selector for buying with a.
func (a Asset) buySelector() []byte {
	switch a {
	case AssetUSDT:
		return selBuyWithUSDT
	case AssetUSDC:
		return selBuyWithUSDC
	default:
		return selBuyWithETH
	}
}
