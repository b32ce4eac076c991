package chain

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// NormalizeQuantity converts any JSON-RPC numeric result into a big integer.
// Nodes (and middleware in front of them) variously return quantities as
// 0x-prefixed hex strings, bare decimal strings, or JSON numbers; every
// representation is handled here so callers never branch on type.
func NormalizeQuantity(result interface{}) (*big.Int, error) {
	switch v := result.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" || s == "0x" {
			return big.NewInt(0), nil
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			n, ok := new(big.Int).SetString(s[2:], 16)
			if !ok {
				return nil, fmt.Errorf("could not parse hex quantity: %s", s)
			}
			return n, nil
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("could not parse decimal quantity: %s", s)
		}
		return n, nil

	case float64:
		if v < 0 || v != math.Trunc(v) {
			return nil, fmt.Errorf("non-integral quantity: %v", v)
		}
		bf := new(big.Float).SetFloat64(v)
		n, _ := bf.Int(nil)
		return n, nil

	case *big.Int:
		return new(big.Int).Set(v), nil

	case nil:
		return nil, fmt.Errorf("null quantity")

	default:
		return nil, fmt.Errorf("unexpected quantity type: %T", result)
	}
}

var wei1 = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// WeiToFloat converts a wei amount to a float ETH value.
func WeiToFloat(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), wei1).Float64()
	return f
}

// UnitsToFloat converts a raw fixed-point integer to a float using the given
// number of decimals.
func UnitsToFloat(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(raw),
		new(big.Float).SetInt(div),
	).Float64()
	return f
}

// FloatToUnits scales a decimal amount string to a fixed-point integer with
// the given number of decimals. Rejects empty, negative and malformed input.
func FloatToUnits(amount string, decimals uint8) (*big.Int, error) {
	f, ok := new(big.Float).SetString(strings.TrimSpace(amount))
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if f.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", amount)
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	n, _ := new(big.Float).Mul(f, scale).Int(nil)
	return n, nil
}

// EtherToWei scales a decimal ETH amount string to wei.
func EtherToWei(amount string) (*big.Int, error) {
	return FloatToUnits(amount, 18)
}
