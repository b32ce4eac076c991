package presale

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderPhaseViews(t *testing.T) {
	reader := testReader(t, map[string]interface{}{
		"eth_call": "0x0000000000000000000000000000000000000000000000000000000000000002",
	})
	ctx := context.Background()

	phase, err := reader.PhaseID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, phase)

	end, err := reader.PhaseEndTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), end)

	open, err := reader.PresaleOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestReaderNativeBalance(t *testing.T) {
	reader := testReader(t, map[string]interface{}{
		"eth_getBalance": "0xde0b6b3a7640000",
	})

	bal, err := reader.NativeBalance(context.Background(), walletAddr)
	require.NoError(t, err)
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	assert.Equal(t, 0, bal.Cmp(one))
}

func TestReaderTokenDecimals(t *testing.T) {
	reader := testReader(t, map[string]interface{}{
		"eth_call": "0x0000000000000000000000000000000000000000000000000000000000000006",
	})

	decimals, err := reader.TokenDecimals(context.Background(), usdtAddr)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)
}

func TestReaderStableAddress(t *testing.T) {
	reader := testReader(t, nil)
	assert.Equal(t, usdtAddr, reader.StableAddress(AssetUSDT))
	assert.Equal(t, usdcAddr, reader.StableAddress(AssetUSDC))
	assert.Equal(t, common.Address{}, reader.StableAddress(AssetETH))
}

func TestReaderErrorsWhenEndpointDown(t *testing.T) {
	reader := testReader(t, map[string]interface{}{}) // eth_call unsupported
	_, err := reader.TokensSold(context.Background())
	assert.Error(t, err)
}
