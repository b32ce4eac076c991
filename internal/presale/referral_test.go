package presale

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReferralValid(t *testing.T) {
	addr, ok := ParseReferral("#BuyNow?ref=0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"), addr)
}

func TestParseReferralShortHexDropped(t *testing.T) {
	_, ok := ParseReferral("#BuyNow?ref=0xabc")
	assert.False(t, ok)
}

func TestParseReferralMissingParam(t *testing.T) {
	_, ok := ParseReferral("#BuyNow")
	assert.False(t, ok)
	_, ok = ParseReferral("#BuyNow?other=1")
	assert.False(t, ok)
	_, ok = ParseReferral("")
	assert.False(t, ok)
}

func TestParseReferralNonHexDropped(t *testing.T) {
	_, ok := ParseReferral("#BuyNow?ref=not-an-address")
	assert.False(t, ok)
}

func TestParseReferralExtraParams(t *testing.T) {
	addr, ok := ParseReferral("#BuyNow?utm=x&ref=0x7169D38820dfd117C3FA1f22a697dBA58d90BA06")
	require.True(t, ok)
	assert.Equal(t, usdtAddr, addr)
}
