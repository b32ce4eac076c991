package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// rpcMock creates a test HTTP server that serves a fixed JSON-RPC response
// per method. Pass method→result pairs; any unknown method returns an RPC error.
func rpcMock(t *testing.T, responses map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if result, ok := responses[req.Method]; ok {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			})
		} else {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
			})
		}
	}))
}

// rpcErrorServer creates a test HTTP server that always returns a JSON-RPC error.
func rpcErrorServer(t *testing.T, code int, msg string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": code, "message": msg},
		})
	}))
}

// rpcBadJSON creates a server that returns malformed JSON.
func rpcBadJSON(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not valid json`)) //nolint:errcheck
	}))
}

var testAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")

// ---------------------------------------------------------------------------
// balances and calls
// ---------------------------------------------------------------------------

func TestBalanceAt(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getBalance": "0xde0b6b3a7640000", // 1 ETH
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	bal, err := c.BalanceAt(context.Background(), testAddr)
	require.NoError(t, err)
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	assert.Equal(t, 0, bal.Cmp(one))
}

func TestBalanceAtRPCError(t *testing.T) {
	srv := rpcErrorServer(t, -32000, "header not found")
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	_, err := c.BalanceAt(context.Background(), testAddr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header not found")
}

func TestBalanceAtBadJSON(t *testing.T) {
	srv := rpcBadJSON(t)
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	_, err := c.BalanceAt(context.Background(), testAddr)
	assert.Error(t, err)
}

func TestCallContractReturnsRawHex(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_call": "0x0000000000000000000000000000000000000000000000000000000000000012",
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	out, err := c.CallContract(context.Background(), testAddr, []byte{0x31, 0x3c, 0xe5, 0x67})
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000012", out)
}

func TestCallContractQuantity(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_call": "0x0000000000000000000000000000000000000000000000000000000000000012",
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	n, err := c.CallContractQuantity(context.Background(), testAddr, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(18), n.Int64())
}

// ---------------------------------------------------------------------------
// gas, nonce, chain id
// ---------------------------------------------------------------------------

func TestEstimateGas(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_estimateGas": "0xcf08", // 53000
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	gas, err := c.EstimateGas(context.Background(), testAddr, testAddr, nil, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(53000), gas)
}

func TestEstimateGasRevert(t *testing.T) {
	srv := rpcErrorServer(t, 3, "execution reverted")
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	_, err := c.EstimateGas(context.Background(), testAddr, testAddr, []byte{0x01}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution reverted")
}

func TestGasPrice(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_gasPrice": "0x3b9aca00", // 1 gwei
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	price, err := c.GasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), price.Int64())
}

func TestChainID(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_chainId": "0xaa36a7", // sepolia
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	id, err := c.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), id.Int64())
}

func TestPendingNonce(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionCount": "0x7",
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	nonce, err := c.PendingNonce(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)
}

// ---------------------------------------------------------------------------
// transactions and receipts
// ---------------------------------------------------------------------------

func TestSendRawTransaction(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_sendRawTransaction": "0xabc123",
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	hash, err := c.SendRawTransaction(context.Background(), []byte{0x02, 0xf8})
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", hash)
}

func TestTransactionReceiptPending(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": nil,
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	receipt, err := c.TransactionReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestTransactionReceiptMined(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{
			"status":      "0x1",
			"blockNumber": "0x10",
			"gasUsed":     "0x5208",
		},
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	receipt, err := c.TransactionReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, uint64(1), receipt.Status)
	assert.Equal(t, uint64(16), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.GasUsed)
}

func TestWaitForReceiptSuccess(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{
			"status":      "0x1",
			"blockNumber": "0x10",
			"gasUsed":     "0x5208",
		},
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	receipt, err := c.WaitForReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Status)
}

func TestWaitForReceiptReverted(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{
			"status":      "0x0",
			"blockNumber": "0x10",
			"gasUsed":     "0x5208",
		},
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	receipt, err := c.WaitForReceipt(context.Background(), "0xdead")
	require.Error(t, err)
	require.NotNil(t, receipt)
	assert.Contains(t, err.Error(), "reverted")
}

func TestWaitForReceiptContextCancelled(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": nil, // forever pending
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewEVMClient(srv.URL)
	_, err := c.WaitForReceipt(ctx, "0xabc")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPing(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_blockNumber": "0x100",
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	latency, block, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(256), block)
	assert.Greater(t, latency, time.Duration(0))
}

func TestPingUnreachable(t *testing.T) {
	c := NewEVMClient("http://127.0.0.1:1") // nothing listens here
	_, _, err := c.Ping(context.Background())
	assert.Error(t, err)
}
