package presale

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ryfenlabs/presale-cli/internal/rpc"
)

var (
	presaleAddr = common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	usdtAddr    = common.HexToAddress("0x7169D38820dfd117C3FA1f22a697dBA58d90BA06")
	usdcAddr    = common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	walletAddr  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// rpcMock creates a test server that serves a fixed JSON-RPC result per
// method; unknown methods get an RPC error.
func rpcMock(t *testing.T, responses map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
	t.Cleanup(srv.Close)
	return srv
}

// testReader builds a Reader over a single mocked endpoint.
func testReader(t *testing.T, responses map[string]interface{}) *Reader {
	t.Helper()
	srv := rpcMock(t, responses)
	f, err := rpc.NewFailover([]string{srv.URL})
	require.NoError(t, err)
	return NewReader(f, presaleAddr, usdtAddr, usdcAddr)
}
