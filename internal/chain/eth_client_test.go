package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContract = common.HexToAddress("0x36e899b6908dc588e85ed0979e8e0dcd7e02a941")

type rpcReq struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newRPCServer serves JSON-RPC by delegating each method to handle.
func newRPCServer(t *testing.T, handle func(req rpcReq) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		result, rerr := handle(req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		if rerr != nil {
			resp["error"] = rerr
		} else {
			resp["result"] = result
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func word(v int64) string {
	return "0x" + hex.EncodeToString(common.LeftPadBytes(big.NewInt(v).Bytes(), 32))
}

// callInput extracts the calldata from an eth_call parameter object.
func callInput(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var arg map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &arg))
	if in, ok := arg["input"].(string); ok {
		return in
	}
	if in, ok := arg["data"].(string); ok {
		return in
	}
	return ""
}

func dialTest(t *testing.T, url string, opts ...ClientOption) *EthClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := DialEthClient(ctx, url, testContract, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestEthClient_TotalSupply(t *testing.T) {
	selector := "0x" + hex.EncodeToString(parsedHatABI.Methods[MethodTotalSupply].ID)

	server := newRPCServer(t, func(req rpcReq) (interface{}, *rpcError) {
		if req.Method != "eth_call" {
			t.Errorf("expected eth_call, got %s", req.Method)
		}
		if got := callInput(t, req.Params[0]); !strings.HasPrefix(got, selector) {
			t.Errorf("expected totalSupply selector, got %s", got)
		}
		return word(100), nil
	})
	defer server.Close()

	c := dialTest(t, server.URL)
	supply, err := c.TotalSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), supply.Int64())
}

func TestEthClient_BalanceOf(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	method := parsedHatABI.Methods[MethodBalanceOf]

	server := newRPCServer(t, func(req rpcReq) (interface{}, *rpcError) {
		input := callInput(t, req.Params[0])
		data, err := hex.DecodeString(strings.TrimPrefix(input, "0x"))
		require.NoError(t, err)
		require.True(t, len(data) >= 4)
		assert.Equal(t, method.ID, data[:4])

		args, err := method.Inputs.Unpack(data[4:])
		require.NoError(t, err)
		assert.Equal(t, owner, args[0].(common.Address))
		assert.Equal(t, int64(7), args[1].(*big.Int).Int64())
		return word(2), nil
	})
	defer server.Close()

	c := dialTest(t, server.URL, WithTokenID(big.NewInt(7)))
	bal, err := c.BalanceOf(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), bal.Int64())
}

func TestEthClient_ReadError(t *testing.T) {
	server := newRPCServer(t, func(req rpcReq) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "execution reverted"}
	})
	defer server.Close()

	c := dialTest(t, server.URL)
	_, err := c.TotalSupply(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "totalSupply")
}

func TestEthClient_SubmitMint_ReadOnly(t *testing.T) {
	var calls atomic.Int32
	server := newRPCServer(t, func(req rpcReq) (interface{}, *rpcError) {
		calls.Add(1)
		return nil, nil
	})
	defer server.Close()

	c := dialTest(t, server.URL)
	_, err := c.SubmitMint(context.Background(), common.HexToAddress("0x01"))
	assert.True(t, errors.Is(err, ErrReadOnly))
	assert.Equal(t, int32(0), calls.Load(), "read-only client must not reach the node")
	assert.Equal(t, common.Address{}, c.Signer())
}

func TestEthClient_Signer(t *testing.T) {
	server := newRPCServer(t, func(req rpcReq) (interface{}, *rpcError) {
		if req.Method == "eth_chainId" {
			return "0x2105", nil
		}
		return nil, nil
	})
	defer server.Close()

	key := "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	priv, err := crypto.HexToECDSA(key)
	require.NoError(t, err)

	c := dialTest(t, server.URL, WithPrivateKey("0x"+key))
	assert.Equal(t, crypto.PubkeyToAddress(priv.PublicKey), c.Signer())
}

func TestEthClient_WaitForReceipt(t *testing.T) {
	txHash := common.HexToHash("0xabc1")
	var polls atomic.Int32

	server := newRPCServer(t, func(req rpcReq) (interface{}, *rpcError) {
		if req.Method != "eth_getTransactionReceipt" {
			t.Errorf("unexpected method %s", req.Method)
			return nil, nil
		}
		// pending on the first poll
		if polls.Add(1) == 1 {
			return nil, nil
		}
		return map[string]interface{}{
			"type":              "0x2",
			"status":            "0x1",
			"cumulativeGasUsed": "0x5208",
			"logsBloom":         "0x" + strings.Repeat("00", 256),
			"logs":              []interface{}{},
			"transactionHash":   txHash.Hex(),
			"gasUsed":           "0x5208",
			"blockHash":         common.HexToHash("0x01").Hex(),
			"blockNumber":       "0x10",
			"transactionIndex":  "0x0",
			"effectiveGasPrice": "0x1",
		}, nil
	})
	defer server.Close()

	c := dialTest(t, server.URL, WithPollInterval(10*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	receipt, err := c.WaitForReceipt(ctx, txHash)
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, int64(16), receipt.BlockNumber.Int64())
	assert.Equal(t, uint64(21000), receipt.GasUsed)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestEthClient_WaitForReceipt_Deadline(t *testing.T) {
	server := newRPCServer(t, func(req rpcReq) (interface{}, *rpcError) {
		return nil, nil
	})
	defer server.Close()

	c := dialTest(t, server.URL, WithPollInterval(10*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.WaitForReceipt(ctx, common.HexToHash("0xdead"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
