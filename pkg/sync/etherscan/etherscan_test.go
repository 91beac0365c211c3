package etherscan

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestGasInfo(t *testing.T) {
	txHash := common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "proxy", r.URL.Query().Get("module"))
		require.Equal(t, "eth_getTransactionReceipt", r.URL.Query().Get("action"))
		switch r.URL.Query().Get("txhash") {
		case txHash.Hex():
			// 21000 gas at 20 Gwei.
			fmt.Fprint(w, `{
				"jsonrpc": "2.0",
				"id": 1,
				"result": {"gasUsed": "0x5208", "effectiveGasPrice": "0x4a817c800"}
			}`)
		default:
			fmt.Fprint(w, `{"jsonrpc": "2.0", "id": 1, "result": null}`)
		}
	}))
	defer server.Close()

	client := New(server.URL, "key", 1000)
	info, err := client.GasInfo(context.Background(), txHash)
	require.NoError(t, err)
	require.Equal(t, uint64(21000), info.GasUsed)
	require.Equal(t, new(big.Int).Mul(big.NewInt(20), big.NewInt(1e9)), info.GasPrice)

	_, err = client.GasInfo(context.Background(), common.HexToHash("0x01"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGasInfoBadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "0", "message": "NOTOK", "result": "Invalid API Key"}`)
	}))
	defer server.Close()

	client := New(server.URL, "key", 1000)
	_, err := client.GasInfo(context.Background(), common.HexToHash("0x01"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
