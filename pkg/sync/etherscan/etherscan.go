// Package etherscan resolves gas data through the Etherscan proxy API, for
// runs without access to an execution node.
package etherscan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/time/rate"

	"github.com/bloxapp/safe-history/pkg/safe"
	"github.com/bloxapp/safe-history/pkg/sync/httpretry"
)

var ErrNotFound = fmt.Errorf("not found")

type Client struct {
	endpoint    string
	apiKey      string
	rateLimiter *rate.Limiter
}

func New(endpoint, apiKey string, requestsPerSecond float64) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		rateLimiter: rate.NewLimiter(
			rate.Every(time.Duration(float64(time.Second)/requestsPerSecond)),
			1,
		),
	}
}

// GasInfo fetches the transaction receipt via the eth_getTransactionReceipt
// proxy action. The receipt carries both gas used and the effective gas
// price, so one request is enough.
func (c *Client) GasInfo(ctx context.Context, txHash common.Hash) (*safe.GasInfo, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	var resp struct {
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	err := requests.URL(c.endpoint).
		Client(httpretry.Client).
		Path("/api").
		Param("module", "proxy").
		Param("action", "eth_getTransactionReceipt").
		Param("txhash", txHash.Hex()).
		Param("apikey", c.apiKey).
		ToJSON(&resp).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("bad response: %s", resp.Error.Message)
	}
	if resp.Message == "NOTOK" {
		return nil, fmt.Errorf("bad response: %s", resp.Result)
	}
	if len(resp.Result) == 0 || bytes.Equal(resp.Result, []byte("null")) {
		return nil, ErrNotFound
	}

	// Decode the receipt.
	var receipt struct {
		GasUsed           *hexutil.Big `json:"gasUsed"`
		EffectiveGasPrice *hexutil.Big `json:"effectiveGasPrice"`
	}
	if err := json.Unmarshal(resp.Result, &receipt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipt: %w", err)
	}
	if receipt.GasUsed == nil || receipt.EffectiveGasPrice == nil {
		return nil, fmt.Errorf("incomplete receipt")
	}
	return &safe.GasInfo{
		GasPrice: receipt.EffectiveGasPrice.ToInt(),
		GasUsed:  receipt.GasUsed.ToInt().Uint64(),
	}, nil
}
