// Package execution resolves gas data for mined transactions from an
// Ethereum execution node.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/bloxapp/safe-history/pkg/safe"
)

var ErrNotFound = fmt.Errorf("not found")

type Client struct {
	eth         *ethclient.Client
	rateLimiter *rate.Limiter
}

func Dial(ctx context.Context, endpoint string, requestsPerSecond float64) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial execution node: %w", err)
	}
	return &Client{
		eth: eth,
		rateLimiter: rate.NewLimiter(
			rate.Every(time.Duration(float64(time.Second)/requestsPerSecond)),
			1,
		),
	}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// GasInfo fetches the transaction and its receipt, preferring the receipt's
// effective gas price (correct for EIP-1559 transactions) over the
// transaction's declared price.
func (c *Client) GasInfo(ctx context.Context, txHash common.Hash) (*safe.GasInfo, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	tx, pending, err := c.eth.TransactionByHash(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if pending {
		return nil, ErrNotFound
	}

	receipt, err := c.eth.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	info := &safe.GasInfo{
		GasPrice: tx.GasPrice(),
		GasUsed:  receipt.GasUsed,
	}
	if receipt.EffectiveGasPrice != nil && receipt.EffectiveGasPrice.Sign() > 0 {
		info.GasPrice = receipt.EffectiveGasPrice
	}
	return info, nil
}
