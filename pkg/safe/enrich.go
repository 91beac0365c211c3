package safe

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bloxapp/safe-history/pkg/precise"
)

// GasInfo is what an enrichment lookup knows about a mined transaction.
type GasInfo struct {
	GasPrice *big.Int // wei
	GasUsed  uint64
}

// GasLookup resolves on-chain gas data by transaction hash. Implementations
// live under pkg/sync; lookups are optional and per-transaction failures are
// never fatal to a run.
type GasLookup interface {
	GasInfo(ctx context.Context, txHash common.Hash) (*GasInfo, error)
}

// Merge joins on-chain gas data into a transaction. It is additive and
// idempotent: fields already present are never overwritten, so re-running
// enrichment cannot double-count fees. Passing nil info still derives the
// fee when both factors are already known.
func Merge(tx *Transaction, info *GasInfo) {
	if info != nil {
		if tx.GasPrice == nil && info.GasPrice != nil {
			tx.GasPrice = new(big.Int).Set(info.GasPrice)
		}
		if tx.GasUsed == nil {
			used := info.GasUsed
			tx.GasUsed = &used
		}
	}
	if tx.Fee == nil && tx.GasPrice != nil && tx.GasUsed != nil {
		wei := new(big.Int).Mul(tx.GasPrice, new(big.Int).SetUint64(*tx.GasUsed))
		tx.Fee = precise.NewETH(nil).SetWei(wei)
	}
}
