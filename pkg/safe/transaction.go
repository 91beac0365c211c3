// Package safe holds the core model of a Safe's multisig transaction history:
// normalization of raw transaction-service records, the signer ledger,
// on-chain gas enrichment and the statistics fold.
package safe

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bloxapp/safe-history/pkg/precise"
)

// Confirmation is one signer's approval of a proposed transaction.
type Confirmation struct {
	Owner       common.Address
	ConfirmedAt *time.Time
}

// Transaction is the canonical view of one multisig transaction, uniquely
// identified by its SafeTxHash. Optional fields are pointers: nil means the
// source never reported the value, which is distinct from a reported zero.
type Transaction struct {
	SafeTxHash  common.Hash
	TxHash      *common.Hash // on-chain transaction hash, set once mined
	Nonce       uint64
	BlockNumber *uint64
	To          common.Address
	Value       *precise.ETH
	Operation   int
	SafeTxGas   uint64

	SubmittedAt *time.Time
	ExecutedAt  *time.Time
	Success     *bool

	Proposer      *common.Address
	Executor      *common.Address
	Confirmations []Confirmation

	// Selector is "func <8 hex chars>" when the call data carries at least
	// 4 bytes, empty for plain ETH transfers and for truncated call data.
	Selector         string
	Method           string // decoded method name, when the service decoded it
	PayloadLength    int
	MalformedPayload bool // call data of 1-3 bytes

	// Gas fields are filled either from the service record or by the
	// enrichment merger; once set they are never overwritten.
	GasPrice *big.Int // wei
	GasUsed  *uint64
	Fee      *precise.ETH
}

// Executed reports whether the transaction has been carried out on-chain.
func (t *Transaction) Executed() bool {
	return t.ExecutedAt != nil
}

// Enriched reports whether all gas fields are known.
func (t *Transaction) Enriched() bool {
	return t.GasPrice != nil && t.GasUsed != nil && t.Fee != nil
}

// GasPriceGwei returns the gas price in Gwei, if known.
func (t *Transaction) GasPriceGwei() (float64, bool) {
	if t.GasPrice == nil {
		return 0, false
	}
	gwei, _ := new(big.Float).Quo(
		new(big.Float).SetInt(t.GasPrice),
		big.NewFloat(1e9),
	).Float64()
	return gwei, true
}
