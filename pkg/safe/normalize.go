package safe

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bloxapp/safe-history/pkg/precise"
)

// ErrSkipRecord marks a raw record that cannot be normalized and should be
// skipped and counted rather than abort the run.
var ErrSkipRecord = fmt.Errorf("record skipped")

// rawRecord mirrors the transaction-service JSON for one multisig
// transaction. Everything beyond safeTxHash and nonce is optional.
type rawRecord struct {
	SafeTxHash      string     `json:"safeTxHash"`
	TransactionHash *string    `json:"transactionHash"`
	Nonce           *uint64    `json:"nonce"`
	BlockNumber     *uint64    `json:"blockNumber"`
	To              string     `json:"to"`
	Value           *string    `json:"value"`
	Operation       int        `json:"operation"`
	SafeTxGas       uint64     `json:"safeTxGas"`
	SubmissionDate  *time.Time `json:"submissionDate"`
	ExecutionDate   *time.Time `json:"executionDate"`
	IsExecuted      bool       `json:"isExecuted"`
	IsSuccessful    *bool      `json:"isSuccessful"`
	Proposer        *string    `json:"proposer"`
	Executor        *string    `json:"executor"`
	Data            *string    `json:"data"`
	DataDecoded     *struct {
		Method string `json:"method"`
	} `json:"dataDecoded"`
	Confirmations []struct {
		Owner          string     `json:"owner"`
		SubmissionDate *time.Time `json:"submissionDate"`
	} `json:"confirmations"`
	EthGasPrice *string `json:"ethGasPrice"` // wei, decimal string
	GasUsed     *uint64 `json:"gasUsed"`
	Fee         *string `json:"fee"` // wei, decimal string
}

// Normalize converts one raw service record into a canonical Transaction.
// A record without a parsable safeTxHash or nonce is rejected with an error
// wrapping ErrSkipRecord; every other missing field is tolerated and maps to
// an unset optional. Normalization is pure and order-independent.
func Normalize(data []byte) (*Transaction, error) {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode record: %v", ErrSkipRecord, err)
	}
	if len(raw.SafeTxHash) != 66 || !strings.HasPrefix(raw.SafeTxHash, "0x") {
		return nil, fmt.Errorf("%w: missing or invalid safeTxHash %q", ErrSkipRecord, raw.SafeTxHash)
	}
	safeTxHash, err := hex.DecodeString(raw.SafeTxHash[2:])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse safeTxHash: %v", ErrSkipRecord, err)
	}
	if raw.Nonce == nil {
		return nil, fmt.Errorf("%w: missing nonce", ErrSkipRecord)
	}

	tx := &Transaction{
		SafeTxHash:  common.BytesToHash(safeTxHash),
		Nonce:       *raw.Nonce,
		BlockNumber: raw.BlockNumber,
		To:          common.HexToAddress(raw.To),
		Operation:   raw.Operation,
		SafeTxGas:   raw.SafeTxGas,
		SubmittedAt: raw.SubmissionDate,
		Success:     raw.IsSuccessful,
	}

	// The service omits executionDate on pending transactions and may report
	// isExecuted before the date is indexed; only the date marks execution.
	if raw.IsExecuted && raw.ExecutionDate != nil {
		tx.ExecutedAt = raw.ExecutionDate
	}
	if raw.TransactionHash != nil && len(*raw.TransactionHash) == 66 {
		hash := common.HexToHash(*raw.TransactionHash)
		tx.TxHash = &hash
	}
	if raw.Proposer != nil && common.IsHexAddress(*raw.Proposer) {
		addr := common.HexToAddress(*raw.Proposer)
		tx.Proposer = &addr
	}
	if raw.Executor != nil && common.IsHexAddress(*raw.Executor) {
		addr := common.HexToAddress(*raw.Executor)
		tx.Executor = &addr
	}
	if raw.Value != nil {
		wei, ok := new(big.Int).SetString(*raw.Value, 10)
		if ok {
			tx.Value = precise.NewETH(nil).SetWei(wei)
		}
	}
	if raw.DataDecoded != nil {
		tx.Method = raw.DataDecoded.Method
	}
	for _, c := range raw.Confirmations {
		if !common.IsHexAddress(c.Owner) {
			continue
		}
		tx.Confirmations = append(tx.Confirmations, Confirmation{
			Owner:       common.HexToAddress(c.Owner),
			ConfirmedAt: c.SubmissionDate,
		})
	}

	tx.Selector, tx.PayloadLength, tx.MalformedPayload = extractSelector(raw.Data)

	// Executed records often already carry gas data from the service; keep it
	// so that later enrichment becomes a no-op for them.
	if raw.EthGasPrice != nil {
		if wei, ok := new(big.Int).SetString(*raw.EthGasPrice, 10); ok {
			tx.GasPrice = wei
		}
	}
	tx.GasUsed = raw.GasUsed
	if raw.Fee != nil {
		if wei, ok := new(big.Int).SetString(*raw.Fee, 10); ok {
			tx.Fee = precise.NewETH(nil).SetWei(wei)
		}
	}

	return tx, nil
}

// extractSelector pulls the 4-byte function selector out of hex call data.
// Empty or absent data means a plain ETH transfer. Data of 1-3 bytes cannot
// carry a selector and is flagged as malformed, with the length still kept.
func extractSelector(data *string) (selector string, length int, malformed bool) {
	if data == nil {
		return "", 0, false
	}
	payload, err := hex.DecodeString(strings.TrimPrefix(*data, "0x"))
	if err != nil {
		return "", 0, true
	}
	switch {
	case len(payload) == 0:
		return "", 0, false
	case len(payload) < 4:
		return "", len(payload), true
	default:
		return fmt.Sprintf("func %s", hex.EncodeToString(payload[:4])), len(payload), false
	}
}
