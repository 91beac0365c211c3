// Package export flattens transaction history into CSV.
package export

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/bloxapp/safe-history/pkg/safe"
)

// TimeFormat is the single timestamp format used across all rows.
const TimeFormat = time.RFC3339

// Row is one transaction flattened for CSV. Unknown optionals render as
// empty cells so that "unknown" is never confused with a literal zero.
type Row struct {
	Block        string `csv:"block"`
	Nonce        uint64 `csv:"nonce"`
	Submission   string `csv:"submission"`
	Execution    string `csv:"execution"`
	Executor     string `csv:"executor"`
	To           string `csv:"to"`
	ValueETH     string `csv:"value_eth"`
	Operation    int    `csv:"operation"`
	SafeTxGas    uint64 `csv:"safe_tx_gas"`
	Method       string `csv:"method"`
	Selector     string `csv:"selector"`
	PayloadBytes int    `csv:"payload_bytes"`
	TxHash       string `csv:"tx_hash"`
	GasPriceGwei string `csv:"gas_price_gwei"`
	GasUsed      string `csv:"gas_used"`
	FeeETH       string `csv:"fee_eth"`
}

func NewRow(tx *safe.Transaction) *Row {
	row := &Row{
		Nonce:        tx.Nonce,
		To:           tx.To.Hex(),
		Operation:    tx.Operation,
		SafeTxGas:    tx.SafeTxGas,
		Method:       tx.Method,
		Selector:     tx.Selector,
		PayloadBytes: tx.PayloadLength,
	}
	if tx.BlockNumber != nil {
		row.Block = strconv.FormatUint(*tx.BlockNumber, 10)
	}
	if tx.SubmittedAt != nil {
		row.Submission = tx.SubmittedAt.UTC().Format(TimeFormat)
	}
	if tx.ExecutedAt != nil {
		row.Execution = tx.ExecutedAt.UTC().Format(TimeFormat)
	}
	if tx.Executor != nil {
		row.Executor = tx.Executor.Hex()
	}
	if tx.Value != nil {
		row.ValueETH = tx.Value.String()
	}
	if tx.TxHash != nil {
		row.TxHash = tx.TxHash.Hex()
	}
	if gwei, ok := tx.GasPriceGwei(); ok {
		row.GasPriceGwei = strconv.FormatFloat(gwei, 'f', 3, 64)
	}
	if tx.GasUsed != nil {
		row.GasUsed = strconv.FormatUint(*tx.GasUsed, 10)
	}
	if tx.Fee != nil {
		row.FeeETH = tx.Fee.String()
	}
	return row
}

// Write marshals one row per transaction, in stream order.
func Write(transactions []*safe.Transaction, w io.Writer) error {
	rows := make([]*Row, len(transactions))
	for i, tx := range transactions {
		rows[i] = NewRow(tx)
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}
	return nil
}

// WriteFile writes the CSV to fileName.
func WriteFile(transactions []*safe.Transaction, fileName string) error {
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", fileName, err)
	}
	defer f.Close()
	if err := Write(transactions, f); err != nil {
		return fmt.Errorf("failed to write %q: %w", fileName, err)
	}
	return f.Close()
}
