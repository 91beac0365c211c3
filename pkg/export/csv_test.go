package export

import (
	"bytes"
	"encoding/csv"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/bloxapp/safe-history/pkg/safe"
)

func TestWrite(t *testing.T) {
	submitted := time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC)
	executed := time.Date(2023, 3, 1, 12, 30, 0, 0, time.UTC)
	executor := common.HexToAddress("0x19B3Eb3Af5D93b77a5619b047De0EED7115A19e7")
	block := uint64(17000000)
	gasUsed := uint64(21000)

	enriched := &safe.Transaction{
		SafeTxHash:    common.HexToHash("0x01"),
		Nonce:         7,
		BlockNumber:   &block,
		To:            common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		SubmittedAt:   &submitted,
		ExecutedAt:    &executed,
		Executor:      &executor,
		Selector:      "func a9059cbb",
		Method:        "transfer",
		PayloadLength: 68,
		GasPrice:      new(big.Int).Mul(big.NewInt(20), big.NewInt(1e9)),
		GasUsed:       &gasUsed,
	}
	safe.Merge(enriched, nil)

	pending := &safe.Transaction{
		SafeTxHash:  common.HexToHash("0x02"),
		Nonce:       8,
		To:          common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		SubmittedAt: &submitted,
	}

	var buf bytes.Buffer
	require.NoError(t, Write([]*safe.Transaction{enriched, pending}, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 transactions

	header := rows[0]
	byColumn := func(row []string, name string) string {
		for i, column := range header {
			if column == name {
				return row[i]
			}
		}
		t.Fatalf("no column %q", name)
		return ""
	}

	require.Equal(t, "7", byColumn(rows[1], "nonce"))
	require.Equal(t, "17000000", byColumn(rows[1], "block"))
	require.Equal(t, "2023-03-01T10:00:00Z", byColumn(rows[1], "submission"))
	require.Equal(t, "2023-03-01T12:30:00Z", byColumn(rows[1], "execution"))
	require.Equal(t, executor.Hex(), byColumn(rows[1], "executor"))
	require.Equal(t, "func a9059cbb", byColumn(rows[1], "selector"))
	require.Equal(t, "transfer", byColumn(rows[1], "method"))
	require.Equal(t, "68", byColumn(rows[1], "payload_bytes"))
	require.Equal(t, "20.000", byColumn(rows[1], "gas_price_gwei"))
	require.Equal(t, "21000", byColumn(rows[1], "gas_used"))
	require.Equal(t, "0.000420000000000000", byColumn(rows[1], "fee_eth"))

	// Unknown optionals are empty cells, not zeros.
	require.Equal(t, "8", byColumn(rows[2], "nonce"))
	require.Empty(t, byColumn(rows[2], "block"))
	require.Empty(t, byColumn(rows[2], "execution"))
	require.Empty(t, byColumn(rows[2], "executor"))
	require.Empty(t, byColumn(rows[2], "gas_price_gwei"))
	require.Empty(t, byColumn(rows[2], "gas_used"))
	require.Empty(t, byColumn(rows[2], "fee_eth"))
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(nil, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}
