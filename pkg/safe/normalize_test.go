package safe

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const executedRecord = `{
	"safeTxHash": "0x1111111111111111111111111111111111111111111111111111111111111111",
	"transactionHash": "0x2222222222222222222222222222222222222222222222222222222222222222",
	"nonce": 7,
	"blockNumber": 17000000,
	"to": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	"value": "1500000000000000000",
	"operation": 0,
	"safeTxGas": 45000,
	"submissionDate": "2023-03-01T10:00:00Z",
	"executionDate": "2023-03-01T12:30:00Z",
	"isExecuted": true,
	"isSuccessful": true,
	"proposer": "0x19B3Eb3Af5D93b77a5619b047De0EED7115A19e7",
	"executor": "0x39aA39c021dfbaE8faC545936693aC917d5E7563",
	"data": "0xa9059cbb000000000000000000000000",
	"dataDecoded": {"method": "transfer"},
	"confirmations": [
		{"owner": "0x19B3Eb3Af5D93b77a5619b047De0EED7115A19e7", "submissionDate": "2023-03-01T10:00:00Z"},
		{"owner": "0x39aA39c021dfbaE8faC545936693aC917d5E7563", "submissionDate": "2023-03-01T11:15:00Z"}
	],
	"ethGasPrice": "20000000000",
	"gasUsed": 21000,
	"fee": "420000000000000"
}`

func TestNormalize(t *testing.T) {
	tx, err := Normalize([]byte(executedRecord))
	require.NoError(t, err)

	require.Equal(
		t,
		common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111"),
		tx.SafeTxHash,
	)
	require.Equal(t, uint64(7), tx.Nonce)
	require.NotNil(t, tx.BlockNumber)
	require.Equal(t, uint64(17000000), *tx.BlockNumber)
	require.Equal(t, common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), tx.To)
	require.Equal(t, uint64(45000), tx.SafeTxGas)

	require.NotNil(t, tx.SubmittedAt)
	require.NotNil(t, tx.ExecutedAt)
	require.Equal(t, 150.0, tx.ExecutedAt.Sub(*tx.SubmittedAt).Minutes())

	require.NotNil(t, tx.Proposer)
	require.Equal(t, common.HexToAddress("0x19B3Eb3Af5D93b77a5619b047De0EED7115A19e7"), *tx.Proposer)
	require.NotNil(t, tx.Executor)
	require.Len(t, tx.Confirmations, 2)

	require.Equal(t, "func a9059cbb", tx.Selector)
	require.Equal(t, "transfer", tx.Method)
	require.Equal(t, 16, tx.PayloadLength)
	require.False(t, tx.MalformedPayload)

	require.NotNil(t, tx.Value)
	require.Equal(t, "1.500000000000000000", tx.Value.String())

	// Service-side gas data makes the record enriched already.
	require.True(t, tx.Enriched())
	require.Equal(t, uint64(21000), *tx.GasUsed)
	gwei, ok := tx.GasPriceGwei()
	require.True(t, ok)
	require.Equal(t, 20.0, gwei)
	require.Equal(t, "0.000420", tx.Fee.Text(6))
}

func TestNormalizePending(t *testing.T) {
	record := `{
		"safeTxHash": "0x3333333333333333333333333333333333333333333333333333333333333333",
		"nonce": 8,
		"to": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"submissionDate": "2023-03-02T10:00:00Z",
		"isExecuted": false,
		"confirmations": []
	}`
	tx, err := Normalize([]byte(record))
	require.NoError(t, err)

	require.False(t, tx.Executed())
	require.Nil(t, tx.ExecutedAt)
	require.Nil(t, tx.Executor)
	require.Nil(t, tx.BlockNumber)
	require.Nil(t, tx.TxHash)
	require.Nil(t, tx.Success)
	require.Empty(t, tx.Confirmations)

	// Unknown gas is unset, never zero.
	require.Nil(t, tx.GasPrice)
	require.Nil(t, tx.GasUsed)
	require.Nil(t, tx.Fee)
	require.False(t, tx.Enriched())
}

func TestNormalizeRejects(t *testing.T) {
	var tests = []struct {
		name   string
		record string
	}{
		{"invalid JSON", `{"safeTxHash": `},
		{"missing hash", `{"nonce": 1}`},
		{"truncated hash", `{"safeTxHash": "0x1234", "nonce": 1}`},
		{"missing nonce", `{"safeTxHash": "0x1111111111111111111111111111111111111111111111111111111111111111"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize([]byte(tt.record))
			require.ErrorIs(t, err, ErrSkipRecord)
		})
	}
}

func TestNormalizeSelector(t *testing.T) {
	var tests = []struct {
		name      string
		data      string
		selector  string
		length    int
		malformed bool
	}{
		{"no data field", "", "", 0, false},
		{"empty data", `"data": "0x",`, "", 0, false},
		{"one byte", `"data": "0xab",`, "", 1, true},
		{"three bytes", `"data": "0xabcdef",`, "", 3, true},
		{"exactly four bytes", `"data": "0xdeadbeef",`, "func deadbeef", 4, false},
		{"selector plus payload", `"data": "0x6a76120200112233",`, "func 6a761202", 8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := fmt.Sprintf(`{
				"safeTxHash": "0x4444444444444444444444444444444444444444444444444444444444444444",
				"nonce": 1,
				%s
				"to": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
			}`, tt.data)
			tx, err := Normalize([]byte(record))
			require.NoError(t, err)
			require.Equal(t, tt.selector, tx.Selector)
			require.Equal(t, tt.length, tx.PayloadLength)
			require.Equal(t, tt.malformed, tx.MalformedPayload)
		})
	}
}

func TestNormalizeExecutedWithoutDate(t *testing.T) {
	// isExecuted without an executionDate means the indexer hasn't caught up;
	// the transaction must not count as executed yet.
	record := `{
		"safeTxHash": "0x5555555555555555555555555555555555555555555555555555555555555555",
		"nonce": 9,
		"isExecuted": true,
		"submissionDate": "2023-03-02T10:00:00Z"
	}`
	tx, err := Normalize([]byte(record))
	require.NoError(t, err)
	require.False(t, tx.Executed())
}
