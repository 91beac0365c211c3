package safe

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/bloxapp/safe-history/pkg/precise"
)

func TestMerge(t *testing.T) {
	tx := &Transaction{SafeTxHash: common.HexToHash("0x01")}
	Merge(tx, &GasInfo{
		GasPrice: new(big.Int).Mul(big.NewInt(20), big.NewInt(1e9)),
		GasUsed:  21000,
	})

	require.True(t, tx.Enriched())
	require.Equal(t, uint64(21000), *tx.GasUsed)
	// fee = 21000 * 20 Gwei = 0.00042 ETH
	require.Equal(t, "0.000420", tx.Fee.Text(6))
}

func TestMergeIdempotent(t *testing.T) {
	tx := &Transaction{SafeTxHash: common.HexToHash("0x01")}
	info := &GasInfo{
		GasPrice: new(big.Int).Mul(big.NewInt(20), big.NewInt(1e9)),
		GasUsed:  21000,
	}
	Merge(tx, info)
	once := precise.NewETH(tx.Fee.Float())

	// Merging again, even with different values, changes nothing.
	Merge(tx, info)
	Merge(tx, &GasInfo{GasPrice: big.NewInt(1e12), GasUsed: 999999})

	require.Zero(t, once.Cmp(tx.Fee))
	require.Equal(t, uint64(21000), *tx.GasUsed)
	require.Equal(t, new(big.Int).Mul(big.NewInt(20), big.NewInt(1e9)), tx.GasPrice)
}

func TestMergeAdditive(t *testing.T) {
	// A record that already carries gas used from the service only picks up
	// the missing gas price; the known field is preserved.
	used := uint64(50000)
	tx := &Transaction{SafeTxHash: common.HexToHash("0x01"), GasUsed: &used}
	Merge(tx, &GasInfo{GasPrice: big.NewInt(1e9), GasUsed: 21000})

	require.Equal(t, uint64(50000), *tx.GasUsed)
	require.Equal(t, big.NewInt(1e9), tx.GasPrice)
	// fee = 50000 * 1 Gwei = 0.00005 ETH
	require.Equal(t, "0.000050", tx.Fee.Text(6))
}

func TestMergeNilInfo(t *testing.T) {
	tx := &Transaction{SafeTxHash: common.HexToHash("0x01")}
	Merge(tx, nil)
	require.Nil(t, tx.GasPrice)
	require.Nil(t, tx.GasUsed)
	require.Nil(t, tx.Fee)

	// With both factors present, a nil lookup still derives the fee.
	used := uint64(21000)
	tx = &Transaction{
		SafeTxHash: common.HexToHash("0x02"),
		GasPrice:   new(big.Int).Mul(big.NewInt(20), big.NewInt(1e9)),
		GasUsed:    &used,
	}
	Merge(tx, nil)
	require.Equal(t, "0.000420", tx.Fee.Text(6))
}
