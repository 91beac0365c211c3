package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bloxapp/safe-history/pkg/export"
)

type ExportCmd struct {
	HistoryFlags
	Outfile string `help:"Path to write the CSV to. Defaults to safe-<address>-tx.csv."`
}

func (c *ExportCmd) Run(logger *zap.Logger, _ *Globals) error {
	ctx := context.Background()

	info, result, err := c.fetchHistory(ctx, logger)
	if err != nil {
		return err
	}

	outfile := c.Outfile
	if outfile == "" {
		outfile = fmt.Sprintf("safe-%s-tx.csv", strings.ToLower(info.Address.Hex()))
	}
	if err := export.WriteFile(result.Transactions, outfile); err != nil {
		return fmt.Errorf("failed to export transactions: %w", err)
	}

	snap := result.Snapshot
	logger.Info("Exported transactions",
		zap.String("outfile", outfile),
		zap.Int("rows", len(result.Transactions)),
		zap.Int("enriched", snap.Enriched),
		zap.Int("skipped", snap.Skipped),
		zap.String("total_gas_eth", snap.TotalGas.Text(6)),
	)
	return nil
}
