package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bloxapp/safe-history/pkg/labels"
	"github.com/bloxapp/safe-history/pkg/safe"
	"github.com/bloxapp/safe-history/pkg/sync/safeservice"
)

type StatsCmd struct {
	HistoryFlags
	Labels string `help:"Path to a YAML file mapping signer addresses to display labels."`
}

func (c *StatsCmd) Run(logger *zap.Logger, _ *Globals) error {
	ctx := context.Background()

	var signerLabels labels.Labels
	if c.Labels != "" {
		var err error
		signerLabels, err = labels.Load(c.Labels)
		if err != nil {
			return fmt.Errorf("failed to load labels: %w", err)
		}
	}

	info, result, err := c.fetchHistory(ctx, logger)
	if err != nil {
		return err
	}
	printReport(os.Stdout, info, result.Snapshot, signerLabels)
	return nil
}

const reportTimeFormat = "2006-01-02 15:04 MST"

func printReport(w io.Writer, info *safeservice.Safe, snap *safe.Snapshot, signerLabels labels.Labels) {
	line := strings.Repeat("=", 55)
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Safe: %s\n", info.Address.Hex())
	fmt.Fprintln(w, line)

	fmt.Fprintf(w, "\n** OVERVIEW **\n\n")
	fmt.Fprintf(w, "Contract Version .............. %s\n", info.Version)
	fmt.Fprintf(w, "Threshold ..................... %d\n", info.Threshold)
	fmt.Fprintf(w, "Owners ........................ %d\n", len(info.Owners))
	for _, owner := range info.Owners {
		if label := signerLabels.For(owner); label != "" {
			fmt.Fprintf(w, "\t%s (%s)\n", owner.Hex(), label)
		} else {
			fmt.Fprintf(w, "\t%s\n", owner.Hex())
		}
	}

	fmt.Fprintf(w, "\n** TRANSACTION INFO **\n\n")
	fmt.Fprintf(w, "Total Txs ..................... %d\n", snap.Total)
	fmt.Fprintf(w, "Executed Txs .................. %d\n", snap.Executed)
	if snap.Failed > 0 {
		fmt.Fprintf(w, "Failed Txs .................... %d\n", snap.Failed)
	}
	fmt.Fprintf(w, "Non-Owner Executions .......... %d\n", snap.NonOwnerExecutions)
	if snap.OldestSubmission != nil && snap.NewestSubmission != nil {
		fmt.Fprintf(w, "Oldest Tx ..................... %s\n", snap.OldestSubmission.UTC().Format(reportTimeFormat))
		fmt.Fprintf(w, "Newest Tx ..................... %s\n", snap.NewestSubmission.UTC().Format(reportTimeFormat))
	}

	fmt.Fprintln(w, "\nOverall Tx Execution Statistics")
	if snap.TimeToExecution.NoData() {
		fmt.Fprintln(w, "\tNo executed transactions with a defined time to execution.")
	} else {
		fmt.Fprintf(w, "\tSamples ...................... %d\n", snap.TimeToExecution.Count)
		fmt.Fprintf(w, "\tMin Time to Execution ........ %s\n", formatDuration(snap.TimeToExecution.Min))
		fmt.Fprintf(w, "\tMax Time to Execution ........ %s\n", formatDuration(snap.TimeToExecution.Max))
		fmt.Fprintf(w, "\tMean Time to Execution ....... %s\n", formatDuration(snap.TimeToExecution.Mean))
		fmt.Fprintf(w, "\tMedian Time to Execution ..... %s\n", formatDuration(snap.TimeToExecution.Median))
		fmt.Fprintf(w, "\tStdev Time to Execution ...... %s\n", formatDuration(snap.TimeToExecution.Stdev))
	}

	fmt.Fprintf(w, "\n** GAS INFO **\n\n")
	fmt.Fprintf(w, "Enriched Txs .................. %d/%d\n", snap.Enriched, snap.Total)
	if snap.GasAccounted < snap.Executed {
		fmt.Fprintf(w, "Total Gas Spent ............... %s ETH (over %d of %d executions)\n",
			snap.TotalGas.Text(6), snap.GasAccounted, snap.Executed)
	} else {
		fmt.Fprintf(w, "Total Gas Spent ............... %s ETH\n", snap.TotalGas.Text(6))
	}

	fmt.Fprintf(w, "\n** SIGNER INFO **\n\n")
	for _, signer := range snap.Signers {
		name := signer.Address.Hex()
		if label := signerLabels.For(signer.Address); label != "" {
			name = fmt.Sprintf("%s (%s)", name, label)
		}
		fmt.Fprintf(w, "\tSigner: %s\n", name)
		if !signer.CurrentOwner {
			fmt.Fprintf(w, "\t\t(no longer an owner of this Safe)\n")
		}
		fmt.Fprintf(w, "\t\tNum Txs Proposed ........... %d%s\n", signer.Proposals, percentOf(signer.Proposals, snap.Total))
		fmt.Fprintf(w, "\t\tNum Txs Signed ............. %d%s\n", signer.Confirmations, percentOf(signer.Confirmations, snap.Total))
		fmt.Fprintf(w, "\t\tNum Txs Executed ........... %d%s\n", signer.Executions, percentOf(signer.Executions, snap.Executed))
		fmt.Fprintf(w, "\t\tGas Spent .................. %s ETH\n", signer.GasSpent.Text(6))
		if signer.FirstSeen != nil && signer.LastSeen != nil {
			fmt.Fprintf(w, "\t\tActive ..................... %s - %s\n",
				signer.FirstSeen.UTC().Format("2006-01-02"),
				signer.LastSeen.UTC().Format("2006-01-02"))
		}
		fmt.Fprintln(w)
	}

	if snap.Skipped > 0 || snap.Anomalies > 0 || snap.NonceReuses > 0 {
		fmt.Fprintf(w, "\n** DATA QUALITY **\n\n")
		fmt.Fprintf(w, "Records Skipped ............... %d\n", snap.Skipped)
		fmt.Fprintf(w, "Anomalies ..................... %d\n", snap.Anomalies)
		fmt.Fprintf(w, "Reused Nonces ................. %d\n", snap.NonceReuses)
	}
}

func percentOf(n, total int) string {
	if total == 0 {
		return ""
	}
	return fmt.Sprintf(" (%.1f%%)", float64(n)/float64(total)*100)
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.0f mins.", d.Minutes())
}
