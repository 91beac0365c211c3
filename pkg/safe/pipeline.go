package safe

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc/stream"
	"go.uber.org/zap"
)

// RecordSource is a lazy, finite, chronological producer of raw transaction
// records. Next returns io.EOF at end of stream; any other error is fatal to
// the run. Sources that know the total record count up front may additionally
// implement interface{ Total() int } to drive progress reporting.
type RecordSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// Pipeline pulls raw records through Normalize, the enrichment merger and
// the statistics fold, one transaction at a time.
type Pipeline struct {
	Source RecordSource
	Owners OwnerSet

	// Gas enables on-chain enrichment when non-nil.
	Gas GasLookup

	// Concurrency bounds parallel enrichment lookups. Lookup results are
	// buffered and reapplied in input order, so the fold always sees the
	// chronological stream regardless of this setting.
	Concurrency int

	Progress bool
}

// Result carries both outputs of a run: the ordered enriched transactions
// (for CSV export) and the final statistics snapshot (for the report).
type Result struct {
	Transactions []*Transaction
	Snapshot     *Snapshot

	// Unenrichable counts transactions whose gas lookup failed. These pass
	// through unenriched; the failure is never a hard error.
	Unenrichable int
}

// Run consumes the source to exhaustion. Record-level problems are counted
// and folded into the snapshot; only source transport failures abort.
func (p *Pipeline) Run(ctx context.Context, logger *zap.Logger) (*Result, error) {
	aggregator := NewAggregator(logger, p.Owners)
	result := &Result{}

	var bar *progressbar.ProgressBar
	defer func() {
		if bar != nil {
			_ = bar.Clear()
		}
	}()

	workers := p.Concurrency
	if workers < 1 {
		workers = 1
	}

	// Enrichment lookups run on worker goroutines; everything that mutates
	// the aggregator or result runs in the ordered callbacks.
	s := stream.New().WithMaxGoroutines(workers)
	for {
		data, err := p.Source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.Wait()
			return nil, fmt.Errorf("unable to retrieve history: %w", err)
		}
		if bar == nil && p.Progress {
			if source, ok := p.Source.(interface{ Total() int }); ok && source.Total() > 0 {
				bar = progressbar.New(source.Total())
			}
		}
		if bar != nil {
			_ = bar.Add(1)
		}

		s.Go(func() stream.Callback {
			tx, err := Normalize(data)
			if err != nil {
				return func() { aggregator.RecordSkip(err) }
			}
			var info *GasInfo
			var lookupErr error
			if p.Gas != nil && !tx.Enriched() && tx.TxHash != nil {
				info, lookupErr = p.Gas.GasInfo(ctx, *tx.TxHash)
			}
			return func() {
				if lookupErr != nil {
					result.Unenrichable++
					logger.Debug("Failed to enrich transaction",
						zap.String("tx_hash", tx.TxHash.Hex()),
						zap.Error(lookupErr),
					)
				}
				Merge(tx, info)
				aggregator.Add(tx)
				result.Transactions = append(result.Transactions, tx)
			}
		})
	}
	s.Wait()

	result.Snapshot = aggregator.Snapshot()
	return result, nil
}
