package safe

import (
	"math"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bloxapp/safe-history/pkg/precise"
)

// Distribution summarizes a set of duration samples. A zero Count means
// "no data": the other fields are meaningless and must not be rendered as
// computed zeros.
type Distribution struct {
	Count  int
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	Median time.Duration
	Stdev  time.Duration
}

func (d Distribution) NoData() bool {
	return d.Count == 0
}

func NewDistribution(samples []time.Duration) Distribution {
	if len(samples) == 0 {
		return Distribution{}
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, sample := range sorted {
		sum += sample
	}
	mean := sum / time.Duration(len(sorted))

	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	var stdev time.Duration
	if len(sorted) > 1 {
		var variance float64
		for _, sample := range sorted {
			diff := float64(sample - mean)
			variance += diff * diff
		}
		variance /= float64(len(sorted) - 1)
		stdev = time.Duration(math.Sqrt(variance))
	}

	return Distribution{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		Median: median,
		Stdev:  stdev,
	}
}

// SignerRow is one signer's line in the final report.
type SignerRow struct {
	Address      common.Address
	CurrentOwner bool

	Proposals     int
	Confirmations int
	Executions    int
	GasSpent      *precise.ETH

	FirstSeen *time.Time
	LastSeen  *time.Time
}

// Snapshot is the immutable aggregate produced at end of stream.
type Snapshot struct {
	Total    int
	Executed int
	Failed   int

	// Enriched counts transactions with complete gas data. GasAccounted
	// counts the executions contributing to gas totals; when it is lower
	// than Executed, the gas totals are partial.
	Enriched     int
	GasAccounted int
	TotalGas     *precise.ETH

	NonOwnerExecutions int
	NonceReuses        int
	Skipped            int
	Anomalies          int

	OldestSubmission *time.Time
	NewestSubmission *time.Time

	TimeToExecution Distribution
	Signers         []*SignerRow
}

// Aggregator is a strict left-fold over the chronological transaction
// stream. It does not re-sort: preserving order (by nonce, then submission
// time) is the source's contract.
type Aggregator struct {
	logger *zap.Logger
	ledger *Ledger

	total    int
	executed int
	failed   int

	enriched     int
	gasAccounted int
	totalGas     *precise.ETH

	nonOwnerExecutions int
	nonceReuses        int
	skipped            int
	anomalies          int

	oldestSubmission *time.Time
	newestSubmission *time.Time

	samples   []time.Duration
	lastNonce *uint64
}

func NewAggregator(logger *zap.Logger, owners OwnerSet) *Aggregator {
	return &Aggregator{
		logger:   logger,
		ledger:   NewLedger(owners),
		totalGas: precise.NewETH(nil),
	}
}

func (a *Aggregator) Ledger() *Ledger {
	return a.ledger
}

// RecordSkip counts a raw record that could not be normalized.
func (a *Aggregator) RecordSkip(err error) {
	a.skipped++
	a.logger.Warn("Skipped record", zap.Error(err))
}

// Add folds one transaction into the aggregate.
func (a *Aggregator) Add(tx *Transaction) {
	a.total++

	if a.lastNonce != nil {
		switch {
		case tx.Nonce == *a.lastNonce:
			// Replaced or cancelled proposals share a nonce; they are
			// aggregated as independent transactions ordered by submission.
			a.nonceReuses++
			a.logger.Info("Nonce reused by multiple proposals",
				zap.Uint64("nonce", tx.Nonce),
				zap.String("safe_tx_hash", tx.SafeTxHash.Hex()),
			)
		case tx.Nonce < *a.lastNonce:
			a.logger.Warn("Transaction out of nonce order",
				zap.Uint64("nonce", tx.Nonce),
				zap.Uint64("previous_nonce", *a.lastNonce),
			)
		}
	}
	nonce := tx.Nonce
	a.lastNonce = &nonce

	if tx.SubmittedAt != nil {
		if a.oldestSubmission == nil || tx.SubmittedAt.Before(*a.oldestSubmission) {
			a.oldestSubmission = tx.SubmittedAt
		}
		if a.newestSubmission == nil || tx.SubmittedAt.After(*a.newestSubmission) {
			a.newestSubmission = tx.SubmittedAt
		}
	}

	if tx.MalformedPayload {
		a.anomalies++
		a.logger.Warn("Call data too short to carry a selector",
			zap.String("safe_tx_hash", tx.SafeTxHash.Hex()),
			zap.Int("payload_length", tx.PayloadLength),
		)
	}

	if tx.Enriched() {
		a.enriched++
	}

	if tx.Proposer != nil {
		a.ledger.RecordProposal(*tx.Proposer)
	}

	// Confirmations are deduplicated per (signer, transaction): the raw data
	// occasionally repeats a signer's entry.
	confirmed := make(map[common.Address]struct{}, len(tx.Confirmations))
	for _, confirmation := range tx.Confirmations {
		if _, ok := confirmed[confirmation.Owner]; ok {
			continue
		}
		confirmed[confirmation.Owner] = struct{}{}
		a.ledger.RecordConfirmation(confirmation.Owner, confirmation.ConfirmedAt)
	}

	if !tx.Executed() {
		return
	}
	a.executed++
	if tx.Success != nil && !*tx.Success {
		a.failed++
	}

	timeToExecution := a.timeToExecution(tx)
	if timeToExecution != nil {
		a.samples = append(a.samples, *timeToExecution)
	}

	if tx.Executor == nil {
		return
	}
	if !a.ledger.Owners().Contains(*tx.Executor) {
		a.nonOwnerExecutions++
	}
	if tx.Fee != nil {
		a.gasAccounted++
		a.totalGas.Add(a.totalGas, tx.Fee)
	}
	a.ledger.RecordExecution(*tx.Executor, tx.Fee, timeToExecution)
}

// timeToExecution returns the elapsed time between submission and execution,
// or nil when either timestamp is missing or the duration would be negative.
// A negative duration is a data anomaly: it is logged, counted and excluded,
// never surfaced in the report.
func (a *Aggregator) timeToExecution(tx *Transaction) *time.Duration {
	if tx.SubmittedAt == nil || tx.ExecutedAt == nil {
		return nil
	}
	elapsed := tx.ExecutedAt.Sub(*tx.SubmittedAt)
	if elapsed < 0 {
		a.anomalies++
		a.logger.Warn("Execution timestamp precedes submission",
			zap.String("safe_tx_hash", tx.SafeTxHash.Hex()),
			zap.Time("submitted_at", *tx.SubmittedAt),
			zap.Time("executed_at", *tx.ExecutedAt),
		)
		return nil
	}
	return &elapsed
}

// Snapshot finalizes the fold. The aggregator may keep receiving
// transactions afterwards, but a returned snapshot never changes.
func (a *Aggregator) Snapshot() *Snapshot {
	signers := a.ledger.Signers()
	rows := make([]*SignerRow, len(signers))
	for i, signer := range signers {
		rows[i] = &SignerRow{
			Address:       signer.Address,
			CurrentOwner:  signer.CurrentOwner,
			Proposals:     signer.Proposals,
			Confirmations: signer.Confirmations,
			Executions:    signer.Executions,
			GasSpent:      precise.NewETH(signer.GasSpent.Float()),
			FirstSeen:     signer.FirstSeen,
			LastSeen:      signer.LastSeen,
		}
	}
	return &Snapshot{
		Total:              a.total,
		Executed:           a.executed,
		Failed:             a.failed,
		Enriched:           a.enriched,
		GasAccounted:       a.gasAccounted,
		TotalGas:           precise.NewETH(a.totalGas.Float()),
		NonOwnerExecutions: a.nonOwnerExecutions,
		NonceReuses:        a.nonceReuses,
		Skipped:            a.skipped,
		Anomalies:          a.anomalies,
		OldestSubmission:   a.oldestSubmission,
		NewestSubmission:   a.newestSubmission,
		TimeToExecution:    NewDistribution(a.samples),
		Signers:            rows,
	}
}
