package safe

import (
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/exp/maps"

	"github.com/bloxapp/safe-history/pkg/precise"
)

// OwnerSet is an immutable snapshot of the Safe's owner list, taken once at
// the start of a run. Signers are classified against this snapshot, never
// against the owner set at transaction time: the question it answers is
// "is this signer still on the Safe today".
type OwnerSet struct {
	owners map[common.Address]struct{}
}

func NewOwnerSet(owners []common.Address) OwnerSet {
	set := OwnerSet{owners: make(map[common.Address]struct{}, len(owners))}
	for _, owner := range owners {
		set.owners[owner] = struct{}{}
	}
	return set
}

func (s OwnerSet) Contains(addr common.Address) bool {
	_, ok := s.owners[addr]
	return ok
}

func (s OwnerSet) Len() int {
	return len(s.owners)
}

// SignerStats is the running aggregate for one address. Counts and gas
// accumulate regardless of whether the address is still an owner; the
// CurrentOwner flag is a grouping dimension, not a filter.
type SignerStats struct {
	Address      common.Address
	CurrentOwner bool

	Proposals     int
	Confirmations int
	Executions    int
	GasSpent      *precise.ETH

	// Activity window observed across confirmations.
	FirstSeen *time.Time
	LastSeen  *time.Time

	timesToExecution []time.Duration
}

// ExecutionLatency returns the distribution of this signer's
// time-to-execution samples.
func (s *SignerStats) ExecutionLatency() Distribution {
	return NewDistribution(s.timesToExecution)
}

// Ledger attributes confirmations and executions to signer identities.
// It is folded single-threaded over a chronological stream, so it needs
// no locking. Addresses are common.Address keys, which makes comparison
// case-insensitive by construction.
type Ledger struct {
	owners  OwnerSet
	signers map[common.Address]*SignerStats
}

func NewLedger(owners OwnerSet) *Ledger {
	return &Ledger{
		owners:  owners,
		signers: make(map[common.Address]*SignerStats),
	}
}

func (l *Ledger) Owners() OwnerSet {
	return l.owners
}

func (l *Ledger) stats(signer common.Address) *SignerStats {
	stats, ok := l.signers[signer]
	if !ok {
		stats = &SignerStats{
			Address:      signer,
			CurrentOwner: l.owners.Contains(signer),
			GasSpent:     precise.NewETH(nil),
		}
		l.signers[signer] = stats
	}
	return stats
}

func (l *Ledger) RecordProposal(signer common.Address) {
	l.stats(signer).Proposals++
}

func (l *Ledger) RecordConfirmation(signer common.Address, at *time.Time) {
	stats := l.stats(signer)
	stats.Confirmations++
	if at == nil {
		return
	}
	if stats.FirstSeen == nil || at.Before(*stats.FirstSeen) {
		stats.FirstSeen = at
	}
	if stats.LastSeen == nil || at.After(*stats.LastSeen) {
		stats.LastSeen = at
	}
}

// RecordExecution attributes one execution to signer. gasPaid is nil when the
// transaction's gas data is unknown; the execution still counts, it just
// doesn't contribute to the gas total. timeToExecution is nil when either
// timestamp was missing or the computed duration was negative.
func (l *Ledger) RecordExecution(signer common.Address, gasPaid *precise.ETH, timeToExecution *time.Duration) {
	stats := l.stats(signer)
	stats.Executions++
	if gasPaid != nil {
		stats.GasSpent.Add(stats.GasSpent, gasPaid)
	}
	if timeToExecution != nil {
		stats.timesToExecution = append(stats.timesToExecution, *timeToExecution)
	}
}

// Signers returns all observed signers, current owners first, then by
// address for a stable report order.
func (l *Ledger) Signers() []*SignerStats {
	signers := maps.Values(l.signers)
	sort.Slice(signers, func(i, j int) bool {
		if signers[i].CurrentOwner != signers[j].CurrentOwner {
			return signers[i].CurrentOwner
		}
		return signers[i].Address.Hex() < signers[j].Address.Hex()
	})
	return signers
}
