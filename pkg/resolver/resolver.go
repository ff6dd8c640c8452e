// Package resolver decides which checkpoint covers a block.
package resolver

import (
	"slices"

	"github.com/openintents/checkpoint-viewer/internal/types"
)

// Coverage is the verdict for one target block.
type Coverage struct {
	Target uint64
	Ready  bool
	// Checkpoint is the covering checkpoint when Ready. Its BlockNumber is the
	// block a storage proof must target.
	Checkpoint *types.Checkpoint
	// Latest is the greatest checkpoint below Target when not Ready.
	Latest *types.Checkpoint
	// Next is the earliest checkpoint above Target when not Ready. Only
	// window-bounded rules can produce it; it never flips the verdict.
	Next *types.Checkpoint
	// Gap is Target minus Latest.BlockNumber, zero when Latest is nil.
	Gap uint64
}

// ProofBlock returns the block a proof must be generated against.
func (c Coverage) ProofBlock() (uint64, bool) {
	if !c.Ready || c.Checkpoint == nil {
		return 0, false
	}
	return c.Checkpoint.BlockNumber, true
}

// preferred orders a before b: larger BlockNumber first, then the more
// recently recorded attestation, then the later log in that block.
func preferred(a, b types.Checkpoint) int {
	switch {
	case a.BlockNumber != b.BlockNumber:
		return cmpDesc(a.BlockNumber, b.BlockNumber)
	case a.CheckpointedInBlock != b.CheckpointedInBlock:
		return cmpDesc(a.CheckpointedInBlock, b.CheckpointedInBlock)
	default:
		return cmpDesc(uint64(a.LogIndex), uint64(b.LogIndex))
	}
}

func cmpDesc(a, b uint64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

// SortDescending returns a sorted copy, newest attested block first.
func SortDescending(cps []types.Checkpoint) []types.Checkpoint {
	out := slices.Clone(cps)
	slices.SortStableFunc(out, preferred)
	return out
}

// FindCoverage applies the event-backed coverage rule: the target is covered
// by the checkpoint with the smallest BlockNumber >= target. Among equal block
// numbers the attestation recorded later wins.
//
// For range-finalizing protocols this treats every block up to a range end as
// covered without checking the range start.
func FindCoverage(cps []types.Checkpoint, target uint64) Coverage {
	cov := Coverage{Target: target}
	var best, latest *types.Checkpoint
	for i := range cps {
		cp := &cps[i]
		if cp.BlockNumber >= target {
			if best == nil || cp.BlockNumber < best.BlockNumber ||
				(cp.BlockNumber == best.BlockNumber && preferred(*cp, *best) < 0) {
				best = cp
			}
			continue
		}
		if latest == nil || preferred(*cp, *latest) < 0 {
			latest = cp
		}
	}

	if best != nil {
		c := *best
		cov.Ready = true
		cov.Checkpoint = &c
		return cov
	}
	if latest != nil {
		c := *latest
		cov.Latest = &c
		cov.Gap = target - c.BlockNumber
	}
	return cov
}

// FindAccessible applies the window-bounded rule used when checkpoints are
// sampled recent blocks: only a block inside the sample is covered, and it is
// its own proof block. Targets older than the sample are not ready with Next
// set to the oldest sampled block; targets newer than the sample are not
// ready with Latest set to the newest one.
func FindAccessible(cps []types.Checkpoint, target uint64) Coverage {
	cov := Coverage{Target: target}
	var oldest, newest *types.Checkpoint
	for i := range cps {
		cp := &cps[i]
		if cp.BlockNumber == target {
			c := *cp
			cov.Ready = true
			cov.Checkpoint = &c
			return cov
		}
		if oldest == nil || cp.BlockNumber < oldest.BlockNumber {
			oldest = cp
		}
		if newest == nil || cp.BlockNumber > newest.BlockNumber {
			newest = cp
		}
	}

	switch {
	case newest != nil && target > newest.BlockNumber:
		c := *newest
		cov.Latest = &c
		cov.Gap = target - c.BlockNumber
	case oldest != nil && target < oldest.BlockNumber:
		c := *oldest
		cov.Next = &c
	}
	return cov
}
