package normalizer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum"
	"golang.org/x/sync/errgroup"

	"github.com/openintents/checkpoint-viewer/internal/chainclient"
	"github.com/openintents/checkpoint-viewer/internal/types"
)

const (
	// AccessibleSchema tags checkpoints synthesized from recent headers.
	AccessibleSchema = "accessible"

	sampleConcurrency = 5
	unresolved        = math.MaxUint64
)

// Sample synthesizes one checkpoint per header for the n most recent blocks
// ending at head, newest first. Every sampled block is its own checkpoint,
// recorded in itself. Blocks the node no longer serves end the sample early.
func Sample(ctx context.Context, c chainclient.ChainClient, head, n uint64) ([]types.Checkpoint, error) {
	if n == 0 {
		return nil, nil
	}
	count := min(n, head+1)

	headers := make([]*types.BlockHeader, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sampleConcurrency)
	for i := uint64(0); i < count; i++ {
		g.Go(func() error {
			h, err := c.HeaderByNumber(gctx, head-i)
			if errors.Is(err, ethereum.NotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("sample block %d: %w", head-i, err)
			}
			headers[i] = &h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]types.Checkpoint, 0, count)
	for _, h := range headers {
		if h == nil {
			break
		}
		at := h.Timestamp()
		out = append(out, types.Checkpoint{
			BlockNumber:         h.Number,
			BlockHash:           h.Hash,
			StateRoot:           h.StateRoot,
			CheckpointedInBlock: h.Number,
			CheckpointedAt:      &at,
			Schema:              AccessibleSchema,
		})
	}
	return out, nil
}

// ResolveSendRoots fills in the block number and state root of send-root
// checkpoints by looking up their block hash on the source layer. Hashes the
// node does not know (reorged away) are dropped.
func ResolveSendRoots(ctx context.Context, c chainclient.ChainClient, cps []types.Checkpoint) ([]types.Checkpoint, error) {
	resolved := make([]*types.Checkpoint, len(cps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sampleConcurrency)
	for i, cp := range cps {
		g.Go(func() error {
			h, err := c.HeaderByHash(gctx, cp.BlockHash)
			if errors.Is(err, ethereum.NotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("resolve l2 block %s: %w", cp.BlockHash, err)
			}
			cp.BlockNumber = h.Number
			cp.StateRoot = h.StateRoot
			resolved[i] = &cp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]types.Checkpoint, 0, len(cps))
	for _, cp := range resolved {
		if cp != nil && cp.BlockNumber != unresolved {
			out = append(out, *cp)
		}
	}
	return out, nil
}
