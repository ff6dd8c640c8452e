// Package enrich decorates checkpoints with the time they were recorded.
package enrich

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openintents/checkpoint-viewer/internal/chainclient"
	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/metrics"
)

const (
	DefaultCacheSize  = 4096
	headerConcurrency = 5
)

type blockKey struct {
	chainID uint64
	number  uint64
}

// Enricher looks up committing-layer block timestamps. Timestamps of a block
// number are cached per chain; a reorg can shift them by a few seconds at most.
type Enricher struct {
	cache   *lru.Cache[blockKey, time.Time]
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

func New(size int, log *zap.SugaredLogger, m *metrics.Metrics) (*Enricher, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[blockKey, time.Time](size)
	if err != nil {
		return nil, err
	}
	return &Enricher{cache: cache, log: log, metrics: m}, nil
}

// Timestamps returns a copy of cps with CheckpointedAt filled from the headers
// of the committing layer c. Lookup failures are logged and leave the field
// unset; they never fail the call.
func (e *Enricher) Timestamps(ctx context.Context, c chainclient.ChainClient, chainID uint64, cps []types.Checkpoint) []types.Checkpoint {
	out := make([]types.Checkpoint, len(cps))
	copy(out, cps)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(headerConcurrency)
	for i := range out {
		if out[i].CheckpointedAt != nil || out[i].CheckpointedInBlock == 0 {
			continue
		}
		g.Go(func() error {
			if at, ok := e.timestamp(gctx, c, chainID, out[i].CheckpointedInBlock); ok {
				out[i].CheckpointedAt = &at
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Checkpoint enriches a single checkpoint; nil passes through.
func (e *Enricher) Checkpoint(ctx context.Context, c chainclient.ChainClient, chainID uint64, cp *types.Checkpoint) *types.Checkpoint {
	if cp == nil {
		return nil
	}
	out := e.Timestamps(ctx, c, chainID, []types.Checkpoint{*cp})
	return &out[0]
}

func (e *Enricher) timestamp(ctx context.Context, c chainclient.ChainClient, chainID, number uint64) (time.Time, bool) {
	key := blockKey{chainID: chainID, number: number}
	if at, ok := e.cache.Get(key); ok {
		e.metrics.RecordEnrichmentCache(true)
		return at, true
	}
	e.metrics.RecordEnrichmentCache(false)

	h, err := c.HeaderByNumber(ctx, number)
	if err != nil {
		e.metrics.IncEnrichmentFailure()
		e.log.Warnw("failed to fetch checkpoint timestamp",
			"chainId", chainID,
			"block", number,
			"error", err,
		)
		return time.Time{}, false
	}
	at := h.Timestamp()
	e.cache.Add(key, at)
	return at, true
}
