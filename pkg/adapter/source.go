package adapter

import (
	"context"
	"fmt"

	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/openintents/checkpoint-viewer/internal/chainclient"
	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/logfetch"
	"github.com/openintents/checkpoint-viewer/pkg/normalizer"
	"github.com/openintents/checkpoint-viewer/pkg/resolver"
)

// source produces the checkpoints of one direction. Implementations hold only
// configuration; every call scans afresh.
type source interface {
	// fetch returns every checkpoint visible in the current window, unordered.
	fetch(ctx context.Context) ([]types.Checkpoint, error)
	// cover applies the coverage rule that matches how fetch builds checkpoints.
	cover(cps []types.Checkpoint, target uint64) resolver.Coverage
	// inspect counts raw evidence per schema without normalizing it.
	inspect(ctx context.Context) (map[string]int, error)
}

// layers resolves the clients of one chain through the shared provider.
type layers struct {
	cfg      chains.ChainConfig
	provider *chainclient.Provider
}

func (l layers) client(ctx context.Context, layer types.Layer) (chainclient.ChainClient, error) {
	c, err := l.provider.Get(ctx, l.cfg.ID, layer, l.cfg.Layer(layer).RPC)
	if err != nil {
		return nil, &types.TransportError{Method: "dial", Err: err}
	}
	return c, nil
}

// eventSource reads one exact-checkpoint event from the committing layer.
type eventSource struct {
	layers
	deps   Deps
	dir    types.Direction
	schema normalizer.Schema
}

func (s eventSource) query(schema normalizer.Schema) logfetch.Query {
	return logfetch.Query{
		Chain:   s.cfg.ID,
		Address: s.cfg.ContractFor(s.dir),
		Event:   schema.Event,
	}
}

func (s eventSource) normalized(ctx context.Context) ([]types.Checkpoint, error) {
	c, err := s.client(ctx, s.dir.CommittingLayer())
	if err != nil {
		return nil, err
	}
	logs, _, err := s.deps.Fetcher.Fetch(ctx, c, s.query(s.schema), s.cfg.Window(s.dir))
	if err != nil {
		return nil, err
	}
	return s.schema.Normalize(logs)
}

func (s eventSource) fetch(ctx context.Context) ([]types.Checkpoint, error) {
	cps, err := s.normalized(ctx)
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.AddCheckpointsNormalized(s.cfg.ID, s.schema.Name, len(cps))
	return cps, nil
}

func (eventSource) cover(cps []types.Checkpoint, target uint64) resolver.Coverage {
	return resolver.FindCoverage(cps, target)
}

func (s eventSource) inspect(ctx context.Context) (map[string]int, error) {
	c, err := s.client(ctx, s.dir.CommittingLayer())
	if err != nil {
		return nil, err
	}
	logs, _, err := s.deps.Fetcher.Fetch(ctx, c, s.query(s.schema), s.cfg.Window(s.dir))
	if err != nil {
		return nil, err
	}
	return map[string]int{s.schema.Name: len(logs)}, nil
}

// rangeSource tries range-finalization schemas newest first and keeps the
// first one with results.
type rangeSource struct {
	eventSource
	variants normalizer.Variants
}

func (s rangeSource) scanner(ctx context.Context) (normalizer.ScanFunc, error) {
	c, err := s.client(ctx, s.dir.CommittingLayer())
	if err != nil {
		return nil, err
	}
	w, err := s.deps.Fetcher.Window(ctx, c, s.cfg.Window(s.dir))
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, schema normalizer.Schema) ([]gethtypes.Log, error) {
		return s.deps.Fetcher.Logs(ctx, c, w, s.query(schema))
	}, nil
}

func (s rangeSource) fetch(ctx context.Context) ([]types.Checkpoint, error) {
	scan, err := s.scanner(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.variants.First(ctx, scan)
	if err != nil {
		return nil, err
	}
	if len(m.Checkpoints) == 0 {
		return nil, nil
	}

	s.deps.Metrics.AddCheckpointsNormalized(s.cfg.ID, m.Schema.Name, len(m.Checkpoints))
	if len(m.Missed) > 0 {
		s.deps.Metrics.IncSchemaFallback(s.cfg.ID, m.Schema.Name)
		s.deps.Log.Debugw("using fallback finalization schema",
			"chain", s.cfg.ID,
			"schema", m.Schema.Name,
			"missed", m.Missed,
		)
	}
	if s.deps.ProbeAmbiguity {
		if err := s.variants.Ambiguity(ctx, m.Schema.Name, scan); err != nil {
			s.deps.Metrics.IncSchemaAmbiguous(s.cfg.ID)
			s.deps.Log.Warnw("multiple finalization schemas in window",
				"chain", s.cfg.ID,
				"direction", s.dir,
				"error", err,
			)
		}
	}
	return m.Checkpoints, nil
}

func (s rangeSource) inspect(ctx context.Context) (map[string]int, error) {
	scan, err := s.scanner(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(s.variants))
	for _, schema := range s.variants {
		logs, err := scan(ctx, schema)
		if err != nil {
			return nil, err
		}
		counts[schema.Name] = len(logs)
	}
	return counts, nil
}

// sendRootSource reads send-root updates from the committing layer and maps
// each attested source block hash back to its number.
type sendRootSource struct {
	eventSource
}

func (s sendRootSource) fetch(ctx context.Context) ([]types.Checkpoint, error) {
	raw, err := s.normalized(ctx)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	c, err := s.client(ctx, s.dir.SourceLayer())
	if err != nil {
		return nil, err
	}
	cps, err := normalizer.ResolveSendRoots(ctx, c, raw)
	if err != nil {
		return nil, err
	}
	if dropped := len(raw) - len(cps); dropped > 0 {
		s.deps.Log.Debugw("dropped unknown send root blocks", "chain", s.cfg.ID, "count", dropped)
	}
	s.deps.Metrics.AddCheckpointsNormalized(s.cfg.ID, s.schema.Name, len(cps))
	return cps, nil
}

// accessibleSource samples the newest source-layer blocks, which the
// committing layer can read directly.
type accessibleSource struct {
	layers
	deps Deps
	dir  types.Direction
}

func (s accessibleSource) fetch(ctx context.Context) ([]types.Checkpoint, error) {
	c, err := s.client(ctx, s.dir.SourceLayer())
	if err != nil {
		return nil, err
	}
	head, err := c.BlockNumber(ctx)
	if err != nil {
		return nil, transport("eth_blockNumber", err)
	}
	cps, err := normalizer.Sample(ctx, c, head, s.cfg.Window(s.dir))
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", s.dir.SourceLayer(), err)
	}
	s.deps.Metrics.AddCheckpointsNormalized(s.cfg.ID, normalizer.AccessibleSchema, len(cps))
	return cps, nil
}

func (accessibleSource) cover(cps []types.Checkpoint, target uint64) resolver.Coverage {
	return resolver.FindAccessible(cps, target)
}

func (s accessibleSource) inspect(ctx context.Context) (map[string]int, error) {
	cps, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]int{normalizer.AccessibleSchema: len(cps)}, nil
}
