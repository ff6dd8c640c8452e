// Package adapter answers checkpoint questions for one chain: how far behind
// checkpointing is, which checkpoints exist, and whether a block is covered.
//
// An Adapter is the error boundary of the resolution pipeline. Failures below
// it propagate; GetStatus and CheckProof turn them into structured answers.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openintents/checkpoint-viewer/internal/chainclient"
	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/enrich"
	"github.com/openintents/checkpoint-viewer/pkg/logfetch"
	"github.com/openintents/checkpoint-viewer/pkg/metrics"
	"github.com/openintents/checkpoint-viewer/pkg/resolver"
)

var (
	ErrNilProvider     = errors.New("client provider cannot be nil")
	ErrNilFetcher      = errors.New("log fetcher cannot be nil")
	ErrUnknownProtocol = errors.New("unknown protocol")
)

// Adapter is implemented once per protocol family.
type Adapter interface {
	Config() chains.ChainConfig
	// GetStatus never fails; on error IsConnected is false and Error is set.
	GetStatus(ctx context.Context, dir types.Direction) types.ChainStatus
	// GetCheckpoints returns the newest checkpoints in the scan window,
	// largest BlockNumber first. A limit of 0 returns all of them.
	GetCheckpoints(ctx context.Context, dir types.Direction, limit int) ([]types.Checkpoint, error)
	// CheckProof never fails; on error Exists is false and Error is set.
	CheckProof(ctx context.Context, dir types.Direction, block uint64) types.ProofResult
	// Debug reports raw evidence counts for every enabled direction.
	Debug(ctx context.Context) []DirectionReport
}

// Deps are the collaborators shared by every adapter.
type Deps struct {
	Clients  *chainclient.Provider
	Fetcher  *logfetch.Fetcher
	Enricher *enrich.Enricher // optional
	Log      *zap.SugaredLogger
	Metrics  *metrics.Metrics

	// ProbeAmbiguity scans the lower-priority finalization schemas after a
	// match and warns when they also have events in the window.
	ProbeAmbiguity bool
}

func (d Deps) validate() error {
	if d.Clients == nil {
		return ErrNilProvider
	}
	if d.Fetcher == nil {
		return ErrNilFetcher
	}
	return nil
}

// DirectionReport is the diagnostic view of one direction.
type DirectionReport struct {
	Direction    types.Direction `json:"direction"`
	Contract     string          `json:"contract"`
	Layer        types.Layer     `json:"layer"`
	CurrentBlock *uint64         `json:"currentBlock,omitempty"`
	EventsFound  map[string]int  `json:"eventsFound,omitempty"`
	Error        string          `json:"error,omitempty"`
}

type state string

const (
	stateFetching  state = "fetching"
	stateResolving state = "resolving"
	stateReady     state = "ready"
	stateNotReady  state = "not_ready"
	stateErrored   state = "errored"
)

// chain is the protocol-independent pipeline. Protocol constructors only
// decide which source serves each direction.
type chain struct {
	layers
	deps    Deps
	log     *zap.SugaredLogger
	sources map[types.Direction]source
}

func newChain(cfg chains.ChainConfig, deps Deps) (*chain, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	return &chain{
		layers:  layers{cfg: cfg, provider: deps.Clients},
		deps:    deps,
		log:     deps.Log.With("chain", cfg.ID),
		sources: make(map[types.Direction]source, len(types.Directions)),
	}, nil
}

func (c *chain) Config() chains.ChainConfig {
	return c.cfg
}

func (c *chain) source(dir types.Direction) (source, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidDirection, dir)
	}
	s, ok := c.sources[dir]
	if !ok || !c.cfg.Supports(dir) {
		return nil, types.ErrUnsupportedDirection
	}
	return s, nil
}

func (c *chain) trace(dir types.Direction, s state, kv ...any) {
	c.log.Debugw("checkpoint query", append([]any{"direction", dir, "state", s}, kv...)...)
}

func (c *chain) wrap(dir types.Direction, err error) *types.AdapterError {
	return &types.AdapterError{Chain: c.cfg.ID, Direction: dir, Err: err}
}

func (c *chain) GetStatus(ctx context.Context, dir types.Direction) types.ChainStatus {
	st := types.ChainStatus{
		ChainName:       c.cfg.Name,
		Direction:       dir,
		ContractAddress: c.cfg.ContractFor(dir),
	}
	fail := func(err error) types.ChainStatus {
		aerr := c.wrap(dir, err)
		c.trace(dir, stateErrored, "error", aerr)
		c.log.Warnw("status unavailable", "direction", dir, "error", err)
		c.deps.Metrics.UpdateStatus(c.cfg.ID, string(dir), false, nil)
		st.Error = aerr.Error()
		return st
	}

	src, err := c.source(dir)
	if err != nil {
		return fail(err)
	}

	c.trace(dir, stateFetching)
	var (
		head uint64
		cps  []types.Checkpoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		client, err := c.client(gctx, dir.SourceLayer())
		if err != nil {
			return err
		}
		n, err := client.BlockNumber(gctx)
		if err != nil {
			return transport("eth_blockNumber", err)
		}
		head = n
		return nil
	})
	g.Go(func() error {
		var err error
		cps, err = src.fetch(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	st.IsConnected = true
	st.CurrentBlock = types.Ptr(head)
	st.TotalCheckpoints = len(cps)
	if len(cps) > 0 {
		latest := resolver.SortDescending(cps)[0]
		st.LatestCheckpoint = c.enrichOne(ctx, dir, &latest)
		var behind uint64
		if head > latest.BlockNumber {
			behind = head - latest.BlockNumber
		}
		st.BlocksBehind = types.Ptr(behind)
	}
	c.deps.Metrics.UpdateStatus(c.cfg.ID, string(dir), true, st.BlocksBehind)
	return st
}

func (c *chain) GetCheckpoints(ctx context.Context, dir types.Direction, limit int) ([]types.Checkpoint, error) {
	src, err := c.source(dir)
	if err != nil {
		return nil, c.wrap(dir, err)
	}
	c.trace(dir, stateFetching, "limit", limit)
	cps, err := src.fetch(ctx)
	if err != nil {
		return nil, c.wrap(dir, err)
	}
	cps = resolver.SortDescending(cps)
	if limit > 0 && len(cps) > limit {
		cps = cps[:limit]
	}
	return c.enrich(ctx, dir, cps), nil
}

func (c *chain) CheckProof(ctx context.Context, dir types.Direction, block uint64) types.ProofResult {
	res := types.ProofResult{BlockNumber: block}

	src, err := c.source(dir)
	if err != nil {
		res.Error = c.wrap(dir, err).Error()
		return res
	}

	c.trace(dir, stateFetching, "block", block)
	cps, err := src.fetch(ctx)
	if err != nil {
		aerr := c.wrap(dir, err)
		c.trace(dir, stateErrored, "error", aerr)
		c.deps.Metrics.RecordCoverage(c.cfg.ID, string(dir), metrics.CoverageError, 0)
		res.Error = aerr.Error()
		return res
	}

	c.trace(dir, stateResolving, "checkpoints", len(cps))
	cov := src.cover(cps, block)
	if pb, ok := cov.ProofBlock(); ok {
		cp := c.enrichOne(ctx, dir, cov.Checkpoint)
		res.Exists = true
		res.ProofBlock = types.Ptr(pb)
		res.BlockHash = types.Ptr(cp.BlockHash)
		res.StateRoot = types.Ptr(cp.StateRoot)
		res.Checkpoint = cp
		c.trace(dir, stateReady, "proofBlock", pb)
		c.deps.Metrics.RecordCoverage(c.cfg.ID, string(dir), metrics.CoverageReady, 0)
		return res
	}

	if cov.Latest != nil {
		res.LatestCheckpoint = c.enrichOne(ctx, dir, cov.Latest)
		res.BlocksAhead = types.Ptr(cov.Gap)
	}
	if cov.Next != nil {
		res.NextAvailable = types.Ptr(cov.Next.BlockNumber)
	}
	res.CurrentBlock = c.sourceHead(ctx, dir)
	res.Error = NotReadyMessage(cov)
	c.trace(dir, stateNotReady, "gap", cov.Gap)
	c.deps.Metrics.RecordCoverage(c.cfg.ID, string(dir), metrics.CoverageNotReady, cov.Gap)
	return res
}

// NotReadyMessage explains a not-ready verdict in user terms.
func NotReadyMessage(cov resolver.Coverage) string {
	switch {
	case cov.Latest != nil:
		return fmt.Sprintf(
			"Block %d is not yet checkpointed. Latest checkpoint: %d. Your block is %d blocks ahead of the latest checkpoint.",
			cov.Target, cov.Latest.BlockNumber, cov.Gap,
		)
	case cov.Next != nil:
		return fmt.Sprintf(
			"Block %d is outside the accessible window. Oldest accessible block: %d.",
			cov.Target, cov.Next.BlockNumber,
		)
	default:
		return fmt.Sprintf("Block %d is not yet checkpointed. No recent checkpoints found.", cov.Target)
	}
}

func (c *chain) Debug(ctx context.Context) []DirectionReport {
	dirs := c.cfg.EnabledDirections()
	out := make([]DirectionReport, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	for i, dir := range dirs {
		out[i] = DirectionReport{
			Direction: dir,
			Contract:  c.cfg.ContractFor(dir).Hex(),
			Layer:     dir.CommittingLayer(),
		}
		g.Go(func() error {
			out[i].CurrentBlock, out[i].EventsFound, out[i].Error = c.inspect(gctx, dir)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (c *chain) inspect(ctx context.Context, dir types.Direction) (*uint64, map[string]int, string) {
	src, err := c.source(dir)
	if err != nil {
		return nil, nil, err.Error()
	}
	client, err := c.client(ctx, dir.CommittingLayer())
	if err != nil {
		return nil, nil, err.Error()
	}
	head, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, nil, transport("eth_blockNumber", err).Error()
	}
	counts, err := src.inspect(ctx)
	if err != nil {
		return &head, nil, err.Error()
	}
	return &head, counts, ""
}

// sourceHead is the latest source-layer block, or nil when the node cannot
// be reached. It only decorates a not-ready answer, so failures are logged.
func (c *chain) sourceHead(ctx context.Context, dir types.Direction) *uint64 {
	client, err := c.client(ctx, dir.SourceLayer())
	if err == nil {
		var head uint64
		if head, err = client.BlockNumber(ctx); err == nil {
			return &head
		}
	}
	c.log.Warnw("failed to read source head", "chain", c.cfg.ID, "direction", dir, "error", err)
	return nil
}

// enricherClient returns the committing-layer client and chain ID used for
// timestamp lookups; ok is false when enrichment is off or unavailable.
func (c *chain) enricherClient(ctx context.Context, dir types.Direction) (chainclient.ChainClient, uint64, bool) {
	if c.deps.Enricher == nil {
		return nil, 0, false
	}
	layer := dir.CommittingLayer()
	client, err := c.client(ctx, layer)
	if err != nil {
		c.log.Warnw("skipping timestamp enrichment", "direction", dir, "error", err)
		return nil, 0, false
	}
	return client, c.cfg.Layer(layer).ChainID, true
}

func (c *chain) enrich(ctx context.Context, dir types.Direction, cps []types.Checkpoint) []types.Checkpoint {
	if len(cps) == 0 {
		return cps
	}
	client, chainID, ok := c.enricherClient(ctx, dir)
	if !ok {
		return cps
	}
	return c.deps.Enricher.Timestamps(ctx, client, chainID, cps)
}

func (c *chain) enrichOne(ctx context.Context, dir types.Direction, cp *types.Checkpoint) *types.Checkpoint {
	client, chainID, ok := c.enricherClient(ctx, dir)
	if !ok {
		out := *cp
		return &out
	}
	return c.deps.Enricher.Checkpoint(ctx, client, chainID, cp)
}

func transport(method string, err error) error {
	if errors.Is(err, types.ErrTransport) {
		return err
	}
	return &types.TransportError{Method: method, Err: err}
}

// New builds the adapter for cfg.Protocol.
func New(cfg chains.ChainConfig, deps Deps) (Adapter, error) {
	switch cfg.Protocol {
	case chains.ProtocolTaiko:
		return NewTaiko(cfg, deps)
	case chains.ProtocolLinea:
		return NewLinea(cfg, deps)
	case chains.ProtocolArbitrum:
		return NewArbitrum(cfg, deps)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, cfg.Protocol)
	}
}
