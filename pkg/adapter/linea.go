package adapter

import (
	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/normalizer"
)

// NewLinea reads L2 finalizations from the rollup contract on L1 and treats
// recent L1 blocks as readable from L2 through the message service.
func NewLinea(cfg chains.ChainConfig, deps Deps) (Adapter, error) {
	c, err := newChain(cfg, deps)
	if err != nil {
		return nil, err
	}
	c.sources[types.L2ToL1] = rangeSource{
		eventSource: eventSource{layers: c.layers, deps: c.deps, dir: types.L2ToL1},
		variants:    normalizer.LineaFinalization,
	}
	c.sources[types.L1ToL2] = accessibleSource{layers: c.layers, deps: c.deps, dir: types.L1ToL2}
	return c, nil
}
