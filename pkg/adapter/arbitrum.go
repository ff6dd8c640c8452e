package adapter

import (
	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/normalizer"
)

// NewArbitrum reads Outbox send roots on L1 for L2 blocks, and treats recent
// L1 blocks as readable from L2.
func NewArbitrum(cfg chains.ChainConfig, deps Deps) (Adapter, error) {
	c, err := newChain(cfg, deps)
	if err != nil {
		return nil, err
	}
	c.sources[types.L2ToL1] = sendRootSource{eventSource{
		layers: c.layers,
		deps:   c.deps,
		dir:    types.L2ToL1,
		schema: normalizer.SendRootUpdated,
	}}
	c.sources[types.L1ToL2] = accessibleSource{layers: c.layers, deps: c.deps, dir: types.L1ToL2}
	return c, nil
}
