package adapter

import (
	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/normalizer"
)

// NewTaiko serves both directions from the SignalService CheckpointSaved
// events on the committing layer.
func NewTaiko(cfg chains.ChainConfig, deps Deps) (Adapter, error) {
	c, err := newChain(cfg, deps)
	if err != nil {
		return nil, err
	}
	for _, dir := range types.Directions {
		c.sources[dir] = eventSource{
			layers: c.layers,
			deps:   c.deps,
			dir:    dir,
			schema: normalizer.CheckpointSaved,
		}
	}
	return c, nil
}
