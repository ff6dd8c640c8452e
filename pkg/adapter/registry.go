package adapter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/openintents/checkpoint-viewer/pkg/chains"
)

var ErrUnknownChain = errors.New("unknown chain")

// Factory builds the adapter of one chain.
type Factory func(cfg chains.ChainConfig) (Adapter, error)

// Registry creates one adapter per chain on first use and keeps it for the
// life of the process.
type Registry struct {
	configs []chains.ChainConfig
	factory Factory

	mu       sync.Mutex
	adapters map[string]Adapter
}

// NewRegistry serves the given chains with adapters built from deps.
func NewRegistry(cfgs []chains.ChainConfig, deps Deps) *Registry {
	return NewRegistryWithFactory(cfgs, func(cfg chains.ChainConfig) (Adapter, error) {
		return New(cfg, deps)
	})
}

func NewRegistryWithFactory(cfgs []chains.ChainConfig, factory Factory) *Registry {
	return &Registry{
		configs:  cfgs,
		factory:  factory,
		adapters: make(map[string]Adapter, len(cfgs)),
	}
}

// Get returns the adapter for chainID, building it on first request.
func (r *Registry) Get(chainID string) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[chainID]; ok {
		return a, nil
	}
	for _, cfg := range r.configs {
		if cfg.ID != chainID {
			continue
		}
		a, err := r.factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("build %s adapter: %w", chainID, err)
		}
		r.adapters[chainID] = a
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChain, chainID)
}

// List returns the adapters of every configured chain in configuration order.
// Chains whose adapter cannot be built are left out.
func (r *Registry) List() []Adapter {
	out := make([]Adapter, 0, len(r.configs))
	for _, cfg := range r.configs {
		a, err := r.Get(cfg.ID)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Configs returns the configured chains.
func (r *Registry) Configs() []chains.ChainConfig {
	return r.configs
}
