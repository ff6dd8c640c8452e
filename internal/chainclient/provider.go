package chainclient

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openintents/checkpoint-viewer/internal/types"
)

var ErrEmptyEndpoint = errors.New("empty rpc endpoint")

// Dialer opens a client for an RPC endpoint.
type Dialer func(ctx context.Context, url string) (ChainClient, error)

type key struct {
	chain string
	layer types.Layer
}

// Provider hands out one client per (chain, layer), dialing lazily on first use.
// Clients live until Close.
type Provider struct {
	dial Dialer

	mu      sync.Mutex
	clients map[key]ChainClient
}

func NewProvider(dial Dialer) *Provider {
	return &Provider{
		dial:    dial,
		clients: make(map[key]ChainClient),
	}
}

// Get returns the cached client for chain/layer or dials url.
func (p *Provider) Get(ctx context.Context, chain string, layer types.Layer, url string) (ChainClient, error) {
	if url == "" {
		return nil, fmt.Errorf("%s %s: %w", chain, layer, ErrEmptyEndpoint)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	k := key{chain: chain, layer: layer}
	if c, ok := p.clients[k]; ok {
		return c, nil
	}

	c, err := p.dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", chain, layer, err)
	}
	p.clients[k] = c
	return c, nil
}

// Close closes every dialed client.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, c := range p.clients {
		c.Close()
		delete(p.clients, k)
	}
}
