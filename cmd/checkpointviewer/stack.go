package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/openintents/checkpoint-viewer/internal/chainclient"
	"github.com/openintents/checkpoint-viewer/internal/chainclient/evm"
	"github.com/openintents/checkpoint-viewer/pkg/adapter"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/enrich"
	"github.com/openintents/checkpoint-viewer/pkg/logfetch"
	"github.com/openintents/checkpoint-viewer/pkg/metrics"
	"github.com/openintents/checkpoint-viewer/pkg/proof"
)

// stack is the resolution engine shared by serve and the one-shot commands.
type stack struct {
	clients  *chainclient.Provider
	registry *adapter.Registry
	prover   *proof.Service
}

// newStack wires the chain clients, fetcher, enricher and adapters for the
// chains of cfg.Network that have RPC endpoints and contracts configured.
// m may be nil.
func newStack(cfg *Config, log *zap.SugaredLogger, m *metrics.Metrics) (*stack, error) {
	all, err := chains.Load(cfg.Network, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load chain config: %w", err)
	}
	supported := chains.Supported(all, log)
	if len(supported) == 0 {
		return nil, fmt.Errorf("no %s chain is configured, set <CHAIN>_L1_RPC and <CHAIN>_L2_RPC", cfg.Network)
	}

	clients := chainclient.NewProvider(evm.Dialer(cfg.RPC, evm.WithMetrics(m), evm.WithLogger(log)))
	enricher, err := enrich.New(cfg.EnrichCacheSize, log, m)
	if err != nil {
		clients.Close()
		return nil, fmt.Errorf("failed to create enricher: %w", err)
	}

	registry := adapter.NewRegistry(supported, adapter.Deps{
		Clients:        clients,
		Fetcher:        logfetch.New(log, m),
		Enricher:       enricher,
		Log:            log,
		Metrics:        m,
		ProbeAmbiguity: cfg.ProbeAmbiguity,
	})

	return &stack{
		clients:  clients,
		registry: registry,
		prover:   proof.NewService(registry, proof.NewEthGenerator(cfg.RPC, evm.WithMetrics(m), evm.WithLogger(log)), log),
	}, nil
}

func (s *stack) Close() {
	s.clients.Close()
}
