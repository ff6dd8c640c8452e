package chains

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// EnvPrefix is the variable prefix for a chain, e.g. TAIKO_ for TAIKO_L1_RPC.
func EnvPrefix(id string) string {
	return strings.ToUpper(id) + "_"
}

// Load builds the chain table for n and applies environment overrides.
// A nil environ reads the process environment.
func Load(n Network, environ map[string]string) ([]ChainConfig, error) {
	cfgs := Defaults(n)
	for i := range cfgs {
		opts := env.Options{
			Prefix:      EnvPrefix(cfgs[i].ID),
			Environment: environ,
		}
		if err := env.ParseWithOptions(&cfgs[i], opts); err != nil {
			return nil, fmt.Errorf("parse %s overrides: %w", cfgs[i].ID, err)
		}
	}
	return cfgs, nil
}

// Supported keeps the chains whose configuration validates, logging the rest.
func Supported(cfgs []ChainConfig, log *zap.SugaredLogger) []ChainConfig {
	out := make([]ChainConfig, 0, len(cfgs))
	for _, c := range cfgs {
		if err := c.Validate(); err != nil {
			log.Infow("chain not configured, skipping", "chain", c.ID, "reason", err)
			continue
		}
		out = append(out, c)
	}
	return out
}
