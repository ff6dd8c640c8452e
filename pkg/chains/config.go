package chains

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openintents/checkpoint-viewer/internal/types"
)

// Protocol selects the checkpoint discovery strategy of a chain.
type Protocol string

const (
	ProtocolTaiko    Protocol = "taiko"
	ProtocolLinea    Protocol = "linea"
	ProtocolArbitrum Protocol = "arbitrum"
)

var (
	ErrMissingRPC     = errors.New("missing rpc endpoint")
	ErrMissingAddress = errors.New("missing contract address")
	ErrNoDirections   = errors.New("no direction enabled")
)

// LayerConfig describes one side of a rollup pair.
type LayerConfig struct {
	Address     common.Address `env:"ADDRESS" json:"address"`
	RPC         string         `env:"RPC" json:"-"`
	ChainID     uint64         `env:"CHAIN_ID" json:"chainId"`
	ExplorerURL string         `env:"EXPLORER_URL" json:"explorerUrl"`
	BlockTime   time.Duration  `env:"BLOCK_TIME" json:"blockTime"`
}

// DirectionSupport flags which directions a chain answers for.
type DirectionSupport struct {
	L1ToL2 bool `env:"L1_TO_L2_ENABLED" json:"l1ToL2"`
	L2ToL1 bool `env:"L2_TO_L1_ENABLED" json:"l2ToL1"`
}

// Windows bounds every scan. For event-backed directions the value is a block
// lookback; for accessibility-backed directions it is the number of recent
// source blocks sampled.
type Windows struct {
	L1ToL2 uint64 `env:"L1_TO_L2_WINDOW" json:"l1ToL2"`
	L2ToL1 uint64 `env:"L2_TO_L1_WINDOW" json:"l2ToL1"`
}

// ChainConfig is built once at startup and never mutated afterwards.
type ChainConfig struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	ShortName       string           `json:"shortName"`
	Protocol        Protocol         `json:"protocol"`
	Directions      DirectionSupport `json:"directions"`
	L1              LayerConfig      `envPrefix:"L1_" json:"l1"`
	L2              LayerConfig      `envPrefix:"L2_" json:"l2"`
	CheckpointsSlot uint64           `env:"CHECKPOINTS_SLOT" json:"checkpointsSlot"`
	Windows         Windows          `json:"windows"`
}

// Layer returns the configuration of l.
func (c ChainConfig) Layer(l types.Layer) LayerConfig {
	if l == types.LayerL2 {
		return c.L2
	}
	return c.L1
}

// Supports reports whether d is enabled for the chain.
func (c ChainConfig) Supports(d types.Direction) bool {
	switch d {
	case types.L1ToL2:
		return c.Directions.L1ToL2
	case types.L2ToL1:
		return c.Directions.L2ToL1
	default:
		return false
	}
}

// Window returns the scan bound configured for d.
func (c ChainConfig) Window(d types.Direction) uint64 {
	if d == types.L2ToL1 {
		return c.Windows.L2ToL1
	}
	return c.Windows.L1ToL2
}

// ContractFor is the contract holding checkpoints for d, which lives on the
// committing layer.
func (c ChainConfig) ContractFor(d types.Direction) common.Address {
	return c.Layer(d.CommittingLayer()).Address
}

// EnabledDirections lists the enabled directions in stable order.
func (c ChainConfig) EnabledDirections() []types.Direction {
	var out []types.Direction
	for _, d := range types.Directions {
		if c.Supports(d) {
			out = append(out, d)
		}
	}
	return out
}

// Validate only checks that the required values are present.
func (c ChainConfig) Validate() error {
	var errs []error
	if len(c.EnabledDirections()) == 0 {
		errs = append(errs, ErrNoDirections)
	}
	if c.L1.RPC == "" {
		errs = append(errs, fmt.Errorf("l1: %w", ErrMissingRPC))
	}
	if c.L2.RPC == "" {
		errs = append(errs, fmt.Errorf("l2: %w", ErrMissingRPC))
	}
	for _, d := range c.EnabledDirections() {
		if c.ContractFor(d) == (common.Address{}) {
			errs = append(errs, fmt.Errorf("%s: %w", d, ErrMissingAddress))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("chain %s: %w", c.ID, err)
	}
	return nil
}
