package chains

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Network selects a table of built-in chain defaults.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Devnet  Network = "devnet"
)

const (
	// DefaultCheckpointsSlot is the SignalService storage slot holding the
	// checkpoints mapping.
	DefaultCheckpointsSlot = 254

	exactWindow       = 1000
	finalizationRange = 5000
	accessibleBlocks  = 20

	l1BlockTime = 12 * time.Second
)

// ParseNetwork validates a network name.
func ParseNetwork(s string) (Network, error) {
	switch n := Network(s); n {
	case Mainnet, Testnet, Devnet:
		return n, nil
	default:
		return "", fmt.Errorf("unknown network %q", s)
	}
}

// Defaults returns the built-in chain table for n. RPC endpoints are left empty
// unless the network ships public ones; they are supplied through the environment.
func Defaults(n Network) []ChainConfig {
	switch n {
	case Testnet:
		return testnet()
	case Devnet:
		return devnet()
	default:
		return mainnet()
	}
}

func taiko(l1, l2 LayerConfig) ChainConfig {
	return ChainConfig{
		ID:              "taiko",
		Name:            "Taiko",
		ShortName:       "Taiko",
		Protocol:        ProtocolTaiko,
		Directions:      DirectionSupport{L1ToL2: true, L2ToL1: true},
		L1:              l1,
		L2:              l2,
		CheckpointsSlot: DefaultCheckpointsSlot,
		Windows:         Windows{L1ToL2: exactWindow, L2ToL1: exactWindow},
	}
}

func linea(l1, l2 LayerConfig) ChainConfig {
	return ChainConfig{
		ID:         "linea",
		Name:       "Linea",
		ShortName:  "Linea",
		Protocol:   ProtocolLinea,
		Directions: DirectionSupport{L1ToL2: true, L2ToL1: true},
		L1:         l1,
		L2:         l2,
		Windows:    Windows{L1ToL2: accessibleBlocks, L2ToL1: finalizationRange},
	}
}

func arbitrum(name string, l1, l2 LayerConfig) ChainConfig {
	return ChainConfig{
		ID:         "arbitrum",
		Name:       name,
		ShortName:  "Arbitrum",
		Protocol:   ProtocolArbitrum,
		Directions: DirectionSupport{L1ToL2: true, L2ToL1: true},
		L1:         l1,
		L2:         l2,
		Windows:    Windows{L1ToL2: accessibleBlocks, L2ToL1: finalizationRange},
	}
}

// arbSys is the ArbSys precompile, present on every Arbitrum chain.
var arbSys = common.HexToAddress("0x0000000000000000000000000000000000000064")

func mainnet() []ChainConfig {
	return []ChainConfig{
		taiko(
			LayerConfig{
				Address:     common.HexToAddress("0x9e0a24964e5397B566c1ed39258e21aB5E35C77C"),
				ChainID:     1,
				ExplorerURL: "https://etherscan.io",
				BlockTime:   l1BlockTime,
			},
			LayerConfig{
				Address:     common.HexToAddress("0x1670000000000000000000000000000000000005"),
				ChainID:     167000,
				ExplorerURL: "https://taikoscan.io",
				BlockTime:   12 * time.Second,
			},
		),
		linea(
			LayerConfig{
				Address:     common.HexToAddress("0xd19d4B5d358258f05D7B411E21A1460D11B0876F"),
				ChainID:     1,
				ExplorerURL: "https://etherscan.io",
				BlockTime:   l1BlockTime,
			},
			LayerConfig{
				Address:     common.HexToAddress("0x508Ca82Df566dCD1B0DE8296e70a96332cD644ec"),
				ChainID:     59144,
				ExplorerURL: "https://lineascan.build",
				BlockTime:   2 * time.Second,
			},
		),
		arbitrum("Arbitrum One",
			LayerConfig{
				Address:     common.HexToAddress("0x0B9857ae2D4A3DBe74ffE1d7DF045bb7F96E4840"),
				ChainID:     1,
				ExplorerURL: "https://etherscan.io",
				BlockTime:   l1BlockTime,
			},
			LayerConfig{
				Address:     arbSys,
				ChainID:     42161,
				ExplorerURL: "https://arbiscan.io",
				BlockTime:   250 * time.Millisecond,
			},
		),
	}
}

func testnet() []ChainConfig {
	return []ChainConfig{
		taiko(
			LayerConfig{
				Address:     common.HexToAddress("0x6Fc2fe9D9dd0251ec5E0727e826Afbb0Db2CBe0D"),
				ChainID:     17000,
				ExplorerURL: "https://holesky.etherscan.io",
				BlockTime:   l1BlockTime,
			},
			LayerConfig{
				Address:     common.HexToAddress("0x1670090000000000000000000000000000000005"),
				ChainID:     167009,
				ExplorerURL: "https://hekla.taikoscan.io",
				BlockTime:   12 * time.Second,
			},
		),
		linea(
			LayerConfig{
				Address:     common.HexToAddress("0xB218f8A4Bc926cF1cA7b3423c154a0D627Bdb7E5"),
				ChainID:     11155111,
				ExplorerURL: "https://sepolia.etherscan.io",
				BlockTime:   l1BlockTime,
			},
			LayerConfig{
				Address:     common.HexToAddress("0x971e727e956690b9957be6d51Ec16E73AcAC83A7"),
				ChainID:     59141,
				ExplorerURL: "https://sepolia.lineascan.build",
				BlockTime:   2 * time.Second,
			},
		),
		arbitrum("Arbitrum Sepolia",
			LayerConfig{
				Address:     common.HexToAddress("0x65f07C7D521164a4d5DaC6eB8Fac8DA067A3B78F"),
				ChainID:     11155111,
				ExplorerURL: "https://sepolia.etherscan.io",
				BlockTime:   l1BlockTime,
			},
			LayerConfig{
				Address:     arbSys,
				ChainID:     421614,
				ExplorerURL: "https://sepolia.arbiscan.io",
				BlockTime:   250 * time.Millisecond,
			},
		),
	}
}

// devnet is the internal Taiko devnet, which ships its own public endpoints.
func devnet() []ChainConfig {
	return []ChainConfig{
		taiko(
			LayerConfig{
				Address:     common.HexToAddress("0xbB128Fd4942e8143B8dc10f38CCfeADb32544264"),
				RPC:         "https://l1rpc.internal.taiko.xyz",
				ChainID:     32382,
				ExplorerURL: "https://l1explorer.internal.taiko.xyz",
				BlockTime:   l1BlockTime,
			},
			LayerConfig{
				Address:     common.HexToAddress("0x1670010000000000000000000000000000000005"),
				RPC:         "https://rpc.internal.taiko.xyz",
				ChainID:     167001,
				ExplorerURL: "https://blockscout.internal.taiko.xyz",
				BlockTime:   12 * time.Second,
			},
		),
	}
}
