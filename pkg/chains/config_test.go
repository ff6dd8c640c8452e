package chains

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openintents/checkpoint-viewer/internal/types"
)

func TestLoad_EnvOverrides(t *testing.T) {
	t.Parallel()

	environ := map[string]string{
		"TAIKO_L1_RPC":             "http://l1.local:8545",
		"TAIKO_L2_RPC":             "http://l2.local:8545",
		"TAIKO_L2_ADDRESS":         "0x1670000000000000000000000000000000000099",
		"TAIKO_CHECKPOINTS_SLOT":   "300",
		"TAIKO_L2_TO_L1_WINDOW":    "250",
		"TAIKO_L1_TO_L2_ENABLED":   "false",
		"LINEA_L2_BLOCK_TIME":      "3s",
		"ARBITRUM_L1_EXPLORER_URL": "https://example.org",
	}

	cfgs, err := Load(Mainnet, environ)
	require.NoError(t, err)
	require.Len(t, cfgs, 3)

	taiko := cfgs[0]
	require.Equal(t, "taiko", taiko.ID)
	require.Equal(t, "http://l1.local:8545", taiko.L1.RPC)
	require.Equal(t, "http://l2.local:8545", taiko.L2.RPC)
	require.Equal(t, common.HexToAddress("0x1670000000000000000000000000000000000099"), taiko.L2.Address)
	require.Equal(t, uint64(300), taiko.CheckpointsSlot)
	require.Equal(t, uint64(250), taiko.Window(types.L2ToL1))
	require.Equal(t, uint64(exactWindow), taiko.Window(types.L1ToL2))
	require.False(t, taiko.Supports(types.L1ToL2))
	require.True(t, taiko.Supports(types.L2ToL1))

	// untouched defaults survive
	require.Equal(t, common.HexToAddress("0x9e0a24964e5397B566c1ed39258e21aB5E35C77C"), taiko.L1.Address)
	require.Equal(t, uint64(167000), taiko.L2.ChainID)

	require.Equal(t, 3*time.Second, cfgs[1].L2.BlockTime)
	require.Equal(t, "https://example.org", cfgs[2].L1.ExplorerURL)
}

func TestLoad_InvalidOverride(t *testing.T) {
	t.Parallel()

	_, err := Load(Mainnet, map[string]string{"LINEA_L1_ADDRESS": "not-an-address"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "linea")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Defaults(Mainnet)[0]
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrMissingRPC)

	cfg.L1.RPC = "http://l1"
	cfg.L2.RPC = "http://l2"
	require.NoError(t, cfg.Validate())

	cfg.L1.Address = common.Address{}
	require.ErrorIs(t, cfg.Validate(), ErrMissingAddress)

	cfg.Directions = DirectionSupport{}
	require.ErrorIs(t, cfg.Validate(), ErrNoDirections)
}

func TestSupported(t *testing.T) {
	t.Parallel()

	cfgs, err := Load(Testnet, map[string]string{
		"LINEA_L1_RPC": "http://l1",
		"LINEA_L2_RPC": "http://l2",
	})
	require.NoError(t, err)

	got := Supported(cfgs, zap.NewNop().Sugar())
	require.Len(t, got, 1)
	require.Equal(t, "linea", got[0].ID)
	require.Equal(t, uint64(59141), got[0].L2.ChainID)
}

func TestDevnetShipsEndpoints(t *testing.T) {
	t.Parallel()

	cfgs := Defaults(Devnet)
	require.Len(t, cfgs, 1)
	require.NoError(t, cfgs[0].Validate())
	require.Equal(t, common.HexToAddress("0x1670010000000000000000000000000000000005"), cfgs[0].ContractFor(types.L1ToL2))
	require.Equal(t, common.HexToAddress("0xbB128Fd4942e8143B8dc10f38CCfeADb32544264"), cfgs[0].ContractFor(types.L2ToL1))
}

func TestParseNetwork(t *testing.T) {
	t.Parallel()

	n, err := ParseNetwork("testnet")
	require.NoError(t, err)
	require.Equal(t, Testnet, n)

	_, err = ParseNetwork("moonnet")
	require.Error(t, err)
}
