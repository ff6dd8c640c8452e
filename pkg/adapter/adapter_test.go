package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/openintents/checkpoint-viewer/internal/chainclient"
	"github.com/openintents/checkpoint-viewer/internal/chainclient/chainclienttest"
	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/enrich"
	"github.com/openintents/checkpoint-viewer/pkg/logfetch"
	"github.com/openintents/checkpoint-viewer/pkg/normalizer"
	"github.com/openintents/checkpoint-viewer/pkg/normalizer/normalizertest"
)

type harness struct {
	cfg  chains.ChainConfig
	l1   *chainclienttest.Fake
	l2   *chainclienttest.Fake
	deps Deps
	logs *observer.ObservedLogs
}

func newHarness(t *testing.T, id string, l1Head, l2Head uint64) *harness {
	t.Helper()

	var cfg chains.ChainConfig
	for _, c := range chains.Defaults(chains.Mainnet) {
		if c.ID == id {
			cfg = c
		}
	}
	require.NotEmpty(t, cfg.ID, "chain %s", id)
	cfg.L1.RPC = "l1"
	cfg.L2.RPC = "l2"

	h := &harness{
		cfg: cfg,
		l1:  chainclienttest.New(l1Head),
		l2:  chainclienttest.New(l2Head),
	}
	provider := chainclient.NewProvider(func(_ context.Context, url string) (chainclient.ChainClient, error) {
		switch url {
		case "l1":
			return h.l1, nil
		case "l2":
			return h.l2, nil
		default:
			return nil, errors.New("unknown endpoint")
		}
	})

	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core).Sugar()
	enricher, err := enrich.New(0, log, nil)
	require.NoError(t, err)

	h.logs = logs
	h.deps = Deps{
		Clients:  provider,
		Fetcher:  logfetch.New(log, nil),
		Enricher: enricher,
		Log:      log,
	}
	return h
}

func (h *harness) adapter(t *testing.T) Adapter {
	t.Helper()
	a, err := New(h.cfg, h.deps)
	require.NoError(t, err)
	return a
}

func hash(s string) common.Hash { return common.HexToHash(s) }

// taikoHarness records L2 blocks 100, 200 and 300 on L1.
func taikoHarness(t *testing.T) *harness {
	h := newHarness(t, "taiko", 7000, 350)
	h.l1.AddHeaders(6500, 6700, 1_700_000_000)
	for i, n := range []uint64{100, 200, 300} {
		at := normalizertest.At{Block: 6500 + uint64(i)*100, Tx: hash("0xaa"), Index: uint(i)}
		h.l1.Logs = append(h.l1.Logs, normalizertest.Log(normalizer.CheckpointSaved.Event, h.cfg.L1.Address, at,
			map[string]any{
				"blockNumber": n,
				"blockHash":   chainclienttest.HashFor("block", n),
				"stateRoot":   chainclienttest.HashFor("root", n),
			}))
	}
	return h
}

func TestTaiko_GetStatus(t *testing.T) {
	t.Parallel()

	h := taikoHarness(t)
	st := h.adapter(t).GetStatus(t.Context(), types.L2ToL1)

	require.True(t, st.IsConnected)
	require.Empty(t, st.Error)
	require.Equal(t, "Taiko", st.ChainName)
	require.Equal(t, h.cfg.L1.Address, st.ContractAddress)
	require.Equal(t, 3, st.TotalCheckpoints)
	require.Equal(t, uint64(350), *st.CurrentBlock)
	require.Equal(t, uint64(300), st.LatestCheckpoint.BlockNumber)
	require.Equal(t, uint64(50), *st.BlocksBehind)
	require.NotNil(t, st.LatestCheckpoint.CheckpointedAt)
}

func TestTaiko_CheckProof(t *testing.T) {
	t.Parallel()

	h := taikoHarness(t)
	a := h.adapter(t)

	res := a.CheckProof(t.Context(), types.L2ToL1, 150)
	require.True(t, res.Exists)
	require.Equal(t, uint64(150), res.BlockNumber)
	require.Equal(t, uint64(200), *res.ProofBlock)
	require.Equal(t, chainclienttest.HashFor("block", 200), *res.BlockHash)
	require.Equal(t, chainclienttest.HashFor("root", 200), *res.StateRoot)
	require.Equal(t, uint64(6600), res.Checkpoint.CheckpointedInBlock)
	require.NotNil(t, res.Checkpoint.CheckpointedAt, "covering checkpoint is enriched")
	require.Nil(t, res.CurrentBlock)

	again := a.CheckProof(t.Context(), types.L2ToL1, 150)
	require.Equal(t, res, again)

	res = a.CheckProof(t.Context(), types.L2ToL1, 350)
	require.False(t, res.Exists)
	require.Nil(t, res.ProofBlock)
	require.Equal(t, uint64(300), res.LatestCheckpoint.BlockNumber)
	require.Equal(t, uint64(50), *res.BlocksAhead)
	require.Equal(t, uint64(350), *res.CurrentBlock)
	require.NotNil(t, res.LatestCheckpoint.CheckpointedAt)
	require.Contains(t, res.Error, "Your block is 50 blocks ahead")

	h.l2.BlockNumberErr = errors.New("connection refused")
	res = a.CheckProof(t.Context(), types.L2ToL1, 350)
	require.False(t, res.Exists)
	require.Nil(t, res.CurrentBlock, "head is best effort")
	require.Equal(t, uint64(50), *res.BlocksAhead)
	require.Equal(t, 1, h.logs.FilterMessage("failed to read source head").Len())
}

func TestTaiko_GetCheckpoints(t *testing.T) {
	t.Parallel()

	h := taikoHarness(t)
	a := h.adapter(t)

	cps, err := a.GetCheckpoints(t.Context(), types.L2ToL1, 2)
	require.NoError(t, err)
	require.Len(t, cps, 2)
	require.Equal(t, uint64(300), cps[0].BlockNumber)
	require.Equal(t, uint64(200), cps[1].BlockNumber)

	all, err := a.GetCheckpoints(t.Context(), types.L2ToL1, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// L1 -> L2 checkpoints live on L2, which has none.
	cps, err = a.GetCheckpoints(t.Context(), types.L1ToL2, 10)
	require.NoError(t, err)
	require.Empty(t, cps)
	require.Len(t, h.l2.Queries, 1)
	require.Equal(t, []common.Address{h.cfg.L2.Address}, h.l2.Queries[0].Addresses)
}

func TestTaiko_ScanWindow(t *testing.T) {
	t.Parallel()

	h := taikoHarness(t)
	_, err := h.adapter(t).GetCheckpoints(t.Context(), types.L2ToL1, 0)
	require.NoError(t, err)

	require.Len(t, h.l1.Queries, 1)
	q := h.l1.Queries[0]
	require.Equal(t, uint64(6000), q.FromBlock.Uint64())
	require.Equal(t, uint64(7000), q.ToBlock.Uint64())
	require.Equal(t, normalizer.CheckpointSaved.Event.ID, q.Topics[0][0])
}

func TestTransportFailure(t *testing.T) {
	t.Parallel()

	h := taikoHarness(t)
	a := h.adapter(t)

	require.True(t, a.GetStatus(t.Context(), types.L2ToL1).IsConnected)

	h.l1.FilterLogsErr = errors.New("request timed out")

	st := a.GetStatus(t.Context(), types.L2ToL1)
	require.False(t, st.IsConnected)
	require.Nil(t, st.LatestCheckpoint, "no stale checkpoint from the previous call")
	require.Contains(t, st.Error, "taiko l2ToL1")
	require.Contains(t, st.Error, "request timed out")

	res := a.CheckProof(t.Context(), types.L2ToL1, 150)
	require.False(t, res.Exists)
	require.Contains(t, res.Error, "transport error")

	_, err := a.GetCheckpoints(t.Context(), types.L2ToL1, 5)
	require.ErrorIs(t, err, types.ErrTransport)
	var aerr *types.AdapterError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, types.L2ToL1, aerr.Direction)

	h.l1.FilterLogsErr = nil
	h.l2.BlockNumberErr = errors.New("connection refused")
	st = a.GetStatus(t.Context(), types.L2ToL1)
	require.False(t, st.IsConnected)
	require.Contains(t, st.Error, "eth_blockNumber")
}

func TestUnsupportedDirection(t *testing.T) {
	t.Parallel()

	h := taikoHarness(t)
	h.cfg.Directions.L1ToL2 = false
	a := h.adapter(t)

	st := a.GetStatus(t.Context(), types.L1ToL2)
	require.False(t, st.IsConnected)
	require.Contains(t, st.Error, types.ErrUnsupportedDirection.Error())

	_, err := a.GetCheckpoints(t.Context(), types.L1ToL2, 1)
	require.ErrorIs(t, err, types.ErrUnsupportedDirection)

	_, err = a.GetCheckpoints(t.Context(), types.Direction("sideways"), 1)
	require.ErrorIs(t, err, types.ErrInvalidDirection)

	res := a.CheckProof(t.Context(), types.L1ToL2, 1)
	require.False(t, res.Exists)
	require.NotEmpty(t, res.Error)
	require.Empty(t, h.l2.Queries)
}

func TestLinea_RangeFinalization(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "linea", 20_000, 500)
	h.l1.Logs = append(h.l1.Logs, normalizertest.Log(normalizer.DataFinalizedV3.Event, h.cfg.L1.Address,
		normalizertest.At{Block: 19_000},
		map[string]any{
			"startBlockNumber":    uint64(100),
			"endBlockNumber":      uint64(200),
			"shnarf":              hash("0x5a"),
			"parentStateRootHash": hash("0x01"),
			"finalStateRootHash":  hash("0x02"),
		}))
	a := h.adapter(t)

	res := a.CheckProof(t.Context(), types.L2ToL1, 150)
	require.True(t, res.Exists)
	require.Equal(t, uint64(200), *res.ProofBlock)
	require.Equal(t, hash("0x5a"), *res.BlockHash)
	require.Equal(t, hash("0x02"), *res.StateRoot)
	require.Equal(t, uint64(100), *res.Checkpoint.RangeStart)

	res = a.CheckProof(t.Context(), types.L2ToL1, 201)
	require.False(t, res.Exists)
	require.Equal(t, uint64(1), *res.BlocksAhead)

	st := a.GetStatus(t.Context(), types.L2ToL1)
	require.True(t, st.IsConnected)
	require.Equal(t, uint64(300), *st.BlocksBehind)
	require.Equal(t, "DataFinalizedV3", st.LatestCheckpoint.Schema)
}

func TestLinea_FallbackAndAmbiguity(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "linea", 20_000, 500)
	h.deps.ProbeAmbiguity = true
	h.l1.Logs = append(h.l1.Logs,
		normalizertest.Log(normalizer.BlocksVerificationDone.Event, h.cfg.L1.Address, normalizertest.At{Block: 19_500},
			map[string]any{"lastBlockFinalized": uint64(300), "startingRootHash": hash("0x1"), "finalRootHash": hash("0x2")}),
		normalizertest.Log(normalizer.DataFinalized.Event, h.cfg.L1.Address, normalizertest.At{Block: 19_600},
			map[string]any{"parentStateRootHash": hash("0x3"), "finalStateRootHash": hash("0x4"), "finalBlockNumber": uint64(400)}),
	)

	cps, err := h.adapter(t).GetCheckpoints(t.Context(), types.L2ToL1, 0)
	require.NoError(t, err)
	require.Len(t, cps, 1, "schemas are never mixed")
	require.Equal(t, "BlocksVerificationDone", cps[0].Schema)
	require.Equal(t, uint64(300), cps[0].BlockNumber)

	warnings := h.logs.FilterMessage("multiple finalization schemas in window").All()
	require.Len(t, warnings, 1)
}

func TestLinea_Accessible(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "linea", 1000, 77)
	h.l1.AddHeaders(900, 1000, 1_700_000_000)
	a := h.adapter(t)

	res := a.CheckProof(t.Context(), types.L1ToL2, 990)
	require.True(t, res.Exists)
	require.Equal(t, uint64(990), *res.ProofBlock)
	require.Equal(t, chainclienttest.HashFor("block", 990), *res.BlockHash)

	res = a.CheckProof(t.Context(), types.L1ToL2, 500)
	require.False(t, res.Exists, "block exists on chain but is outside the window")
	require.Equal(t, uint64(981), *res.NextAvailable)
	require.Contains(t, res.Error, "outside the accessible window")

	st := a.GetStatus(t.Context(), types.L1ToL2)
	require.True(t, st.IsConnected)
	require.Equal(t, h.cfg.L2.Address, st.ContractAddress)
	require.Equal(t, 20, st.TotalCheckpoints)
	require.Equal(t, uint64(0), *st.BlocksBehind)
	require.Empty(t, h.l1.Queries, "accessibility never scans logs")
}

func TestArbitrum_SendRoots(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "arbitrum", 20_000_000, 5000)
	h.l2.AddHeaders(4000, 4010, 1_700_000_000)
	h.l1.AddHeaders(19_999_000, 19_999_000, 1_700_000_000)
	h.l1.Logs = append(h.l1.Logs, normalizertest.Log(normalizer.SendRootUpdated.Event, h.cfg.L1.Address,
		normalizertest.At{Block: 19_999_000},
		map[string]any{"outputRoot": hash("0x5e"), "l2BlockHash": chainclienttest.HashFor("block", 4005)}))
	a := h.adapter(t)

	res := a.CheckProof(t.Context(), types.L2ToL1, 4003)
	require.True(t, res.Exists)
	require.Equal(t, uint64(4005), *res.ProofBlock)
	require.Equal(t, chainclienttest.HashFor("root", 4005), *res.StateRoot)
	require.Equal(t, hash("0x5e"), *res.Checkpoint.SendRoot)
	require.NotNil(t, res.Checkpoint.CheckpointedAt)

	st := a.GetStatus(t.Context(), types.L2ToL1)
	require.True(t, st.IsConnected)
	require.Equal(t, uint64(995), *st.BlocksBehind)
}

func TestDebug(t *testing.T) {
	t.Parallel()

	h := taikoHarness(t)
	h.l2.BlockNumberErr = errors.New("down")

	reports := h.adapter(t).Debug(t.Context())
	require.Len(t, reports, 2)

	byDir := map[types.Direction]DirectionReport{}
	for _, r := range reports {
		byDir[r.Direction] = r
	}
	require.Equal(t, 3, byDir[types.L2ToL1].EventsFound["CheckpointSaved"])
	require.Equal(t, uint64(7000), *byDir[types.L2ToL1].CurrentBlock)
	require.Equal(t, types.LayerL1, byDir[types.L2ToL1].Layer)
	require.Contains(t, byDir[types.L1ToL2].Error, "down")
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	h := taikoHarness(t)

	_, err := New(h.cfg, Deps{Fetcher: h.deps.Fetcher})
	require.ErrorIs(t, err, ErrNilProvider)

	_, err = New(h.cfg, Deps{Clients: h.deps.Clients})
	require.ErrorIs(t, err, ErrNilFetcher)

	cfg := h.cfg
	cfg.Protocol = "optimism"
	_, err = New(cfg, h.deps)
	require.ErrorIs(t, err, ErrUnknownProtocol)
}
