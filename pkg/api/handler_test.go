package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/adapter"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/proof"
)

// fakeAdapter covers blocks up to covered with a checkpoint at proofBlock.
type fakeAdapter struct {
	cfg        chains.ChainConfig
	covered    uint64
	proofBlock uint64
	listErr    error

	mu     sync.Mutex
	limits []int
}

func (f *fakeAdapter) seen() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.limits)
}

func (f *fakeAdapter) Config() chains.ChainConfig { return f.cfg }

func (f *fakeAdapter) GetStatus(_ context.Context, dir types.Direction) types.ChainStatus {
	return types.ChainStatus{ChainName: f.cfg.Name, Direction: dir, IsConnected: true, BlocksBehind: types.Ptr(uint64(7))}
}

func (f *fakeAdapter) GetCheckpoints(_ context.Context, _ types.Direction, limit int) ([]types.Checkpoint, error) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	err := f.listErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return []types.Checkpoint{{BlockNumber: f.proofBlock}}, nil
}

func (f *fakeAdapter) CheckProof(_ context.Context, _ types.Direction, block uint64) types.ProofResult {
	if block <= f.covered {
		cp := &types.Checkpoint{BlockNumber: f.proofBlock}
		return types.ProofResult{Exists: true, BlockNumber: block, ProofBlock: types.Ptr(f.proofBlock), Checkpoint: cp}
	}
	return types.ProofResult{
		BlockNumber:      block,
		LatestCheckpoint: &types.Checkpoint{BlockNumber: f.proofBlock},
		BlocksAhead:      types.Ptr(block - f.proofBlock),
		CurrentBlock:     types.Ptr(block + 10),
		Error:            fmt.Sprintf("Block %d is not yet checkpointed.", block),
	}
}

func (f *fakeAdapter) Debug(context.Context) []adapter.DirectionReport {
	return []adapter.DirectionReport{{Direction: types.L2ToL1, EventsFound: map[string]int{"CheckpointSaved": 3}}}
}

type fakeRegistry struct {
	adapters []*fakeAdapter
}

func (r *fakeRegistry) Get(id string) (adapter.Adapter, error) {
	for _, a := range r.adapters {
		if a.cfg.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", adapter.ErrUnknownChain, id)
}

func (r *fakeRegistry) List() []adapter.Adapter {
	out := make([]adapter.Adapter, len(r.adapters))
	for i, a := range r.adapters {
		out[i] = a
	}
	return out
}

func (r *fakeRegistry) Configs() []chains.ChainConfig {
	out := make([]chains.ChainConfig, len(r.adapters))
	for i, a := range r.adapters {
		out[i] = a.cfg
	}
	return out
}

type mockProver struct {
	mock.Mock
}

func (m *mockProver) Generate(ctx context.Context, req proof.GenerateRequest) (*proof.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*proof.Result)
	return res, args.Error(1)
}

func newTestServer(t *testing.T, prover Prover) (*httptest.Server, *fakeRegistry) {
	t.Helper()
	cfgs := chains.Defaults(chains.Mainnet)
	for i := range cfgs {
		cfgs[i].L1.RPC = "http://l1"
		cfgs[i].L2.RPC = "http://l2"
	}
	cfgs[2].Directions.L1ToL2 = false
	reg := &fakeRegistry{}
	for _, c := range cfgs {
		reg.adapters = append(reg.adapters, &fakeAdapter{cfg: c, covered: 200, proofBlock: 200})
	}
	srv := httptest.NewServer(NewHandler(reg, prover, zap.NewNop().Sugar(), time.Second).Routes())
	t.Cleanup(srv.Close)
	return srv, reg
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestChains(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, nil)

	var body struct {
		Chains []map[string]any `json:"chains"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/chains", &body))
	require.Len(t, body.Chains, 3)
	require.Equal(t, "taiko", body.Chains[0]["id"])
	l1 := body.Chains[0]["l1"].(map[string]any)
	require.NotContains(t, l1, "rpc", "endpoints are never exposed")
}

func TestStatus(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, nil)

	var all statusResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/status", &all))
	require.Len(t, all.Statuses, 5, "arbitrum has one direction disabled")

	var one statusResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/status?chain=linea&direction=l2-to-l1", &one))
	require.Len(t, one.Statuses, 1)
	require.Equal(t, types.L2ToL1, one.Statuses[0].Direction)
	require.Equal(t, uint64(7), *one.Statuses[0].BlocksBehind)

	require.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/status?chain=scroll", nil))
	require.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/status?direction=up", nil))
}

func TestCheckpoints(t *testing.T) {
	t.Parallel()
	srv, reg := newTestServer(t, nil)

	var body struct {
		Checkpoints []types.Checkpoint `json:"checkpoints"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/checkpoints?chain=taiko&direction=l1ToL2&limit=500", &body))
	require.Len(t, body.Checkpoints, 1)
	require.Equal(t, []int{maxLimit}, reg.adapters[0].seen())

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/checkpoints?chain=taiko&direction=l1ToL2", nil))
	require.Equal(t, []int{maxLimit, defaultLimit}, reg.adapters[0].seen())

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{name: "missing chain", query: "direction=l1ToL2", status: http.StatusBadRequest},
		{name: "bad direction", query: "chain=taiko&direction=x", status: http.StatusBadRequest},
		{name: "bad limit", query: "chain=taiko&direction=l1ToL2&limit=-1", status: http.StatusBadRequest},
		{name: "unknown chain", query: "chain=scroll&direction=l1ToL2", status: http.StatusNotFound},
		{name: "disabled direction", query: "chain=arbitrum&direction=l1ToL2", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.status, getJSON(t, srv.URL+"/api/checkpoints?"+tt.query, nil))
		})
	}

	linea := reg.adapters[1]
	linea.mu.Lock()
	linea.listErr = &types.AdapterError{Chain: "linea", Direction: types.L2ToL1, Err: types.ErrTransport}
	linea.mu.Unlock()
	var failed map[string]string
	require.Equal(t, http.StatusBadGateway, getJSON(t, srv.URL+"/api/checkpoints?chain=linea&direction=l2ToL1", &failed))
	require.Contains(t, failed["error"], "transport error")
}

func TestCheckProof(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, nil)

	var ready checkProofResponse
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/check-proof",
		`{"chain":"taiko","blockNumber":"150","direction":"l2-to-l1"}`, &ready))
	require.True(t, ready.Ready)
	require.Equal(t, uint64(150), ready.SourceBlock)
	require.Equal(t, uint64(200), *ready.ProofBlock)
	require.Contains(t, ready.Commands.ProofGenerator, "--block 200")
	require.Contains(t, ready.Commands.ProofGenerator, "--slot 254")

	var notReady checkProofResponse
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/check-proof",
		`{"chain":"taiko","blockNumber":250,"direction":"l2ToL1"}`, &notReady))
	require.False(t, notReady.Ready)
	require.Nil(t, notReady.Commands)
	require.Equal(t, uint64(50), *notReady.BlocksAhead)
	require.Equal(t, "10m", notReady.EstimatedWait)
	require.Equal(t, uint64(260), *notReady.CurrentBlock)
	require.NotEmpty(t, notReady.Message)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ``},
		{name: "missing block", body: `{"chain":"taiko","direction":"l2ToL1"}`},
		{name: "bad block", body: `{"chain":"taiko","blockNumber":"abc","direction":"l2ToL1"}`},
		{name: "missing direction", body: `{"chain":"taiko","blockNumber":1}`},
		{name: "bad direction", body: `{"chain":"taiko","blockNumber":1,"direction":"up"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e map[string]string
			require.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/check-proof", tt.body, &e))
			require.NotEmpty(t, e["error"])
		})
	}
}

func TestGenerateProof(t *testing.T) {
	t.Parallel()

	prover := &mockProver{}
	srv, _ := newTestServer(t, prover)

	slot := common.BigToHash(common.Big1)
	acct := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	prover.On("Generate", mock.Anything, proof.GenerateRequest{
		Chain: "taiko", Direction: types.L2ToL1, BlockNumber: 150, Slot: &slot, Account: &acct,
	}).Return(&proof.Result{
		Proof:         &proof.StorageProof{BlockNumber: 200},
		Direction:     types.L2ToL1,
		SourceChain:   "Taiko l2",
		SourceChainID: 167000,
	}, nil).Once()

	var ok generateProofResponse
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/generate-proof",
		`{"chain":"taiko","blockNumber":150,"direction":"l2ToL1","storageSlot":"0x1","account":"0x00000000000000000000000000000000000000aa"}`, &ok))
	require.True(t, ok.Success)
	require.Equal(t, uint64(200), ok.Metadata.ProofBlock)
	require.Equal(t, uint64(150), ok.Metadata.RequestedBlock)

	prover.On("Generate", mock.Anything, mock.MatchedBy(func(r proof.GenerateRequest) bool { return r.BlockNumber == 999 })).
		Return(&proof.Result{}, fmt.Errorf("%w: later", proof.ErrNotReady)).Once()
	require.Equal(t, http.StatusConflict, postJSON(t, srv.URL+"/api/generate-proof",
		`{"chain":"taiko","blockNumber":999,"direction":"l2ToL1","storageSlot":"254"}`, nil))

	prover.On("Generate", mock.Anything, mock.MatchedBy(func(r proof.GenerateRequest) bool { return r.BlockNumber == 7 })).
		Return(nil, fmt.Errorf("generate: %w", proof.ErrStateRootMismatch)).Once()
	var failed map[string]string
	require.Equal(t, http.StatusInternalServerError, postJSON(t, srv.URL+"/api/generate-proof",
		`{"chain":"taiko","blockNumber":7,"direction":"l2ToL1","storageSlot":"254"}`, &failed))
	require.Equal(t, "State root verification failed", failed["error"])

	for _, body := range []string{
		`{"chain":"taiko","blockNumber":7,"direction":"l2ToL1"}`,
		`{"chain":"taiko","blockNumber":7,"direction":"l2ToL1","storageSlot":"slot"}`,
		`{"chain":"taiko","blockNumber":7,"direction":"l2ToL1","storageSlot":"1","account":"0xzz"}`,
	} {
		require.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/generate-proof", body, nil))
	}

	var unsupported map[string]string
	require.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/generate-proof",
		`{"chain":"arbitrum","blockNumber":7,"direction":"l1ToL2","storageSlot":"254"}`, &unsupported))
	require.Contains(t, unsupported["error"], types.ErrUnsupportedDirection.Error())
	require.Equal(t, http.StatusNotFound, postJSON(t, srv.URL+"/api/generate-proof",
		`{"chain":"scroll","blockNumber":7,"direction":"l2ToL1","storageSlot":"254"}`, nil))

	prover.AssertExpectations(t)
	prover.AssertNumberOfCalls(t, "Generate", 3)
}

func TestGenerateProof_Disabled(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, nil)
	require.Equal(t, http.StatusNotImplemented, postJSON(t, srv.URL+"/api/generate-proof", `{}`, nil))
}

func TestDebug(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, nil)

	var body struct {
		Chain      string                    `json:"chain"`
		Directions []adapter.DirectionReport `json:"directions"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/debug?chain=taiko", &body))
	require.Equal(t, 3, body.Directions[0].EventsFound["CheckpointSaved"])
	require.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/debug", nil))
}
