// Package api exposes checkpoint resolution over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/adapter"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/proof"
	"github.com/openintents/checkpoint-viewer/pkg/utils"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Registry is the subset of adapter.Registry the API needs.
type Registry interface {
	Get(chainID string) (adapter.Adapter, error)
	List() []adapter.Adapter
	Configs() []chains.ChainConfig
}

// Prover generates storage proofs for resolved blocks.
type Prover interface {
	Generate(ctx context.Context, req proof.GenerateRequest) (*proof.Result, error)
}

type Handler struct {
	registry Registry
	prover   Prover
	log      *zap.SugaredLogger
	timeout  time.Duration
	now      func() time.Time
}

// NewHandler serves the registry's chains. prover may be nil, which disables
// proof generation. timeout bounds each request; zero means no bound.
func NewHandler(registry Registry, prover Prover, log *zap.SugaredLogger, timeout time.Duration) *Handler {
	return &Handler{
		registry: registry,
		prover:   prover,
		log:      log,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Routes returns a mux serving every /api endpoint.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chains", h.chains)
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/checkpoints", h.checkpoints)
	mux.HandleFunc("GET /api/debug", h.debug)
	mux.HandleFunc("POST /api/check-proof", h.checkProof)
	mux.HandleFunc("POST /api/generate-proof", h.generateProof)
	return mux
}

func (h *Handler) context(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

func (h *Handler) chains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"chains": h.registry.Configs()})
}

type statusResponse struct {
	Statuses  []types.ChainStatus `json:"statuses"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// status reports every enabled direction of the selected chains. Both query
// parameters are optional.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	var adapters []adapter.Adapter
	if id := r.URL.Query().Get("chain"); id != "" {
		a, err := h.registry.Get(id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		adapters = []adapter.Adapter{a}
	} else {
		adapters = h.registry.List()
	}

	var only *types.Direction
	if s := r.URL.Query().Get("direction"); s != "" {
		d, err := types.ParseDirection(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		only = &d
	}

	type job struct {
		a   adapter.Adapter
		dir types.Direction
	}
	var jobs []job
	for _, a := range adapters {
		for _, d := range a.Config().EnabledDirections() {
			if only == nil || *only == d {
				jobs = append(jobs, job{a: a, dir: d})
			}
		}
	}

	ctx, cancel := h.context(r)
	defer cancel()

	out := make([]types.ChainStatus, len(jobs))
	var g errgroup.Group
	for i, j := range jobs {
		g.Go(func() error {
			out[i] = j.a.GetStatus(ctx, j.dir)
			return nil
		})
	}
	_ = g.Wait()

	writeJSON(w, http.StatusOK, statusResponse{Statuses: out, UpdatedAt: h.now().UTC()})
}

func (h *Handler) checkpoints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, dir, ok := h.target(w, q.Get("chain"), q.Get("direction"))
	if !ok {
		return
	}

	limit := defaultLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", s))
			return
		}
		limit = min(n, maxLimit)
	}

	ctx, cancel := h.context(r)
	defer cancel()

	cps, err := a.GetCheckpoints(ctx, dir, limit)
	if err != nil {
		h.log.Warnw("checkpoint listing failed", "chain", a.Config().ID, "direction", dir, "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if cps == nil {
		cps = []types.Checkpoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chain":       a.Config().ID,
		"direction":   dir,
		"checkpoints": cps,
	})
}

func (h *Handler) debug(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("chain")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing chain"))
		return
	}
	a, err := h.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	writeJSON(w, http.StatusOK, map[string]any{
		"chain":      id,
		"directions": a.Debug(ctx),
	})
}

type checkProofResponse struct {
	Ready            bool              `json:"ready"`
	SourceBlock      uint64            `json:"sourceBlock"`
	ProofBlock       *uint64           `json:"proofBlock,omitempty"`
	Checkpoint       *types.Checkpoint `json:"checkpoint,omitempty"`
	LatestCheckpoint *types.Checkpoint `json:"latestCheckpoint"`
	NextAvailable    *uint64           `json:"nextAvailable,omitempty"`
	BlocksAhead      *uint64           `json:"blocksAhead,omitempty"`
	CurrentBlock     *uint64           `json:"currentBlock,omitempty"`
	EstimatedWait    string            `json:"estimatedWait,omitempty"`
	Message          string            `json:"message,omitempty"`
	Tip              string            `json:"tip,omitempty"`
	Commands         *commands         `json:"commands,omitempty"`
}

type commands struct {
	ProofGenerator string `json:"proofGenerator"`
	Description    string `json:"description"`
}

func (h *Handler) checkProof(w http.ResponseWriter, r *http.Request) {
	var req checkProofRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, dir, ok := h.target(w, req.Chain, req.Direction)
	if !ok {
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	res := a.CheckProof(ctx, dir, uint64(*req.BlockNumber))
	out := checkProofResponse{
		Ready:            res.Exists,
		SourceBlock:      res.BlockNumber,
		ProofBlock:       res.ProofBlock,
		Checkpoint:       res.Checkpoint,
		LatestCheckpoint: res.LatestCheckpoint,
		NextAvailable:    res.NextAvailable,
		BlocksAhead:      res.BlocksAhead,
		CurrentBlock:     res.CurrentBlock,
	}
	if res.Exists && res.ProofBlock != nil {
		cfg := a.Config()
		out.Commands = &commands{
			ProofGenerator: fmt.Sprintf(
				"checkpointviewer generate-proof --chain %s --direction %s --block %d --slot %d",
				cfg.ID, dir, *res.ProofBlock, cfg.CheckpointsSlot,
			),
			Description: fmt.Sprintf("Generate storage proof for block %d", *res.ProofBlock),
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	out.Message = res.Error
	out.Tip = "Checkpoints are created periodically. Please wait and try again."
	if res.BlocksAhead != nil {
		blockTime := a.Config().Layer(dir.SourceLayer()).BlockTime
		out.EstimatedWait = utils.CalculateTimeBehind(*res.BlocksAhead, blockTime)
	}
	writeJSON(w, http.StatusOK, out)
}

type generateProofResponse struct {
	Success  bool                `json:"success"`
	Proof    *proof.StorageProof `json:"proof"`
	Metadata proofMetadata       `json:"metadata"`
}

type proofMetadata struct {
	Direction      types.Direction `json:"direction"`
	SourceChain    string          `json:"sourceChain"`
	SourceChainID  uint64          `json:"sourceChainId"`
	RequestedBlock uint64          `json:"requestedBlock"`
	ProofBlock     uint64          `json:"proofBlock"`
	GeneratedAt    time.Time       `json:"generatedAt"`
}

func (h *Handler) generateProof(w http.ResponseWriter, r *http.Request) {
	if h.prover == nil {
		writeError(w, http.StatusNotImplemented, errors.New("proof generation is disabled"))
		return
	}

	var req generateProofRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	greq, err := req.toRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, _, ok := h.target(w, greq.Chain, string(greq.Direction)); !ok {
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	res, err := h.prover.Generate(ctx, greq)
	switch {
	case errors.Is(err, adapter.ErrUnknownChain):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, types.ErrUnsupportedDirection):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, proof.ErrNotReady):
		body := map[string]any{
			"error":   "Block is not yet checkpointed",
			"details": err.Error(),
		}
		if res != nil {
			body["resolution"] = res.Resolution
		}
		writeJSON(w, http.StatusConflict, body)
		return
	case errors.Is(err, proof.ErrBlockHashMismatch):
		writeDetailed(w, http.StatusInternalServerError, "Block hash verification failed", err)
		return
	case errors.Is(err, proof.ErrStateRootMismatch):
		writeDetailed(w, http.StatusInternalServerError, "State root verification failed", err)
		return
	case err != nil:
		h.log.Errorw("proof generation failed", "chain", greq.Chain, "block", greq.BlockNumber, "error", err)
		writeDetailed(w, http.StatusInternalServerError, "Failed to generate proof", err)
		return
	}

	writeJSON(w, http.StatusOK, generateProofResponse{
		Success: true,
		Proof:   res.Proof,
		Metadata: proofMetadata{
			Direction:      res.Direction,
			SourceChain:    res.SourceChain,
			SourceChainID:  res.SourceChainID,
			RequestedBlock: greq.BlockNumber,
			ProofBlock:     res.Proof.BlockNumber,
			GeneratedAt:    res.GeneratedAt,
		},
	})
}

// target resolves the chain and direction parameters, writing the error
// response itself when they are invalid.
func (h *Handler) target(w http.ResponseWriter, chain, direction string) (adapter.Adapter, types.Direction, bool) {
	if chain == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing chain"))
		return nil, "", false
	}
	dir, err := types.ParseDirection(direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, "", false
	}
	a, err := h.registry.Get(chain)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, "", false
	}
	if !a.Config().Supports(dir) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%s: %w", chain, types.ErrUnsupportedDirection))
		return nil, "", false
	}
	return a, dir, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDetailed(w http.ResponseWriter, status int, msg string, err error) {
	writeJSON(w, status, map[string]string{"error": msg, "details": err.Error()})
}
