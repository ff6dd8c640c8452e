package proof

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/adapter"
)

var (
	// ErrNotReady is returned when no checkpoint covers the block yet.
	ErrNotReady    = errors.New("block not yet checkpointed")
	ErrMissingSlot = errors.New("missing storage slot")
)

// Adapters looks up the adapter of a chain.
type Adapters interface {
	Get(chainID string) (adapter.Adapter, error)
}

// GenerateRequest asks for a proof of a source-layer block. Account defaults
// to the source-layer contract and Slot to the chain's checkpoints slot.
type GenerateRequest struct {
	Chain       string
	Direction   types.Direction
	BlockNumber uint64
	Slot        *common.Hash
	Account     *common.Address
}

// Result pairs a proof with the resolution that selected its block.
type Result struct {
	Proof         *StorageProof     `json:"proof,omitempty"`
	Resolution    types.ProofResult `json:"resolution"`
	Direction     types.Direction   `json:"direction"`
	SourceChain   string            `json:"sourceChain"`
	SourceChainID uint64            `json:"sourceChainId"`
	GeneratedAt   time.Time         `json:"generatedAt"`
}

// Service resolves the covering checkpoint first and proves that block,
// which may be later than the one requested.
type Service struct {
	adapters  Adapters
	generator Generator
	log       *zap.SugaredLogger
	now       func() time.Time
}

func NewService(adapters Adapters, generator Generator, log *zap.SugaredLogger) *Service {
	return &Service{adapters: adapters, generator: generator, log: log, now: time.Now}
}

func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	a, err := s.adapters.Get(req.Chain)
	if err != nil {
		return nil, err
	}
	cfg := a.Config()
	if !cfg.Supports(req.Direction) {
		return nil, fmt.Errorf("%s %s: %w", cfg.ID, req.Direction, types.ErrUnsupportedDirection)
	}
	src := cfg.Layer(req.Direction.SourceLayer())

	out := &Result{
		Direction:     req.Direction,
		SourceChain:   fmt.Sprintf("%s %s", cfg.Name, req.Direction.SourceLayer()),
		SourceChainID: src.ChainID,
	}

	out.Resolution = a.CheckProof(ctx, req.Direction, req.BlockNumber)
	if !out.Resolution.Exists || out.Resolution.ProofBlock == nil {
		return out, fmt.Errorf("%w: %s", ErrNotReady, out.Resolution.Error)
	}

	slot, err := slotFor(req, cfg.CheckpointsSlot)
	if err != nil {
		return out, err
	}
	account := src.Address
	if req.Account != nil {
		account = *req.Account
	}

	block := *out.Resolution.ProofBlock
	s.log.Infow("generating storage proof",
		"chain", cfg.ID,
		"direction", req.Direction,
		"requestedBlock", req.BlockNumber,
		"proofBlock", block,
		"account", account,
		"slot", slot,
	)
	p, err := s.generator.Generate(ctx, Request{
		RPC:         src.RPC,
		Account:     account,
		Slot:        slot,
		BlockNumber: block,
	})
	if err != nil {
		return out, fmt.Errorf("generate proof for block %d: %w", block, err)
	}
	out.Proof = p
	out.GeneratedAt = s.now().UTC()
	return out, nil
}

func slotFor(req GenerateRequest, chainSlot uint64) (common.Hash, error) {
	if req.Slot != nil {
		return *req.Slot, nil
	}
	if chainSlot == 0 {
		return common.Hash{}, ErrMissingSlot
	}
	return common.BigToHash(new(big.Int).SetUint64(chainSlot)), nil
}

// ParseSlot reads a storage slot given in decimal or 0x-prefixed hex.
func ParseSlot(s string) (common.Hash, error) {
	slot, ok := new(big.Int).SetString(s, 0)
	if !ok || slot.Sign() < 0 || slot.BitLen() > 256 {
		return common.Hash{}, fmt.Errorf("invalid storage slot %q", s)
	}
	return common.BigToHash(slot), nil
}
