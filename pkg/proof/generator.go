// Package proof builds Merkle storage proofs for checkpointed blocks.
package proof

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/openintents/checkpoint-viewer/internal/chainclient/evm"
)

var (
	// ErrBlockHashMismatch means the header returned by the node does not hash
	// to the block hash the node reports, so the RLP header cannot be trusted.
	ErrBlockHashMismatch = errors.New("block hash mismatch")
	// ErrStateRootMismatch means the account proof does not start at the
	// block's state root.
	ErrStateRootMismatch = errors.New("state root mismatch")
	ErrEmptyProof        = errors.New("empty account proof")
)

// Request selects one storage slot of one account at one block.
type Request struct {
	RPC         string
	Account     common.Address
	Slot        common.Hash
	BlockNumber uint64
}

// StorageProof is everything a verifier on the other layer needs.
type StorageProof struct {
	BlockNumber    uint64          `json:"blockNumber"`
	BlockHash      common.Hash     `json:"blockHash"`
	StateRoot      common.Hash     `json:"stateRoot"`
	Account        common.Address  `json:"account"`
	Slot           common.Hash     `json:"slot"`
	SlotValue      common.Hash     `json:"slotValue"`
	StorageHash    common.Hash     `json:"storageHash"`
	RLPBlockHeader hexutil.Bytes   `json:"rlpBlockHeader"`
	AccountProof   []hexutil.Bytes `json:"accountProof"`
	StorageProof   []hexutil.Bytes `json:"storageProof"`
}

// Generator produces a storage proof for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*StorageProof, error)
}

// EthGenerator uses eth_getProof on the node at Request.RPC. Every call
// carries the per-call timeout, retry bound and rate limit of cfg.
type EthGenerator struct {
	cfg  evm.Config
	opts []evm.Option
}

func NewEthGenerator(cfg evm.Config, opts ...evm.Option) *EthGenerator {
	return &EthGenerator{cfg: cfg, opts: opts}
}

func (g *EthGenerator) Generate(ctx context.Context, req Request) (*StorageProof, error) {
	c, err := evm.New(ctx, req.RPC, g.cfg, g.opts...)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer c.Close()

	header, err := c.FullHeaderByNumber(ctx, req.BlockNumber)
	if err != nil {
		return nil, err
	}

	reported, err := c.ReportedBlockHash(ctx, req.BlockNumber)
	if err != nil {
		return nil, err
	}
	if computed := header.Hash(); computed != reported {
		return nil, fmt.Errorf("%w: node reports %s, header hashes to %s", ErrBlockHashMismatch, reported, computed)
	}

	res, err := c.GetProof(ctx, req.Account, []string{req.Slot.Hex()}, req.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("get proof: %w", err)
	}
	if len(res.AccountProof) == 0 {
		return nil, ErrEmptyProof
	}
	if root := crypto.Keccak256Hash(common.FromHex(res.AccountProof[0])); root != header.Root {
		return nil, fmt.Errorf("%w: proof root %s, header root %s", ErrStateRootMismatch, root, header.Root)
	}

	enc, err := rlp.EncodeToBytes(header)
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	out := &StorageProof{
		BlockNumber:    req.BlockNumber,
		BlockHash:      reported,
		StateRoot:      header.Root,
		Account:        req.Account,
		Slot:           req.Slot,
		StorageHash:    res.StorageHash,
		RLPBlockHeader: enc,
		AccountProof:   decodeNodes(res.AccountProof),
	}
	if len(res.StorageProof) > 0 {
		sp := res.StorageProof[0]
		if sp.Value != nil {
			out.SlotValue = common.BigToHash(sp.Value)
		}
		out.StorageProof = decodeNodes(sp.Proof)
	}
	return out, nil
}

func decodeNodes(nodes []string) []hexutil.Bytes {
	out := make([]hexutil.Bytes, len(nodes))
	for i, n := range nodes {
		out[i] = common.FromHex(n)
	}
	return out
}
