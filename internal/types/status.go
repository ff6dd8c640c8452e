package types

import "github.com/ethereum/go-ethereum/common"

// ChainStatus reports how far checkpointing lags behind the source layer.
// When IsConnected is false the remaining fields are best-effort and Error
// carries the reason.
type ChainStatus struct {
	ChainName        string         `json:"chainName"`
	Direction        Direction      `json:"direction"`
	IsConnected      bool           `json:"isConnected"`
	LatestCheckpoint *Checkpoint    `json:"latestCheckpoint"`
	TotalCheckpoints int            `json:"totalCheckpoints"`
	ContractAddress  common.Address `json:"contractAddress"`
	CurrentBlock     *uint64        `json:"currentBlock,omitempty"`
	BlocksBehind     *uint64        `json:"blocksBehind,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// ProofResult answers whether a block is covered by a checkpoint.
//
// When Exists is true, ProofBlock is the block a storage proof must target.
// It may be greater than BlockNumber for range-finalizing protocols.
type ProofResult struct {
	Exists           bool         `json:"exists"`
	BlockNumber      uint64       `json:"blockNumber"`
	ProofBlock       *uint64      `json:"proofBlock,omitempty"`
	BlockHash        *common.Hash `json:"blockHash,omitempty"`
	StateRoot        *common.Hash `json:"stateRoot,omitempty"`
	Checkpoint       *Checkpoint  `json:"checkpoint,omitempty"`
	LatestCheckpoint *Checkpoint  `json:"latestCheckpoint,omitempty"`
	NextAvailable    *uint64      `json:"nextAvailable,omitempty"`
	BlocksAhead      *uint64      `json:"blocksAhead,omitempty"`
	CurrentBlock     *uint64      `json:"currentBlock,omitempty"` // source-layer head, not-ready only
	Error            string       `json:"error,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
