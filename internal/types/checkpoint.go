package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Checkpoint is a protocol-agnostic record that block BlockNumber of the source
// layer is anchored on the committing layer.
//
// BlockHash carries whatever identifier the protocol attests to: the true block
// hash, a Linea shnarf or a finalization root. Consumers must not assume it is
// the canonical block hash.
type Checkpoint struct {
	BlockNumber         uint64       `json:"blockNumber"`
	BlockHash           common.Hash  `json:"blockHash"`
	StateRoot           common.Hash  `json:"stateRoot"`
	SendRoot            *common.Hash `json:"sendRoot,omitempty"`
	RangeStart          *uint64      `json:"rangeStart,omitempty"`
	TransactionHash     common.Hash  `json:"transactionHash"`
	CheckpointedInBlock uint64       `json:"checkpointedInBlock"`
	LogIndex            uint         `json:"logIndex"`
	CheckpointedAt      *time.Time   `json:"checkpointedAt,omitempty"`
	Schema              string       `json:"schema,omitempty"`
}

// BlockHeader is the subset of a block header the engine reads.
type BlockHeader struct {
	Number    uint64      `json:"number"`
	Hash      common.Hash `json:"hash"`
	StateRoot common.Hash `json:"stateRoot"`
	Time      uint64      `json:"timestamp"`
}

// Timestamp converts the header's unix seconds.
func (h BlockHeader) Timestamp() time.Time {
	return time.Unix(int64(h.Time), 0).UTC()
}
