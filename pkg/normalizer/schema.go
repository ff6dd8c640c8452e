// Package normalizer turns protocol-specific checkpoint evidence into
// types.Checkpoint values.
//
// Event-backed protocols are described by a Schema: the event and the rule
// mapping its fields onto a checkpoint. Protocols that went through several
// event versions list their schemas newest first; see Variants.
package normalizer

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/openintents/checkpoint-viewer/internal/types"
)

var (
	ErrTopicMismatch = errors.New("log does not match event")
	ErrMissingField  = errors.New("missing event field")
)

type fields map[string]any

// Schema is one checkpoint-bearing event and its normalization rule.
type Schema struct {
	Name   string
	Event  abi.Event
	decode func(fields) (types.Checkpoint, error)
}

// Normalize decodes logs into checkpoints in input order.
// Removed logs and attestations of block 0 are dropped.
func (s Schema) Normalize(logs []gethtypes.Log) ([]types.Checkpoint, error) {
	out := make([]types.Checkpoint, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		f, err := unpack(s.Event, l)
		if err != nil {
			return nil, fmt.Errorf("%s log %s#%d: %w", s.Name, l.TxHash, l.Index, err)
		}
		cp, err := s.decode(f)
		if err != nil {
			return nil, fmt.Errorf("%s log %s#%d: %w", s.Name, l.TxHash, l.Index, err)
		}
		if cp.BlockNumber == 0 {
			continue
		}
		cp.TransactionHash = l.TxHash
		cp.CheckpointedInBlock = l.BlockNumber
		cp.LogIndex = l.Index
		cp.Schema = s.Name
		out = append(out, cp)
	}
	return out, nil
}

// CheckpointSaved: one event per checkpointed block.
var CheckpointSaved = Schema{
	Name:  "CheckpointSaved",
	Event: Event("CheckpointSaved"),
	decode: func(f fields) (types.Checkpoint, error) {
		n, err := f.uint("blockNumber")
		if err != nil {
			return types.Checkpoint{}, err
		}
		hash, err := f.hash("blockHash")
		if err != nil {
			return types.Checkpoint{}, err
		}
		root, err := f.hash("stateRoot")
		if err != nil {
			return types.Checkpoint{}, err
		}
		return types.Checkpoint{BlockNumber: n, BlockHash: hash, StateRoot: root}, nil
	},
}

// DataFinalizedV3 finalizes [start, end]. The shnarf stands in for the block hash.
var DataFinalizedV3 = Schema{
	Name:  "DataFinalizedV3",
	Event: Event("DataFinalizedV3"),
	decode: func(f fields) (types.Checkpoint, error) {
		start, err := f.uint("startBlockNumber")
		if err != nil {
			return types.Checkpoint{}, err
		}
		end, err := f.uint("endBlockNumber")
		if err != nil {
			return types.Checkpoint{}, err
		}
		shnarf, err := f.hash("shnarf")
		if err != nil {
			return types.Checkpoint{}, err
		}
		root, err := f.hash("finalStateRootHash")
		if err != nil {
			return types.Checkpoint{}, err
		}
		return types.Checkpoint{BlockNumber: end, RangeStart: &start, BlockHash: shnarf, StateRoot: root}, nil
	},
}

// BlocksVerificationDone carries only the final root, used as both identifiers.
var BlocksVerificationDone = Schema{
	Name:  "BlocksVerificationDone",
	Event: Event("BlocksVerificationDone"),
	decode: func(f fields) (types.Checkpoint, error) {
		n, err := f.uint("lastBlockFinalized")
		if err != nil {
			return types.Checkpoint{}, err
		}
		root, err := f.hash("finalRootHash")
		if err != nil {
			return types.Checkpoint{}, err
		}
		return types.Checkpoint{BlockNumber: n, BlockHash: root, StateRoot: root}, nil
	},
}

// DataFinalized is the oldest finalization event.
var DataFinalized = Schema{
	Name:  "DataFinalized",
	Event: Event("DataFinalized"),
	decode: func(f fields) (types.Checkpoint, error) {
		n, err := f.uint("finalBlockNumber")
		if err != nil {
			return types.Checkpoint{}, err
		}
		root, err := f.hash("finalStateRootHash")
		if err != nil {
			return types.Checkpoint{}, err
		}
		return types.Checkpoint{BlockNumber: n, BlockHash: root, StateRoot: root}, nil
	},
}

// SendRootUpdated records an L2 block hash with its outbox send root. The
// block number is unknown until the hash is resolved; see ResolveSendRoots.
var SendRootUpdated = Schema{
	Name:  "SendRootUpdated",
	Event: Event("SendRootUpdated"),
	decode: func(f fields) (types.Checkpoint, error) {
		sendRoot, err := f.hash("outputRoot")
		if err != nil {
			return types.Checkpoint{}, err
		}
		hash, err := f.hash("l2BlockHash")
		if err != nil {
			return types.Checkpoint{}, err
		}
		// BlockNumber is a placeholder so the zero filter keeps the entry.
		return types.Checkpoint{BlockNumber: unresolved, BlockHash: hash, SendRoot: &sendRoot}, nil
	},
}

// LineaFinalization lists Linea rollup schemas newest first.
var LineaFinalization = Variants{DataFinalizedV3, BlocksVerificationDone, DataFinalized}

func unpack(ev abi.Event, l gethtypes.Log) (fields, error) {
	if len(l.Topics) == 0 || l.Topics[0] != ev.ID {
		return nil, ErrTopicMismatch
	}
	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	f := fields{}
	if err := abi.ParseTopicsIntoMap(f, indexed, l.Topics[1:]); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	if err := ev.Inputs.UnpackIntoMap(f, l.Data); err != nil {
		return nil, fmt.Errorf("unpack data: %w", err)
	}
	return f, nil
}

func (f fields) uint(name string) (uint64, error) {
	switch v := f[name].(type) {
	case *big.Int:
		if v == nil || !v.IsUint64() {
			return 0, fmt.Errorf("%s: value out of range", name)
		}
		return v.Uint64(), nil
	case uint64:
		return v, nil
	case uint32:
		return uint64(v), nil
	case nil:
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	default:
		return 0, fmt.Errorf("%s: unexpected type %T", name, v)
	}
}

func (f fields) hash(name string) (common.Hash, error) {
	switch v := f[name].(type) {
	case [32]byte:
		return common.Hash(v), nil
	case common.Hash:
		return v, nil
	case nil:
		return common.Hash{}, fmt.Errorf("%w: %s", ErrMissingField, name)
	default:
		return common.Hash{}, fmt.Errorf("%s: unexpected type %T", name, v)
	}
}
