// Package normalizertest builds raw event logs for tests.
package normalizertest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// At locates a log on the committing chain.
type At struct {
	Block uint64
	Tx    common.Hash
	Index uint
}

// Log ABI-encodes values for ev. Integers may be given as uint64 or *big.Int,
// bytes32 values as common.Hash. It panics on encoding errors.
func Log(ev abi.Event, addr common.Address, at At, values map[string]any) gethtypes.Log {
	topics := []common.Hash{ev.ID}
	var (
		data     []any
		nonIndex abi.Arguments
	)
	for _, in := range ev.Inputs {
		v, ok := values[in.Name]
		if !ok {
			panic(fmt.Sprintf("missing value for %s", in.Name))
		}
		v = canonical(v)
		if in.Indexed {
			topics = append(topics, topic(v))
			continue
		}
		nonIndex = append(nonIndex, in)
		data = append(data, v)
	}

	packed, err := nonIndex.Pack(data...)
	if err != nil {
		panic(err)
	}

	return gethtypes.Log{
		Address:     addr,
		Topics:      topics,
		Data:        packed,
		BlockNumber: at.Block,
		TxHash:      at.Tx,
		Index:       at.Index,
	}
}

func canonical(v any) any {
	switch x := v.(type) {
	case uint64:
		return new(big.Int).SetUint64(x)
	case int:
		return big.NewInt(int64(x))
	case common.Hash:
		return [32]byte(x)
	default:
		return v
	}
}

func topic(v any) common.Hash {
	switch x := v.(type) {
	case *big.Int:
		return common.BigToHash(x)
	case [32]byte:
		return common.Hash(x)
	default:
		panic(fmt.Sprintf("unsupported topic type %T", v))
	}
}
