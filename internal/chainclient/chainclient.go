package chainclient

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/openintents/checkpoint-viewer/internal/types"
)

// ChainClient is the read-only RPC capability the engine needs from a node.
type ChainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number uint64) (types.BlockHeader, error)
	HeaderByHash(ctx context.Context, hash common.Hash) (types.BlockHeader, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error)
	Close()
}
