// Package chainclienttest provides an in-memory chainclient.ChainClient for tests.
package chainclienttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/openintents/checkpoint-viewer/internal/chainclient"
	"github.com/openintents/checkpoint-viewer/internal/types"
)

var _ chainclient.ChainClient = (*Fake)(nil)

// Fake serves a fixed head, headers and logs. Set the *Err fields to inject failures.
type Fake struct {
	mu sync.Mutex

	Head    uint64
	Headers map[uint64]types.BlockHeader
	Logs    []gethtypes.Log

	BlockNumberErr error
	HeaderErr      error
	FilterLogsErr  error

	Queries []ethereum.FilterQuery
	Closed  bool
}

func New(head uint64) *Fake {
	return &Fake{Head: head, Headers: make(map[uint64]types.BlockHeader)}
}

// AddHeader registers a header keyed by its number.
func (f *Fake) AddHeader(h types.BlockHeader) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Headers[h.Number] = h
}

// AddHeaders registers synthetic headers for every block in [from, to] with
// timestamps starting at baseTime and stepping 12 seconds.
func (f *Fake) AddHeaders(from, to, baseTime uint64) {
	for n := from; n <= to; n++ {
		f.AddHeader(types.BlockHeader{
			Number:    n,
			Hash:      HashFor("block", n),
			StateRoot: HashFor("root", n),
			Time:      baseTime + (n-from)*12,
		})
	}
}

func (f *Fake) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BlockNumberErr != nil {
		return 0, f.BlockNumberErr
	}
	return f.Head, nil
}

func (f *Fake) HeaderByNumber(_ context.Context, number uint64) (types.BlockHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.HeaderErr != nil {
		return types.BlockHeader{}, f.HeaderErr
	}
	h, ok := f.Headers[number]
	if !ok {
		return types.BlockHeader{}, fmt.Errorf("header %d: %w", number, ethereum.NotFound)
	}
	return h, nil
}

func (f *Fake) HeaderByHash(_ context.Context, hash common.Hash) (types.BlockHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.HeaderErr != nil {
		return types.BlockHeader{}, f.HeaderErr
	}
	for _, h := range f.Headers {
		if h.Hash == hash {
			return h, nil
		}
	}
	return types.BlockHeader{}, fmt.Errorf("header %s: %w", hash, ethereum.NotFound)
}

// FilterLogs applies the address, first-topic and block range filters of q.
func (f *Fake) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, q)
	if f.FilterLogsErr != nil {
		return nil, f.FilterLogsErr
	}

	var out []gethtypes.Log
	for _, l := range f.Logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 {
			if len(l.Topics) == 0 || !containsHash(q.Topics[0], l.Topics[0]) {
				continue
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *Fake) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
}

// HashFor derives a deterministic hash for tests.
func HashFor(kind string, n uint64) common.Hash {
	return common.BytesToHash([]byte(fmt.Sprintf("%s-%d", kind, n)))
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, x := range list {
		if x == h {
			return true
		}
	}
	return false
}
