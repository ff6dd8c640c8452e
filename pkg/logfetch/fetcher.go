// Package logfetch scans the most recent blocks of a chain for one contract event.
package logfetch

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/openintents/checkpoint-viewer/internal/chainclient"
	"github.com/openintents/checkpoint-viewer/internal/types"
	"github.com/openintents/checkpoint-viewer/pkg/metrics"
)

// Window is an inclusive block range.
type Window struct {
	From uint64
	To   uint64
}

// Contains reports whether n is inside the window.
func (w Window) Contains(n uint64) bool {
	return n >= w.From && n <= w.To
}

// WindowAt returns [max(0, head-lookback), head].
func WindowAt(head, lookback uint64) Window {
	from := uint64(0)
	if head > lookback {
		from = head - lookback
	}
	return Window{From: from, To: head}
}

// Query selects one event emitted by one contract.
type Query struct {
	Chain   string
	Address common.Address
	Event   abi.Event
}

type Fetcher struct {
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

func New(log *zap.SugaredLogger, m *metrics.Metrics) *Fetcher {
	return &Fetcher{log: log, metrics: m}
}

// Window reads the chain head and derives the scan window from it.
func (f *Fetcher) Window(ctx context.Context, c chainclient.ChainClient, lookback uint64) (Window, error) {
	head, err := c.BlockNumber(ctx)
	if err != nil {
		return Window{}, asTransport("eth_blockNumber", err)
	}
	return WindowAt(head, lookback), nil
}

// Logs returns every q.Event log inside w. Order is whatever the node returns.
func (f *Fetcher) Logs(ctx context.Context, c chainclient.ChainClient, w Window, q Query) ([]gethtypes.Log, error) {
	start := time.Now()
	logs, err := c.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(w.From),
		ToBlock:   new(big.Int).SetUint64(w.To),
		Addresses: []common.Address{q.Address},
		Topics:    [][]common.Hash{{q.Event.ID}},
	})
	if err != nil {
		return nil, asTransport("eth_getLogs", err)
	}
	f.metrics.RecordLogScan(q.Chain, q.Event.Name, len(logs), time.Since(start).Seconds())
	f.log.Debugw("scanned logs",
		"chain", q.Chain,
		"event", q.Event.Name,
		"from", w.From,
		"to", w.To,
		"count", len(logs),
	)
	return logs, nil
}

// Fetch reads the head and scans the window behind it.
func (f *Fetcher) Fetch(ctx context.Context, c chainclient.ChainClient, q Query, lookback uint64) ([]gethtypes.Log, Window, error) {
	w, err := f.Window(ctx, c, lookback)
	if err != nil {
		return nil, Window{}, err
	}
	logs, err := f.Logs(ctx, c, w, q)
	if err != nil {
		return nil, w, err
	}
	return logs, w, nil
}

func asTransport(method string, err error) error {
	if errors.Is(err, types.ErrTransport) {
		return err
	}
	return &types.TransportError{Method: method, Err: err}
}
