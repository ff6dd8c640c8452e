package logfetch

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openintents/checkpoint-viewer/internal/chainclient/chainclienttest"
	"github.com/openintents/checkpoint-viewer/internal/types"
)

func TestWindowAt(t *testing.T) {
	t.Parallel()

	require.Equal(t, Window{From: 0, To: 500}, WindowAt(500, 1000))
	require.Equal(t, Window{From: 0, To: 1000}, WindowAt(1000, 1000))
	require.Equal(t, Window{From: 4000, To: 5000}, WindowAt(5000, 1000))
	require.True(t, WindowAt(5000, 1000).Contains(4000))
	require.False(t, WindowAt(5000, 1000).Contains(3999))
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	addr := common.HexToAddress("0x01")
	event := abi.NewEvent("Ping", "Ping", false, nil)
	other := common.HexToHash("0xdead")

	fake := chainclienttest.New(5000)
	fake.Logs = []gethtypes.Log{
		{Address: addr, Topics: []common.Hash{event.ID}, BlockNumber: 3999},
		{Address: addr, Topics: []common.Hash{event.ID}, BlockNumber: 4000},
		{Address: addr, Topics: []common.Hash{other}, BlockNumber: 4500},
		{Address: common.HexToAddress("0x02"), Topics: []common.Hash{event.ID}, BlockNumber: 4600},
		{Address: addr, Topics: []common.Hash{event.ID}, BlockNumber: 5000},
	}

	f := New(zap.NewNop().Sugar(), nil)
	logs, w, err := f.Fetch(t.Context(), fake, Query{Chain: "test", Address: addr, Event: event}, 1000)
	require.NoError(t, err)
	require.Equal(t, Window{From: 4000, To: 5000}, w)
	require.Len(t, logs, 2)
	require.Equal(t, uint64(4000), logs[0].BlockNumber)
	require.Equal(t, uint64(5000), logs[1].BlockNumber)

	require.Len(t, fake.Queries, 1)
	require.Equal(t, uint64(4000), fake.Queries[0].FromBlock.Uint64())
	require.Equal(t, uint64(5000), fake.Queries[0].ToBlock.Uint64())
}

func TestFetcher_TransportErrors(t *testing.T) {
	t.Parallel()

	f := New(zap.NewNop().Sugar(), nil)
	q := Query{Chain: "test", Address: common.HexToAddress("0x01")}

	headDown := chainclienttest.New(100)
	headDown.BlockNumberErr = errors.New("connection refused")
	_, _, err := f.Fetch(t.Context(), headDown, q, 10)
	require.ErrorIs(t, err, types.ErrTransport)

	logsDown := chainclienttest.New(100)
	logsDown.FilterLogsErr = &types.TransportError{Method: "eth_getLogs", Err: errors.New("timeout")}
	logs, w, err := f.Fetch(t.Context(), logsDown, q, 10)
	require.ErrorIs(t, err, types.ErrTransport)
	require.Nil(t, logs)
	require.Equal(t, Window{From: 90, To: 100}, w)
}
