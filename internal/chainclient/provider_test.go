package chainclient_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openintents/checkpoint-viewer/internal/chainclient"
	"github.com/openintents/checkpoint-viewer/internal/chainclient/chainclienttest"
	"github.com/openintents/checkpoint-viewer/internal/types"
)

func TestProvider_DialsOncePerChainLayer(t *testing.T) {
	t.Parallel()

	var dials atomic.Int32
	p := chainclient.NewProvider(func(context.Context, string) (chainclient.ChainClient, error) {
		dials.Add(1)
		return chainclienttest.New(1), nil
	})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Get(t.Context(), "taiko", types.LayerL1, "http://l1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), dials.Load())

	a, err := p.Get(t.Context(), "taiko", types.LayerL2, "http://l2")
	require.NoError(t, err)
	b, err := p.Get(t.Context(), "linea", types.LayerL2, "http://l2")
	require.NoError(t, err)
	require.NotSame(t, a, b)
	require.Equal(t, int32(3), dials.Load())

	p.Close()
	require.True(t, a.(*chainclienttest.Fake).Closed)
}

func TestProvider_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("bad url")
	p := chainclient.NewProvider(func(context.Context, string) (chainclient.ChainClient, error) {
		return nil, boom
	})

	_, err := p.Get(t.Context(), "taiko", types.LayerL1, "")
	require.ErrorIs(t, err, chainclient.ErrEmptyEndpoint)

	_, err = p.Get(t.Context(), "taiko", types.LayerL1, "http://l1")
	require.ErrorIs(t, err, boom)
}
