package message

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	raw, err := Seal(TypeChainStatus, 1, "taiko/l2ToL1", ts, map[string]uint64{"blocksBehind": 7})
	require.NoError(t, err)

	env, err := Open(raw)
	require.NoError(t, err)
	require.Equal(t, TypeChainStatus, env.Type)
	require.Equal(t, 1, env.Version)
	require.Equal(t, "taiko/l2ToL1", env.ID)
	require.True(t, ts.Equal(env.TS))
	require.Equal(t, time.UTC, env.TS.Location())

	var data map[string]uint64
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, uint64(7), data["blocksBehind"])

	_, err = Seal(TypeChainStatus, 1, "", ts, make(chan int))
	require.Error(t, err)

	_, err = Open([]byte("{"))
	require.Error(t, err)
}
