package clickhouse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openintents/checkpoint-viewer/pkg/clickhouse/mocks"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOSTS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Enabled())
	assert.Equal(t, "default", cfg.Database)
	assert.Equal(t, "checkpoint_status_history", cfg.Table)
	assert.Equal(t, 60, cfg.MaxExecutionTime)
	assert.Equal(t, "checkpoint-viewer", cfg.ClientName)
}

func TestLoad_Hosts(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOSTS", "ch-1:9000,ch-2:9000")
	t.Setenv("CLICKHOUSE_CLUSTER", "main")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled())
	assert.Equal(t, []string{"ch-1:9000", "ch-2:9000"}, cfg.Hosts)
	assert.Equal(t, "main", cfg.Cluster)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("CLICKHOUSE_DIAL_TIMEOUT", "soon")

	_, err := Load()
	require.ErrorContains(t, err, "failed to parse clickhouse config")
}

func TestClient_DelegatesToConn(t *testing.T) {
	t.Parallel()

	conn := &mocks.MockConn{}
	pingErr := errors.New("ping failed")
	conn.On("Ping", mock.Anything).Return(pingErr).Once()
	conn.On("Close").Return(nil).Once()

	c := NewWithConn(conn)
	require.Same(t, conn, c.Conn())
	require.ErrorIs(t, c.Ping(t.Context()), pingErr)
	require.NoError(t, c.Close())
	conn.AssertExpectations(t)
}
