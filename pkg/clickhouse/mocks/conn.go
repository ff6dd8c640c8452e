// Package mocks holds testify doubles for the ClickHouse driver.
package mocks

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/mock"
)

// MockConn mocks the connection methods the client and the status history
// repository call. Any other driver.Conn method panics.
type MockConn struct {
	driver.Conn
	mock.Mock
}

var _ driver.Conn = (*MockConn)(nil)

// Exec records ctx, query and every bind argument.
func (m *MockConn) Exec(ctx context.Context, query string, args ...any) error {
	return m.Called(append([]any{ctx, query}, args...)...).Error(0)
}

// PrepareBatch records ctx and query; batch options are not matched.
func (m *MockConn) PrepareBatch(ctx context.Context, query string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	args := m.Called(ctx, query)
	b, _ := args.Get(0).(driver.Batch)
	return b, args.Error(1)
}

func (m *MockConn) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConn) Close() error {
	return m.Called().Error(0)
}
