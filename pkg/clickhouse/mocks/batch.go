package mocks

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/mock"
)

// MockBatch mocks the batch methods the repositories call. Any other
// driver.Batch method panics.
type MockBatch struct {
	driver.Batch
	mock.Mock
}

func (m *MockBatch) Append(v ...any) error {
	return m.Called(v...).Error(0)
}

func (m *MockBatch) Send() error {
	return m.Called().Error(0)
}

func (m *MockBatch) Abort() error {
	return m.Called().Error(0)
}
