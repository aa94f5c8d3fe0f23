// Package mocks provides testify mocks for the ports interfaces.
package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// MockRemoteQuoteSource is a mock of ports.RemoteQuoteSource.
type MockRemoteQuoteSource struct {
	mock.Mock
}

// NewMockRemoteQuoteSource creates a mock whose expectations are asserted at test cleanup.
func NewMockRemoteQuoteSource(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRemoteQuoteSource {
	m := &MockRemoteQuoteSource{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// FetchRemoteQuotes mocks ports.RemoteQuoteSource.
func (m *MockRemoteQuoteSource) FetchRemoteQuotes(ctx context.Context) []domain.Quote {
	args := m.Called(ctx)

	quotes, _ := args.Get(0).([]domain.Quote)

	return quotes
}

// Publish mocks ports.RemoteQuoteSource.
func (m *MockRemoteQuoteSource) Publish(ctx context.Context, q domain.Quote) domain.PublishOutcome {
	args := m.Called(ctx, q)

	return args.Get(0).(domain.PublishOutcome) //nolint:forcetypeassert // mock contract
}

// MockKeyValueStore is a mock of ports.KeyValueStore.
type MockKeyValueStore struct {
	mock.Mock
}

// NewMockKeyValueStore creates a mock whose expectations are asserted at test cleanup.
func NewMockKeyValueStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockKeyValueStore {
	m := &MockKeyValueStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Get mocks ports.KeyValueStore.
func (m *MockKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)

	data, _ := args.Get(0).([]byte)

	return data, args.Error(1)
}

// Set mocks ports.KeyValueStore.
func (m *MockKeyValueStore) Set(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

// Close mocks ports.KeyValueStore.
func (m *MockKeyValueStore) Close() error {
	return m.Called().Error(0)
}

// MockExportSink is a mock of ports.ExportSink.
type MockExportSink struct {
	mock.Mock
}

// NewMockExportSink creates a mock whose expectations are asserted at test cleanup.
func NewMockExportSink(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockExportSink {
	m := &MockExportSink{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Name mocks ports.ExportSink.
func (m *MockExportSink) Name() string {
	return m.Called().String(0)
}

// Write mocks ports.ExportSink.
func (m *MockExportSink) Write(ctx context.Context, filename string, body io.Reader, size int64) (string, error) {
	args := m.Called(ctx, filename, body, size)

	return args.String(0), args.Error(1)
}
