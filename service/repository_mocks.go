package service

import (
	"context"
	"time"

	"megamillions/events"
	"megamillions/models"

	"github.com/stretchr/testify/mock"
)

// MockFetcher is a mock implementation of Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, sourceURL string) ([]*models.Table, error) {
	args := m.Called(ctx, sourceURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Table), args.Error(1)
}

// MockSnapshotStore is a mock implementation of SnapshotStore
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Replace(ctx context.Context, tableName string, snapshot *models.Snapshot) error {
	args := m.Called(ctx, tableName, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotStore) ReadAll(ctx context.Context, tableName string) ([]models.Row, error) {
	args := m.Called(ctx, tableName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Row), args.Error(1)
}

func (m *MockSnapshotStore) ReadColumns(ctx context.Context, tableName string, columns []string) ([]models.Row, error) {
	args := m.Called(ctx, tableName, columns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Row), args.Error(1)
}

func (m *MockSnapshotStore) ReadByID(ctx context.Context, tableName string, id int64) ([]models.Row, error) {
	args := m.Called(ctx, tableName, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Row), args.Error(1)
}

// MockSnapshotRunStore is a mock implementation of SnapshotRunStore
type MockSnapshotRunStore struct {
	mock.Mock
}

func (m *MockSnapshotRunStore) Start(ctx context.Context, run *models.SnapshotRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockSnapshotRunStore) Finish(ctx context.Context, run *models.SnapshotRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockSnapshotRunStore) Latest(ctx context.Context, tableName string) (*models.SnapshotRun, error) {
	args := m.Called(ctx, tableName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SnapshotRun), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockIngestionMetrics is a mock implementation of IngestionMetrics
type MockIngestionMetrics struct {
	mock.Mock
}

func (m *MockIngestionMetrics) RecordFetch(ctx context.Context, outcome string, duration time.Duration) {
	m.Called(ctx, outcome, duration)
}

func (m *MockIngestionMetrics) RecordIngest(ctx context.Context, table, outcome string) {
	m.Called(ctx, table, outcome)
}

func (m *MockIngestionMetrics) RecordRejected(ctx context.Context, table string, rejected int) {
	m.Called(ctx, table, rejected)
}

func (m *MockIngestionMetrics) RecordReplace(ctx context.Context, table string, rows int, duration time.Duration) {
	m.Called(ctx, table, rows, duration)
}
