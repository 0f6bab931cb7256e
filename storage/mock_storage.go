package storage

import (
	"context"

	"github.com/calmirror/calmirror/event"
	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

// FetchEvent implements the Storage interface
func (m *MockStorage) FetchEvent(ctx context.Context, id int64) (*event.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Record), args.Error(1)
}

// PersistEvent implements the Storage interface
func (m *MockStorage) PersistEvent(ctx context.Context, ev *event.Record) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// FetchUIDMapping implements the Storage interface
func (m *MockStorage) FetchUIDMapping(ctx context.Context, localID int64) (string, error) {
	args := m.Called(ctx, localID)
	return args.String(0), args.Error(1)
}

// StoreUIDMapping implements the Storage interface
func (m *MockStorage) StoreUIDMapping(ctx context.Context, localID int64, uid string, calendarID int64) error {
	args := m.Called(ctx, localID, uid, calendarID)
	return args.Error(0)
}
