package mocks

import (
	"context"
	"time"

	"github.com/cadencehq/cadence/internal/coordination"
	"github.com/stretchr/testify/mock"
)

// CoordinationStore is a mock for repository.CoordinationStore.
type CoordinationStore struct {
	mock.Mock
}

func (m *CoordinationStore) GetEvents(ctx context.Context, sel coordination.EventSelector) ([]coordination.Event, error) {
	args := m.Called(ctx, sel)
	if events, ok := args.Get(0).([]coordination.Event); ok {
		return events, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CoordinationStore) MarkEventProcessed(ctx context.Context, eventID string, processedAt time.Time) error {
	args := m.Called(ctx, eventID, processedAt)
	return args.Error(0)
}

func (m *CoordinationStore) GetLatestTriggerByDedupKey(ctx context.Context, projectID, dedupKey string) (*coordination.Trigger, error) {
	args := m.Called(ctx, projectID, dedupKey)
	if trigger, ok := args.Get(0).(*coordination.Trigger); ok {
		return trigger, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CoordinationStore) CreateTrigger(ctx context.Context, draft coordination.TriggerDraft, createdAt time.Time) (*coordination.Trigger, error) {
	args := m.Called(ctx, draft, createdAt)
	if trigger, ok := args.Get(0).(*coordination.Trigger); ok {
		return trigger, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CoordinationStore) ResolveTriggers(ctx context.Context, opts coordination.ResolveOptions) (int, error) {
	args := m.Called(ctx, opts)
	return args.Int(0), args.Error(1)
}

func (m *CoordinationStore) GetPendingTriggerAges(ctx context.Context, projectID string, now time.Time) ([]coordination.Event, error) {
	args := m.Called(ctx, projectID, now)
	if events, ok := args.Get(0).([]coordination.Event); ok {
		return events, args.Error(1)
	}
	return nil, args.Error(1)
}

// TriggerDeliveryStore is a mock for repository.TriggerDeliveryStore.
type TriggerDeliveryStore struct {
	mock.Mock
}

func (m *TriggerDeliveryStore) ListPendingTriggers(ctx context.Context, projectID string, limit int) ([]coordination.Trigger, error) {
	args := m.Called(ctx, projectID, limit)
	if triggers, ok := args.Get(0).([]coordination.Trigger); ok {
		return triggers, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TriggerDeliveryStore) MarkTriggerSent(ctx context.Context, triggerID string) error {
	args := m.Called(ctx, triggerID)
	return args.Error(0)
}
