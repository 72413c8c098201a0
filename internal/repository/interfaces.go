package repository

import (
	"context"
	"time"

	"github.com/cadencehq/cadence/internal/coordination"
)

// CoordinationStore manages coordination event and trigger persistence.
// Implementations must guarantee at most one non-RESOLVED trigger per
// (projectID, dedupKey): concurrent inserts for the same live key must fail
// with ErrDuplicateTrigger rather than create a second row.
type CoordinationStore interface {
	GetEvents(ctx context.Context, sel coordination.EventSelector) ([]coordination.Event, error)
	MarkEventProcessed(ctx context.Context, eventID string, processedAt time.Time) error
	GetLatestTriggerByDedupKey(ctx context.Context, projectID, dedupKey string) (*coordination.Trigger, error)
	CreateTrigger(ctx context.Context, draft coordination.TriggerDraft, createdAt time.Time) (*coordination.Trigger, error)
	ResolveTriggers(ctx context.Context, opts coordination.ResolveOptions) (int, error)
	GetPendingTriggerAges(ctx context.Context, projectID string, now time.Time) ([]coordination.Event, error)
}

// TriggerDeliveryStore is the plain read/update surface the notification
// delivery collaborator uses; it is not part of the engine's logic.
type TriggerDeliveryStore interface {
	ListPendingTriggers(ctx context.Context, projectID string, limit int) ([]coordination.Trigger, error)
	MarkTriggerSent(ctx context.Context, triggerID string) error
}
