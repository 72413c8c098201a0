package coordination

import (
	"context"
	"time"
)

// EventSelector chooses which unprocessed events to fetch: either an
// explicit ID list, or everything since a point in time, optionally scoped
// to one project.
type EventSelector struct {
	EventIDs  []string
	Since     time.Time
	ProjectID string
}

// ResolveOptions names the live triggers to mark RESOLVED.
type ResolveOptions struct {
	ProjectID       string
	RelatedEntityID string
	RuleIDs         []string
	ResolvedAt      time.Time
}

// Store is the narrow storage contract the engine consumes. Implementations
// must enforce uniqueness of (projectID, dedupKey) among non-resolved
// triggers and surface insert conflicts as ErrDuplicateTrigger.
type Store interface {
	// GetEvents returns events matching the selector whose processed_at is
	// still null.
	GetEvents(ctx context.Context, sel EventSelector) ([]Event, error)

	// MarkEventProcessed sets processed_at, transitioning null to the given
	// timestamp at most once. Marking an already-processed event is a no-op.
	MarkEventProcessed(ctx context.Context, eventID string, processedAt time.Time) error

	// GetLatestTriggerByDedupKey returns the most recent trigger for the
	// key, any status, or ErrNotFound.
	GetLatestTriggerByDedupKey(ctx context.Context, projectID, dedupKey string) (*Trigger, error)

	// CreateTrigger persists a new PENDING trigger.
	CreateTrigger(ctx context.Context, draft TriggerDraft, createdAt time.Time) (*Trigger, error)

	// ResolveTriggers marks every matching PENDING or SENT trigger RESOLVED
	// and returns how many rows it touched.
	ResolveTriggers(ctx context.Context, opts ResolveOptions) (int, error)

	// GetPendingTriggerAges synthesizes one age-bearing event per open
	// trigger, scoped to a project when projectID is non-empty.
	GetPendingTriggerAges(ctx context.Context, projectID string, now time.Time) ([]Event, error)
}
