package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/internal/coordination"
	"github.com/cadencehq/cadence/internal/repository"
)

// CoordinationStore implements repository.CoordinationStore and
// repository.TriggerDeliveryStore for SQLite
type CoordinationStore struct {
	db *DB
}

// NewCoordinationStore creates a new CoordinationStore
func NewCoordinationStore(db *DB) *CoordinationStore {
	return &CoordinationStore{db: db}
}

const eventColumns = `
	id, project_id, event_type, target_user_id, related_entity_id,
	severity, metadata, occurred_at, processed_at
`

const triggerColumns = `
	id, project_id, target_user_id, related_entity_id, severity,
	rule_id, escalation_level, dedup_key, status, created_at, resolved_at
`

// InsertEvent persists a raw coordination event. Ingestion collaborators
// write events; the engine itself only reads them and sets processed_at.
func (s *CoordinationStore) InsertEvent(ctx context.Context, ev coordination.Event) error {
	raw, err := coordination.EncodeMetadata(ev.Metadata)
	if err != nil {
		return err
	}
	var metadata any
	if raw != nil {
		metadata = string(raw)
	}

	query := `
		INSERT INTO coordination_events (
			id, project_id, event_type, target_user_id, related_entity_id,
			severity, metadata, occurred_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		ev.ID,
		ev.ProjectID,
		ev.Type,
		ev.TargetUserID,
		nullableString(ev.RelatedEntityID),
		ev.Severity,
		metadata,
		ev.OccurredAt,
		ev.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// GetEvents returns unprocessed events matching the selector.
func (s *CoordinationStore) GetEvents(ctx context.Context, sel coordination.EventSelector) ([]coordination.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM coordination_events WHERE processed_at IS NULL`
	var args []any

	if len(sel.EventIDs) > 0 {
		placeholders := strings.Repeat("?,", len(sel.EventIDs))
		query += ` AND id IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, id := range sel.EventIDs {
			args = append(args, id)
		}
	}
	if !sel.Since.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, sel.Since)
	}
	if sel.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, sel.ProjectID)
	}
	query += ` ORDER BY occurred_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []coordination.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// MarkEventProcessed sets processed_at once; marking an already-processed
// event is a no-op.
func (s *CoordinationStore) MarkEventProcessed(ctx context.Context, eventID string, processedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE coordination_events SET processed_at = ? WHERE id = ? AND processed_at IS NULL`,
		processedAt, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM coordination_events WHERE id = ?`, eventID).Scan(&exists)
		if err == sql.ErrNoRows {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check event: %w", err)
		}
	}

	return nil
}

// GetLatestTriggerByDedupKey returns the most recent trigger for the key,
// any status.
func (s *CoordinationStore) GetLatestTriggerByDedupKey(ctx context.Context, projectID, dedupKey string) (*coordination.Trigger, error) {
	query := `
		SELECT ` + triggerColumns + `
		FROM coordination_triggers
		WHERE project_id = ? AND dedup_key = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`

	row := s.db.QueryRowContext(ctx, query, projectID, dedupKey)
	trigger, err := scanTrigger(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trigger: %w", err)
	}

	return trigger, nil
}

// CreateTrigger inserts a new PENDING trigger. The partial unique index on
// live (project_id, dedup_key) pairs turns a concurrent duplicate into
// repository.ErrDuplicateTrigger.
func (s *CoordinationStore) CreateTrigger(ctx context.Context, draft coordination.TriggerDraft, createdAt time.Time) (*coordination.Trigger, error) {
	trigger := &coordination.Trigger{
		ID:              uuid.NewString(),
		ProjectID:       draft.ProjectID,
		TargetUserID:    draft.TargetUserID,
		RelatedEntityID: draft.RelatedEntityID,
		Severity:        draft.Severity,
		RuleID:          draft.RuleID,
		EscalationLevel: draft.EscalationLevel,
		DedupKey:        draft.DedupKey,
		Status:          coordination.StatusPending,
		CreatedAt:       createdAt,
	}

	query := `
		INSERT INTO coordination_triggers (
			id, project_id, target_user_id, related_entity_id, severity,
			rule_id, escalation_level, dedup_key, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		trigger.ID,
		trigger.ProjectID,
		trigger.TargetUserID,
		nullableString(trigger.RelatedEntityID),
		trigger.Severity,
		trigger.RuleID,
		trigger.EscalationLevel,
		trigger.DedupKey,
		trigger.Status,
		trigger.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicateTrigger
		}
		return nil, fmt.Errorf("failed to create trigger: %w", err)
	}

	return trigger, nil
}

// ResolveTriggers marks every matching live trigger RESOLVED and returns
// the count.
func (s *CoordinationStore) ResolveTriggers(ctx context.Context, opts coordination.ResolveOptions) (int, error) {
	query := `
		UPDATE coordination_triggers
		SET status = 'RESOLVED', resolved_at = ?
		WHERE project_id = ? AND status != 'RESOLVED'
	`
	args := []any{opts.ResolvedAt, opts.ProjectID}

	if opts.RelatedEntityID != "" {
		query += ` AND related_entity_id = ?`
		args = append(args, opts.RelatedEntityID)
	}
	if len(opts.RuleIDs) > 0 {
		placeholders := strings.Repeat("?,", len(opts.RuleIDs))
		query += ` AND rule_id IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, id := range opts.RuleIDs {
			args = append(args, id)
		}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve triggers: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

// GetPendingTriggerAges synthesizes one age-bearing pseudo-event per open
// trigger. The events are never persisted.
func (s *CoordinationStore) GetPendingTriggerAges(ctx context.Context, projectID string, now time.Time) ([]coordination.Event, error) {
	query := `
		SELECT ` + triggerColumns + `
		FROM coordination_triggers
		WHERE status IN ('PENDING', 'SENT')
	`
	var args []any
	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query open triggers: %w", err)
	}
	defer rows.Close()

	var events []coordination.Event
	for rows.Next() {
		trigger, err := scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		if ev, ok := coordination.SyntheticAgeEvent(*trigger, now); ok {
			events = append(events, ev)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate triggers: %w", err)
	}

	return events, nil
}

// ListPendingTriggers pages undelivered triggers for the delivery
// collaborator.
func (s *CoordinationStore) ListPendingTriggers(ctx context.Context, projectID string, limit int) ([]coordination.Trigger, error) {
	query := `
		SELECT ` + triggerColumns + `
		FROM coordination_triggers
		WHERE status = 'PENDING'
	`
	var args []any
	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at, rowid`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending triggers: %w", err)
	}
	defer rows.Close()

	var triggers []coordination.Trigger
	for rows.Next() {
		trigger, err := scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		triggers = append(triggers, *trigger)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate triggers: %w", err)
	}

	return triggers, nil
}

// MarkTriggerSent transitions a PENDING trigger to SENT.
func (s *CoordinationStore) MarkTriggerSent(ctx context.Context, triggerID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE coordination_triggers SET status = 'SENT' WHERE id = ? AND status = 'PENDING'`,
		triggerID)
	if err != nil {
		return fmt.Errorf("failed to mark trigger sent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (coordination.Event, error) {
	var (
		ev            coordination.Event
		relatedEntity sql.NullString
		metadata      sql.NullString
		processedAt   sql.NullTime
	)
	err := row.Scan(
		&ev.ID,
		&ev.ProjectID,
		&ev.Type,
		&ev.TargetUserID,
		&relatedEntity,
		&ev.Severity,
		&metadata,
		&ev.OccurredAt,
		&processedAt,
	)
	if err != nil {
		return coordination.Event{}, fmt.Errorf("failed to scan event: %w", err)
	}

	if relatedEntity.Valid {
		ev.RelatedEntityID = relatedEntity.String
	}
	if processedAt.Valid {
		ev.ProcessedAt = &processedAt.Time
	}
	if metadata.Valid {
		// Undecodable payloads surface as nil metadata; the processor
		// marks such events processed without effect.
		meta, err := coordination.DecodeMetadata(ev.Type, []byte(metadata.String))
		if err == nil {
			ev.Metadata = meta
		}
	}

	return ev, nil
}

func scanTrigger(row rowScanner) (*coordination.Trigger, error) {
	var (
		trigger       coordination.Trigger
		relatedEntity sql.NullString
		resolvedAt    sql.NullTime
	)
	err := row.Scan(
		&trigger.ID,
		&trigger.ProjectID,
		&trigger.TargetUserID,
		&relatedEntity,
		&trigger.Severity,
		&trigger.RuleID,
		&trigger.EscalationLevel,
		&trigger.DedupKey,
		&trigger.Status,
		&trigger.CreatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if relatedEntity.Valid {
		trigger.RelatedEntityID = relatedEntity.String
	}
	if resolvedAt.Valid {
		trigger.ResolvedAt = &resolvedAt.Time
	}

	return &trigger, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
