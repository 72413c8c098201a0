package coordination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Service turns raw project activity into deduplicated, escalating
// triggers. It holds no state beyond the store and is safe to invoke
// concurrently from live ingestion and the scheduled sweep.
type Service struct {
	store  Store
	rules  []Rule
	logger *slog.Logger
}

// NewService creates a new coordination service over the given store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		rules:  Catalog(),
		logger: logger,
	}
}

// ProcessRequest describes one processing invocation. Now is supplied by the
// caller; the service never reads the wall clock.
type ProcessRequest struct {
	Now      time.Time
	Selector EventSelector
}

// Result aggregates the outcome of one processing or sweep pass.
type Result struct {
	ProcessedEvents  int `json:"processed_events"`
	CreatedTriggers  int `json:"created_triggers"`
	ResolvedTriggers int `json:"resolved_triggers"`
}

// ProcessEvents folds a batch of unprocessed events into trigger state.
// For each event, resolution predicates run before creation predicates, and
// the event is marked processed last, so re-running any batch is a no-op.
// Per-event storage failures leave that event unprocessed for the next run
// and never abort the batch; only the initial fetch failing is an error.
func (s *Service) ProcessEvents(ctx context.Context, req ProcessRequest) (*Result, error) {
	if req.Now.IsZero() {
		return nil, fmt.Errorf("now is required: %w", ErrInvalidInput)
	}

	events, err := s.store.GetEvents(ctx, req.Selector)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}

	return s.processBatch(ctx, events, req.Now), nil
}

func (s *Service) processBatch(ctx context.Context, events []Event, now time.Time) *Result {
	result := &Result{}
	for _, ev := range events {
		if ev.ProcessedAt != nil {
			continue
		}
		created, resolved, err := s.processOne(ctx, ev, now)
		if err != nil {
			eventFailuresCounter.WithLabelValues(string(ev.Type)).Inc()
			s.logger.Warn("coordination event left for retry",
				"event_id", ev.ID,
				"event_type", ev.Type,
				"error", err)
			continue
		}
		result.ProcessedEvents++
		result.CreatedTriggers += created
		result.ResolvedTriggers += resolved
	}
	return result
}

// processOne applies one event in isolation: resolutions, then creation,
// then the processed marker. A returned error means nothing durable depends
// on this pass and the event will be retried.
func (s *Service) processOne(ctx context.Context, ev Event, now time.Time) (int, int, error) {
	created := 0
	malformed := false

	resolved, err := s.applyResolutions(ctx, ev, now, &malformed)
	if err != nil {
		return 0, 0, err
	}

	for _, rule := range s.rules {
		match, err := rule.MatchCreation(ev)
		if err != nil {
			// The event's type named this rule but its payload is
			// unusable; no other rule can match the same type.
			malformed = true
			break
		}
		if match == nil {
			continue
		}
		n, err := s.createIfAbsent(ctx, ev.ProjectID, rule.ID, *match, now)
		if err != nil {
			return 0, 0, err
		}
		created = n
		break // first match wins
	}

	if !ev.Synthetic {
		if err := s.store.MarkEventProcessed(ctx, ev.ID, now); err != nil {
			return 0, 0, fmt.Errorf("marking event processed: %w", err)
		}
	}

	if malformed {
		malformedEventsCounter.WithLabelValues(string(ev.Type)).Inc()
		s.logger.Warn("event metadata malformed, marked processed without effect",
			"event_id", ev.ID,
			"event_type", ev.Type)
	}
	eventsProcessedCounter.WithLabelValues(string(ev.Type)).Inc()

	return created, resolved, nil
}

// applyResolutions collects resolution matches across the whole catalog and
// clears all live triggers they name in a single store call. A condition may
// have produced triggers at several escalation levels; all of them go.
func (s *Service) applyResolutions(ctx context.Context, ev Event, now time.Time, malformed *bool) (int, error) {
	var ruleIDs []string
	for _, rule := range s.rules {
		match, err := rule.MatchResolution(ev)
		if err != nil {
			*malformed = true
			continue
		}
		if match != nil {
			ruleIDs = append(ruleIDs, match.RuleIDs...)
		}
	}
	if len(ruleIDs) == 0 {
		return 0, nil
	}

	n, err := s.store.ResolveTriggers(ctx, ResolveOptions{
		ProjectID:       ev.ProjectID,
		RelatedEntityID: ev.RelatedEntityID,
		RuleIDs:         ruleIDs,
		ResolvedAt:      now,
	})
	if err != nil {
		return 0, fmt.Errorf("resolving triggers: %w", err)
	}
	if n > 0 {
		triggersResolvedCounter.Add(float64(n))
		s.logger.Info("triggers resolved",
			"project_id", ev.ProjectID,
			"related_entity_id", ev.RelatedEntityID,
			"rule_ids", ruleIDs,
			"count", n)
	}
	return n, nil
}

// createIfAbsent creates the trigger a creation match calls for unless a
// live trigger already holds its dedup key. The key embeds the escalation
// level, so a resolved trigger at the same level never blocks recreation and
// a higher level always gets a fresh row.
func (s *Service) createIfAbsent(ctx context.Context, projectID, ruleID string, match CreationMatch, now time.Time) (int, error) {
	key := BuildDedupKey(ruleID, match.TargetUserID, match.RelatedEntityID, match.EscalationLevel)

	latest, err := s.store.GetLatestTriggerByDedupKey(ctx, projectID, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("looking up trigger %s: %w", key, err)
	}
	if latest != nil && latest.Live() {
		duplicateSuppressedCounter.WithLabelValues(ruleID).Inc()
		return 0, nil
	}

	draft := TriggerDraft{
		ProjectID:       projectID,
		TargetUserID:    match.TargetUserID,
		RelatedEntityID: match.RelatedEntityID,
		Severity:        match.Severity,
		RuleID:          ruleID,
		EscalationLevel: match.EscalationLevel,
		DedupKey:        key,
	}
	trigger, err := s.store.CreateTrigger(ctx, draft, now)
	if err != nil {
		if errors.Is(err, ErrDuplicateTrigger) {
			// Lost a race with a concurrent run; the trigger exists.
			duplicateSuppressedCounter.WithLabelValues(ruleID).Inc()
			return 0, nil
		}
		return 0, fmt.Errorf("creating trigger %s: %w", key, err)
	}

	triggersCreatedCounter.WithLabelValues(ruleID).Inc()
	s.logger.Info("trigger created",
		"trigger_id", trigger.ID,
		"project_id", projectID,
		"rule_id", ruleID,
		"target_user_id", match.TargetUserID,
		"escalation_level", match.EscalationLevel)
	return 1, nil
}
