package coordination

import (
	"context"
	"fmt"
	"time"
)

// SweepRequest describes one scheduled sweep invocation. An empty ProjectID
// sweeps every project.
type SweepRequest struct {
	Now       time.Time
	ProjectID string
}

// RunScheduledSweep is the only source of upward escalation. It synthesizes
// one age-bearing event per open (PENDING or SENT) trigger and feeds them
// through the same per-event pipeline as live events; a crossed age
// threshold re-fires the creation rule at a higher escalation level, which
// is a new dedup key and therefore a new trigger row. The lower-level
// trigger is left live until an explicit resolution clears it.
func (s *Service) RunScheduledSweep(ctx context.Context, req SweepRequest) (*Result, error) {
	if req.Now.IsZero() {
		return nil, fmt.Errorf("now is required: %w", ErrInvalidInput)
	}

	events, err := s.store.GetPendingTriggerAges(ctx, req.ProjectID, req.Now)
	if err != nil {
		return nil, fmt.Errorf("fetching trigger ages: %w", err)
	}

	return s.processBatch(ctx, events, req.Now), nil
}

// SyntheticAgeEvent shapes the pseudo-event the sweep runs through the
// processor for one open trigger. The event is never persisted. Age
// metadata is reconstructed as the rule's creation threshold plus the time
// the trigger has been open. Returns false for rules with no age-driven
// escalation.
func SyntheticAgeEvent(t Trigger, now time.Time) (Event, bool) {
	age := now.Sub(t.CreatedAt)
	if age < 0 {
		age = 0
	}

	ev := Event{
		ID:              "sweep:" + t.ID,
		ProjectID:       t.ProjectID,
		TargetUserID:    t.TargetUserID,
		RelatedEntityID: t.RelatedEntityID,
		Severity:        t.Severity,
		OccurredAt:      t.CreatedAt,
		Synthetic:       true,
	}

	days := int(age / (24 * time.Hour))
	switch t.RuleID {
	case RuleUnansweredQuest:
		ev.Type = EventQuestionUnanswered
		ev.Metadata = QuestionMetadata{UnansweredHours: 24 + age.Hours()}
	case RuleActionOverdue:
		ev.Type = EventActionInteraction
		ev.Metadata = ActionMetadata{ActionState: ActionStateOverdue, OverdueHours: age.Hours()}
	case RuleBlockerPersisted:
		ev.Type = EventBlockerPersisted
		ev.Metadata = BlockerMetadata{BlockerDays: 2 + days}
	case RuleMissingStandup:
		ev.Type = EventStandupMissed
		ev.Metadata = StandupMetadata{ConsecutiveMissedDays: 2 + days}
	default:
		// snooze-expired-retrigger has no age threshold; it only fires
		// on real snooze expirations.
		return Event{}, false
	}
	return ev, true
}
