package coordination

import "fmt"

// Rule IDs of the fixed catalog.
const (
	RuleMissingStandup   = "missing-standup-two-days"
	RuleUnansweredQuest  = "question-unanswered-24h"
	RuleActionOverdue    = "action-overdue"
	RuleBlockerPersisted = "blocker-persisted-high-severity"
	RuleSnoozeRetrigger  = "snooze-expired-retrigger"
)

// CreationMatch describes the trigger a creation predicate wants to exist.
type CreationMatch struct {
	TargetUserID    string
	RelatedEntityID string
	Severity        Severity
	EscalationLevel int
}

// ResolutionMatch names the live triggers an event clears: every trigger for
// the entity produced by any of the listed rules, at any escalation level.
type ResolutionMatch struct {
	RelatedEntityID string
	RuleIDs         []string
}

// Rule pairs a creation predicate with an independent resolution predicate.
// Both are pure; age and state live entirely in event metadata.
type Rule struct {
	ID              string
	matchCreation   func(Event) (*CreationMatch, error)
	matchResolution func(Event) (*ResolutionMatch, error)
}

// MatchCreation reports whether the event should produce a trigger and at
// what escalation level. A nil match means the rule does not apply.
func (r Rule) MatchCreation(ev Event) (*CreationMatch, error) {
	if r.matchCreation == nil {
		return nil, nil
	}
	return r.matchCreation(ev)
}

// MatchResolution reports whether the event clears existing triggers.
func (r Rule) MatchResolution(ev Event) (*ResolutionMatch, error) {
	if r.matchResolution == nil {
		return nil, nil
	}
	return r.matchResolution(ev)
}

// Catalog returns the rule set in its fixed evaluation order. The order is
// load-bearing: creation predicates are tried in this order and the first
// match wins (event types are mutually exclusive, so at most one applies).
func Catalog() []Rule {
	return []Rule{
		{
			ID:            RuleMissingStandup,
			matchCreation: matchStandupMissed,
			// Cleared by standups resuming, which produces no event;
			// resolution is handled by absence, not presence.
		},
		{
			ID:              RuleUnansweredQuest,
			matchCreation:   matchQuestionUnanswered,
			matchResolution: matchQuestionAnswered,
		},
		{
			ID:              RuleActionOverdue,
			matchCreation:   matchActionOverdue,
			matchResolution: resolveOnActionDone(RuleActionOverdue),
		},
		{
			ID:              RuleBlockerPersisted,
			matchCreation:   matchBlockerPersisted,
			matchResolution: resolveOnActionDone(RuleBlockerPersisted),
		},
		{
			ID:            RuleSnoozeRetrigger,
			matchCreation: matchSnoozeExpired,
			// Never resolved from here; it always re-creates.
		},
	}
}

func matchStandupMissed(ev Event) (*CreationMatch, error) {
	if ev.Type != EventStandupMissed {
		return nil, nil
	}
	meta, ok := ev.Metadata.(StandupMetadata)
	if !ok {
		return nil, fmt.Errorf("%s: want StandupMetadata: %w", RuleMissingStandup, ErrMalformedMetadata)
	}
	if meta.ConsecutiveMissedDays < 2 {
		return nil, nil
	}
	level := 1
	switch {
	case meta.ConsecutiveMissedDays >= 5:
		level = 3
	case meta.ConsecutiveMissedDays >= 3:
		level = 2
	}
	return &CreationMatch{
		TargetUserID:    ev.TargetUserID,
		RelatedEntityID: ev.RelatedEntityID,
		Severity:        ev.Severity,
		EscalationLevel: level,
	}, nil
}

func matchQuestionUnanswered(ev Event) (*CreationMatch, error) {
	if ev.Type != EventQuestionUnanswered {
		return nil, nil
	}
	meta, ok := ev.Metadata.(QuestionMetadata)
	if !ok {
		return nil, fmt.Errorf("%s: want QuestionMetadata: %w", RuleUnansweredQuest, ErrMalformedMetadata)
	}
	if meta.UnansweredHours < 24 {
		return nil, nil
	}
	level := 1
	switch {
	case meta.UnansweredHours >= 72:
		level = 3
	case meta.UnansweredHours >= 48:
		level = 2
	}
	return &CreationMatch{
		TargetUserID:    ev.TargetUserID,
		RelatedEntityID: ev.RelatedEntityID,
		Severity:        ev.Severity,
		EscalationLevel: level,
	}, nil
}

func matchQuestionAnswered(ev Event) (*ResolutionMatch, error) {
	if ev.Type != EventQuestionAnswered {
		return nil, nil
	}
	meta, ok := ev.Metadata.(QuestionMetadata)
	if !ok {
		return nil, fmt.Errorf("%s: want QuestionMetadata: %w", RuleUnansweredQuest, ErrMalformedMetadata)
	}
	if meta.QuestionStatus != QuestionStatusAnswered {
		return nil, nil
	}
	// An empty entity would resolve every trigger of the rule in the
	// project; resolution is always entity-scoped.
	if ev.RelatedEntityID == "" {
		return nil, nil
	}
	return &ResolutionMatch{
		RelatedEntityID: ev.RelatedEntityID,
		RuleIDs:         []string{RuleUnansweredQuest},
	}, nil
}

func matchActionOverdue(ev Event) (*CreationMatch, error) {
	if ev.Type != EventActionInteraction {
		return nil, nil
	}
	meta, ok := ev.Metadata.(ActionMetadata)
	if !ok {
		return nil, fmt.Errorf("%s: want ActionMetadata: %w", RuleActionOverdue, ErrMalformedMetadata)
	}
	if meta.ActionState != ActionStateOverdue {
		return nil, nil
	}
	level := 1
	switch {
	case meta.OverdueHours >= 72:
		level = 3
	case meta.OverdueHours >= 24:
		level = 2
	}
	return &CreationMatch{
		TargetUserID:    ev.TargetUserID,
		RelatedEntityID: ev.RelatedEntityID,
		Severity:        ev.Severity,
		EscalationLevel: level,
	}, nil
}

func matchBlockerPersisted(ev Event) (*CreationMatch, error) {
	if ev.Type != EventBlockerPersisted {
		return nil, nil
	}
	if ev.Severity != SeverityHigh {
		return nil, nil
	}
	meta, ok := ev.Metadata.(BlockerMetadata)
	if !ok {
		return nil, fmt.Errorf("%s: want BlockerMetadata: %w", RuleBlockerPersisted, ErrMalformedMetadata)
	}
	if meta.BlockerDays < 2 {
		return nil, nil
	}
	level := 1
	switch {
	case meta.BlockerDays >= 6:
		level = 3
	case meta.BlockerDays >= 4:
		level = 2
	}
	return &CreationMatch{
		TargetUserID:    ev.TargetUserID,
		RelatedEntityID: ev.RelatedEntityID,
		Severity:        ev.Severity,
		EscalationLevel: level,
	}, nil
}

// resolveOnActionDone builds the shared resolution predicate for rules whose
// triggers are cleared when the committed action for the entity is done.
func resolveOnActionDone(ruleID string) func(Event) (*ResolutionMatch, error) {
	return func(ev Event) (*ResolutionMatch, error) {
		if ev.Type != EventActionInteraction {
			return nil, nil
		}
		meta, ok := ev.Metadata.(ActionMetadata)
		if !ok {
			return nil, fmt.Errorf("%s: want ActionMetadata: %w", ruleID, ErrMalformedMetadata)
		}
		if meta.ActionState != ActionStateDone {
			return nil, nil
		}
		if ev.RelatedEntityID == "" {
			return nil, nil
		}
		return &ResolutionMatch{
			RelatedEntityID: ev.RelatedEntityID,
			RuleIDs:         []string{ruleID},
		}, nil
	}
}

func matchSnoozeExpired(ev Event) (*CreationMatch, error) {
	if ev.Type != EventSnoozeExpired {
		return nil, nil
	}
	meta, ok := ev.Metadata.(SnoozeMetadata)
	if !ok {
		return nil, fmt.Errorf("%s: want SnoozeMetadata: %w", RuleSnoozeRetrigger, ErrMalformedMetadata)
	}
	if !meta.Retrigger {
		return nil, nil
	}
	level := meta.PreviousEscalationLevel
	if level < 1 {
		level = 1
	}
	return &CreationMatch{
		TargetUserID:    ev.TargetUserID,
		RelatedEntityID: ev.RelatedEntityID,
		Severity:        ev.Severity,
		EscalationLevel: level,
	}, nil
}
