package coordination_test

import (
	"testing"

	"github.com/cadencehq/cadence/internal/coordination"
	"github.com/stretchr/testify/require"
)

func TestCatalog_OrderIsFixed(t *testing.T) {
	var ids []string
	for _, rule := range coordination.Catalog() {
		ids = append(ids, rule.ID)
	}
	require.Equal(t, []string{
		coordination.RuleMissingStandup,
		coordination.RuleUnansweredQuest,
		coordination.RuleActionOverdue,
		coordination.RuleBlockerPersisted,
		coordination.RuleSnoozeRetrigger,
	}, ids)
}

func ruleByID(t *testing.T, id string) coordination.Rule {
	t.Helper()
	for _, rule := range coordination.Catalog() {
		if rule.ID == id {
			return rule
		}
	}
	t.Fatalf("rule %s not in catalog", id)
	return coordination.Rule{}
}

func TestMissingStandupRule(t *testing.T) {
	rule := ruleByID(t, coordination.RuleMissingStandup)

	ev := coordination.Event{
		Type:         coordination.EventStandupMissed,
		TargetUserID: "user-1",
		Severity:     coordination.SeverityMedium,
		Metadata:     coordination.StandupMetadata{ConsecutiveMissedDays: 1},
	}
	match, err := rule.MatchCreation(ev)
	require.NoError(t, err)
	require.Nil(t, match, "a single missed day is not actionable")

	ev.Metadata = coordination.StandupMetadata{ConsecutiveMissedDays: 2}
	match, err = rule.MatchCreation(ev)
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, 1, match.EscalationLevel)
	require.Equal(t, "user-1", match.TargetUserID)

	ev.Metadata = coordination.StandupMetadata{ConsecutiveMissedDays: 3}
	match, err = rule.MatchCreation(ev)
	require.NoError(t, err)
	require.Equal(t, 2, match.EscalationLevel)

	ev.Metadata = coordination.StandupMetadata{ConsecutiveMissedDays: 5}
	match, err = rule.MatchCreation(ev)
	require.NoError(t, err)
	require.Equal(t, 3, match.EscalationLevel)

	// No resolution path from this engine.
	resolution, err := rule.MatchResolution(ev)
	require.NoError(t, err)
	require.Nil(t, resolution)
}

func TestQuestionUnansweredRule_Thresholds(t *testing.T) {
	rule := ruleByID(t, coordination.RuleUnansweredQuest)

	cases := []struct {
		hours float64
		level int
	}{
		{12, 0},
		{24, 1},
		{47, 1},
		{48, 2},
		{72, 3},
		{96, 3},
	}
	for _, tc := range cases {
		ev := coordination.Event{
			Type:            coordination.EventQuestionUnanswered,
			TargetUserID:    "user-2",
			RelatedEntityID: "question-1",
			Severity:        coordination.SeverityMedium,
			Metadata:        coordination.QuestionMetadata{UnansweredHours: tc.hours},
		}
		match, err := rule.MatchCreation(ev)
		require.NoError(t, err)
		if tc.level == 0 {
			require.Nil(t, match, "hours=%v", tc.hours)
			continue
		}
		require.NotNil(t, match, "hours=%v", tc.hours)
		require.Equal(t, tc.level, match.EscalationLevel, "hours=%v", tc.hours)
	}
}

func TestQuestionAnsweredResolution(t *testing.T) {
	rule := ruleByID(t, coordination.RuleUnansweredQuest)

	ev := coordination.Event{
		Type:            coordination.EventQuestionAnswered,
		RelatedEntityID: "question-1",
		Metadata:        coordination.QuestionMetadata{QuestionStatus: coordination.QuestionStatusAnswered},
	}
	match, err := rule.MatchResolution(ev)
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, "question-1", match.RelatedEntityID)
	require.Equal(t, []string{coordination.RuleUnansweredQuest}, match.RuleIDs)

	ev.Metadata = coordination.QuestionMetadata{QuestionStatus: "DRAFT"}
	match, err = rule.MatchResolution(ev)
	require.NoError(t, err)
	require.Nil(t, match)
}

func TestActionOverdueRule(t *testing.T) {
	rule := ruleByID(t, coordination.RuleActionOverdue)

	ev := coordination.Event{
		Type:            coordination.EventActionInteraction,
		TargetUserID:    "user-3",
		RelatedEntityID: "action-1",
		Severity:        coordination.SeverityLow,
		Metadata:        coordination.ActionMetadata{ActionState: coordination.ActionStateOverdue},
	}
	match, err := rule.MatchCreation(ev)
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, 1, match.EscalationLevel)

	ev.Metadata = coordination.ActionMetadata{ActionState: coordination.ActionStateOverdue, OverdueHours: 30}
	match, err = rule.MatchCreation(ev)
	require.NoError(t, err)
	require.Equal(t, 2, match.EscalationLevel)

	ev.Metadata = coordination.ActionMetadata{ActionState: coordination.ActionStateDone}
	match, err = rule.MatchCreation(ev)
	require.NoError(t, err)
	require.Nil(t, match)

	resolution, err := rule.MatchResolution(ev)
	require.NoError(t, err)
	require.NotNil(t, resolution)
	require.Equal(t, []string{coordination.RuleActionOverdue}, resolution.RuleIDs)
}

func TestBlockerPersistedRule(t *testing.T) {
	rule := ruleByID(t, coordination.RuleBlockerPersisted)

	ev := coordination.Event{
		Type:            coordination.EventBlockerPersisted,
		TargetUserID:    "user-1",
		RelatedEntityID: "issue-1",
		Severity:        coordination.SeverityHigh,
		Metadata:        coordination.BlockerMetadata{BlockerDays: 3},
	}
	match, err := rule.MatchCreation(ev)
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, 1, match.EscalationLevel)
	require.Equal(t, coordination.SeverityHigh, match.Severity)

	// Only HIGH severity blockers escalate through this rule.
	ev.Severity = coordination.SeverityMedium
	match, err = rule.MatchCreation(ev)
	require.NoError(t, err)
	require.Nil(t, match)

	ev.Severity = coordination.SeverityHigh
	ev.Metadata = coordination.BlockerMetadata{BlockerDays: 1}
	match, err = rule.MatchCreation(ev)
	require.NoError(t, err)
	require.Nil(t, match)

	ev.Metadata = coordination.BlockerMetadata{BlockerDays: 6}
	match, err = rule.MatchCreation(ev)
	require.NoError(t, err)
	require.Equal(t, 3, match.EscalationLevel)

	// Cleared when the committed action for the entity is done.
	done := coordination.Event{
		Type:            coordination.EventActionInteraction,
		RelatedEntityID: "issue-1",
		Metadata:        coordination.ActionMetadata{ActionState: coordination.ActionStateDone},
	}
	resolution, err := rule.MatchResolution(done)
	require.NoError(t, err)
	require.NotNil(t, resolution)
	require.Equal(t, []string{coordination.RuleBlockerPersisted}, resolution.RuleIDs)
}

func TestSnoozeRetriggerRule(t *testing.T) {
	rule := ruleByID(t, coordination.RuleSnoozeRetrigger)

	ev := coordination.Event{
		Type:            coordination.EventSnoozeExpired,
		TargetUserID:    "user-1",
		RelatedEntityID: "issue-9",
		Severity:        coordination.SeverityMedium,
		Metadata:        coordination.SnoozeMetadata{Retrigger: true, PreviousEscalationLevel: 2},
	}
	match, err := rule.MatchCreation(ev)
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, 2, match.EscalationLevel)

	ev.Metadata = coordination.SnoozeMetadata{Retrigger: true}
	match, err = rule.MatchCreation(ev)
	require.NoError(t, err)
	require.Equal(t, 1, match.EscalationLevel, "missing previous level floors to 1")

	ev.Metadata = coordination.SnoozeMetadata{Retrigger: false, PreviousEscalationLevel: 2}
	match, err = rule.MatchCreation(ev)
	require.NoError(t, err)
	require.Nil(t, match)
}

func TestResolution_RequiresEntity(t *testing.T) {
	// Without an entity the resolve call would have no entity filter and
	// clear every live trigger of the rule across the project.
	rule := ruleByID(t, coordination.RuleUnansweredQuest)
	match, err := rule.MatchResolution(coordination.Event{
		Type:     coordination.EventQuestionAnswered,
		Metadata: coordination.QuestionMetadata{QuestionStatus: coordination.QuestionStatusAnswered},
	})
	require.NoError(t, err)
	require.Nil(t, match)

	for _, id := range []string{coordination.RuleActionOverdue, coordination.RuleBlockerPersisted} {
		rule = ruleByID(t, id)
		match, err = rule.MatchResolution(coordination.Event{
			Type:     coordination.EventActionInteraction,
			Metadata: coordination.ActionMetadata{ActionState: coordination.ActionStateDone},
		})
		require.NoError(t, err)
		require.Nil(t, match, "rule %s", id)
	}
}

func TestRules_MalformedMetadata(t *testing.T) {
	// A matching event type with the wrong payload shape is malformed,
	// not a silent no-op.
	rule := ruleByID(t, coordination.RuleMissingStandup)
	_, err := rule.MatchCreation(coordination.Event{
		Type:     coordination.EventStandupMissed,
		Metadata: nil,
	})
	require.ErrorIs(t, err, coordination.ErrMalformedMetadata)

	rule = ruleByID(t, coordination.RuleUnansweredQuest)
	_, err = rule.MatchResolution(coordination.Event{
		Type:     coordination.EventQuestionAnswered,
		Metadata: coordination.BlockerMetadata{BlockerDays: 2},
	})
	require.ErrorIs(t, err, coordination.ErrMalformedMetadata)
}
