package coordination

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies the kind of project activity an event records.
type EventType string

const (
	EventStandupMissed      EventType = "standup-missed"
	EventQuestionUnanswered EventType = "question-unanswered"
	EventQuestionAnswered   EventType = "question-answered"
	EventActionInteraction  EventType = "action-interaction"
	EventSnoozeExpired      EventType = "snooze-expired"
	EventBlockerPersisted   EventType = "blocker-persisted"
)

// Severity is carried from the originating condition onto triggers.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// TriggerStatus represents the lifecycle status of a trigger.
// RESOLVED is terminal; a trigger may stay PENDING indefinitely.
type TriggerStatus string

const (
	StatusPending  TriggerStatus = "PENDING"
	StatusSent     TriggerStatus = "SENT"
	StatusResolved TriggerStatus = "RESOLVED"
)

// ActionState values carried in action-interaction metadata.
const (
	ActionStateOverdue = "OVERDUE"
	ActionStateDone    = "DONE"
)

// QuestionStatusAnswered marks a question-answered event's payload.
const QuestionStatusAnswered = "ANSWERED"

// Metadata is the tagged payload of an event; the concrete type is
// determined by the event type.
type Metadata interface {
	metadata()
}

// StandupMetadata accompanies standup-missed events.
type StandupMetadata struct {
	ConsecutiveMissedDays int `json:"consecutiveMissedDays"`
}

// QuestionMetadata accompanies question-unanswered and question-answered
// events. UnansweredHours is the elapsed time since the question was asked.
type QuestionMetadata struct {
	QuestionStatus  string  `json:"questionStatus,omitempty"`
	UnansweredHours float64 `json:"unansweredHours,omitempty"`
}

// ActionMetadata accompanies action-interaction events.
type ActionMetadata struct {
	ActionState  string  `json:"actionState"`
	OverdueHours float64 `json:"overdueHours,omitempty"`
}

// BlockerMetadata accompanies blocker-persisted events.
type BlockerMetadata struct {
	BlockerDays int `json:"blockerDays"`
}

// SnoozeMetadata accompanies snooze-expired events.
type SnoozeMetadata struct {
	Retrigger               bool `json:"retrigger"`
	PreviousEscalationLevel int  `json:"previousEscalationLevel"`
}

func (StandupMetadata) metadata()  {}
func (QuestionMetadata) metadata() {}
func (ActionMetadata) metadata()   {}
func (BlockerMetadata) metadata()  {}
func (SnoozeMetadata) metadata()   {}

// Event is one observed fact about project activity.
type Event struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	Type            EventType  `json:"event_type"`
	TargetUserID    string     `json:"target_user_id"`
	RelatedEntityID string     `json:"related_entity_id,omitempty"`
	Severity        Severity   `json:"severity"`
	Metadata        Metadata   `json:"metadata,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`

	// Synthetic events are manufactured by the sweep from open trigger
	// ages; they are never persisted and never marked processed.
	Synthetic bool `json:"-"`
}

// Trigger is a persisted open or closed escalation condition.
type Trigger struct {
	ID              string        `json:"id"`
	ProjectID       string        `json:"project_id"`
	TargetUserID    string        `json:"target_user_id"`
	RelatedEntityID string        `json:"related_entity_id,omitempty"`
	Severity        Severity      `json:"severity"`
	RuleID          string        `json:"rule_id"`
	EscalationLevel int           `json:"escalation_level"`
	DedupKey        string        `json:"dedup_key"`
	Status          TriggerStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
}

// Live reports whether the trigger still represents an open condition.
func (t *Trigger) Live() bool {
	return t.Status != StatusResolved
}

// TriggerDraft carries every Trigger field the caller decides; the store
// assigns id and created_at and initializes status to PENDING.
type TriggerDraft struct {
	ProjectID       string
	TargetUserID    string
	RelatedEntityID string
	Severity        Severity
	RuleID          string
	EscalationLevel int
	DedupKey        string
}

// DecodeMetadata unmarshals a raw metadata payload into the variant for the
// given event type. An empty payload yields nil metadata.
func DecodeMetadata(eventType EventType, raw []byte) (Metadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var (
		meta Metadata
		err  error
	)
	switch eventType {
	case EventStandupMissed:
		var m StandupMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	case EventQuestionUnanswered, EventQuestionAnswered:
		var m QuestionMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	case EventActionInteraction:
		var m ActionMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	case EventBlockerPersisted:
		var m BlockerMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	case EventSnoozeExpired:
		var m SnoozeMetadata
		err = json.Unmarshal(raw, &m)
		meta = m
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", eventType, err)
	}
	return meta, nil
}

// EncodeMetadata marshals event metadata for persistence. Nil metadata
// encodes to nil.
func EncodeMetadata(meta Metadata) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return raw, nil
}
