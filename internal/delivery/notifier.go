// Package delivery dispatches pending coordination triggers to users.
// It is a collaborator of the coordination engine, not part of it: the
// engine decides that a notification condition exists, delivery decides
// how it reaches people.
package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cadencehq/cadence/internal/coordination"
	"github.com/cadencehq/cadence/internal/repository"
)

// Notifier sends one trigger's notification to its target user.
type Notifier interface {
	// Notify delivers the trigger. Returning an error leaves the trigger
	// PENDING for the next pass. Implementations should respect context
	// cancellation.
	Notify(ctx context.Context, trigger coordination.Trigger) error

	// Name returns the notifier type for logging
	Name() string
}

// LogNotifier writes notifications to the structured log. It stands in for
// email/UI delivery in development and tests.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(_ context.Context, trigger coordination.Trigger) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("coordination notification",
		"trigger_id", trigger.ID,
		"project_id", trigger.ProjectID,
		"rule_id", trigger.RuleID,
		"target_user_id", trigger.TargetUserID,
		"related_entity_id", trigger.RelatedEntityID,
		"severity", trigger.Severity,
		"escalation_level", trigger.EscalationLevel)
	return nil
}

func (n *LogNotifier) Name() string { return "log" }

// Dispatcher pages PENDING triggers, hands them to the notifier, and marks
// delivered ones SENT.
type Dispatcher struct {
	store     repository.TriggerDeliveryStore
	notifier  Notifier
	batchSize int
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher with the given page size.
func NewDispatcher(store repository.TriggerDeliveryStore, notifier Notifier, batchSize int, logger *slog.Logger) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:     store,
		notifier:  notifier,
		batchSize: batchSize,
		logger:    logger,
	}
}

// DispatchPending delivers one page of pending triggers, scoped to a
// project when projectID is non-empty. Failed deliveries stay PENDING and
// are retried on the next pass. Returns how many triggers were sent.
func (d *Dispatcher) DispatchPending(ctx context.Context, projectID string) (int, error) {
	triggers, err := d.store.ListPendingTriggers(ctx, projectID, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing pending triggers: %w", err)
	}

	sent := 0
	for _, trigger := range triggers {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := d.notifier.Notify(ctx, trigger); err != nil {
			d.logger.Warn("notification failed, trigger left pending",
				"trigger_id", trigger.ID,
				"notifier", d.notifier.Name(),
				"error", err)
			continue
		}
		if err := d.store.MarkTriggerSent(ctx, trigger.ID); err != nil {
			// A concurrent resolution may have closed the trigger
			// between the page read and the update.
			d.logger.Warn("failed to mark trigger sent",
				"trigger_id", trigger.ID,
				"error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
