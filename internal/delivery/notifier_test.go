package delivery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cadencehq/cadence/internal/coordination"
	"github.com/cadencehq/cadence/internal/delivery"
	"github.com/cadencehq/cadence/internal/repository"
	"github.com/cadencehq/cadence/internal/repository/mocks"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	sent []string
	fail map[string]bool
}

func (n *recordingNotifier) Notify(_ context.Context, trigger coordination.Trigger) error {
	if n.fail[trigger.ID] {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, trigger.ID)
	return nil
}

func (n *recordingNotifier) Name() string { return "recording" }

func TestDispatcher_DispatchPending(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TriggerDeliveryStore{}
	notifier := &recordingNotifier{}

	triggers := []coordination.Trigger{
		{ID: "t1", Status: coordination.StatusPending},
		{ID: "t2", Status: coordination.StatusPending},
	}
	store.On("ListPendingTriggers", ctx, "proj-1", 50).Return(triggers, nil)
	store.On("MarkTriggerSent", ctx, "t1").Return(nil)
	store.On("MarkTriggerSent", ctx, "t2").Return(nil)

	d := delivery.NewDispatcher(store, notifier, 50, nil)
	sent, err := d.DispatchPending(ctx, "proj-1")
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.Equal(t, []string{"t1", "t2"}, notifier.sent)
	store.AssertExpectations(t)
}

func TestDispatcher_FailedNotificationStaysPending(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TriggerDeliveryStore{}
	notifier := &recordingNotifier{fail: map[string]bool{"t1": true}}

	triggers := []coordination.Trigger{
		{ID: "t1", Status: coordination.StatusPending},
		{ID: "t2", Status: coordination.StatusPending},
	}
	store.On("ListPendingTriggers", ctx, "", 100).Return(triggers, nil)
	store.On("MarkTriggerSent", ctx, "t2").Return(nil)

	d := delivery.NewDispatcher(store, notifier, 0, nil)
	sent, err := d.DispatchPending(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "MarkTriggerSent", ctx, "t1")
}

func TestDispatcher_ConcurrentResolutionSkipped(t *testing.T) {
	ctx := context.Background()
	store := &mocks.TriggerDeliveryStore{}
	notifier := &recordingNotifier{}

	store.On("ListPendingTriggers", ctx, "", 100).Return([]coordination.Trigger{
		{ID: "t1", Status: coordination.StatusPending},
	}, nil)
	// Resolved between the page read and the update.
	store.On("MarkTriggerSent", ctx, "t1").Return(repository.ErrNotFound)

	d := delivery.NewDispatcher(store, notifier, 0, nil)
	sent, err := d.DispatchPending(ctx, "")
	require.NoError(t, err)
	require.Zero(t, sent)
}
