package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharmacy-service/internal/hub"
	"pharmacy-service/internal/model"
	"pharmacy-service/internal/reconciler"
)

func receiveOne(t *testing.T, sub *hub.Subscription) hub.Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return hub.Event{}
	}
}

func TestEntityEventsReachSubscriber(t *testing.T) {
	h := hub.New(4, zap.NewNop())
	n := New(h, zap.NewNop())
	sub := h.Subscribe(1)

	n.EntityCreated(1, "medicine", 7, map[string]any{"name": "Paracetamol"})
	ev := receiveOne(t, sub)
	require.Equal(t, hub.EventCreated, ev.Kind)
	require.Equal(t, "medicine", ev.Entity)
	require.Equal(t, uint(7), ev.EntityID)
	require.False(t, ev.Timestamp.IsZero())

	diff := reconciler.Diff{"quantity": {Before: 100, After: 80}}
	n.EntityUpdated(1, "medicine", 7, diff)
	ev = receiveOne(t, sub)
	require.Equal(t, hub.EventUpdated, ev.Kind)
	require.Equal(t, diff, ev.Payload)

	n.EntityDeleted(1, "medicine", 7)
	ev = receiveOne(t, sub)
	require.Equal(t, hub.EventDeleted, ev.Kind)
}

func TestAlertsSkipEmptyLists(t *testing.T) {
	h := hub.New(4, zap.NewNop())
	n := New(h, zap.NewNop())
	sub := h.Subscribe(1)

	n.StockAlert(1, nil)
	n.ExpiryAlert(1, nil)

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event for empty alert: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAlertsCarryAffectedMedicines(t *testing.T) {
	h := hub.New(4, zap.NewNop())
	n := New(h, zap.NewNop())
	sub := h.Subscribe(1)

	low := []model.Medicine{{Name: "Paracetamol", Quantity: 2, ReorderLevel: 10}}
	n.StockAlert(1, low)

	ev := receiveOne(t, sub)
	require.Equal(t, hub.EventStockAlert, ev.Kind)
	require.Equal(t, low, ev.Payload)
}

func TestNotifierWithoutHubIsSilent(t *testing.T) {
	n := New(nil, zap.NewNop())

	// Must never panic or surface an error: the mutation already committed.
	n.EntityCreated(1, "medicine", 1, nil)
	n.EntityUpdated(1, "medicine", 1, reconciler.Diff{})
	n.EntityDeleted(1, "medicine", 1)
	n.StockAlert(1, []model.Medicine{{Name: "x"}})
	n.ExpiryAlert(1, []model.Medicine{{Name: "x"}})
}
