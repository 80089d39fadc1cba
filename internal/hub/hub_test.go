package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receiveOne(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishReachesAttachedSubscribers(t *testing.T) {
	h := New(4, zap.NewNop())
	a := h.Subscribe(1)
	b := h.Subscribe(1)

	h.Publish(1, Event{Kind: EventCreated, Entity: "medicine", EntityID: 7})

	for _, sub := range []*Subscription{a, b} {
		ev := receiveOne(t, sub)
		require.Equal(t, EventCreated, ev.Kind)
		require.Equal(t, uint(1), ev.TenantID)
		require.Equal(t, uint(7), ev.EntityID)
		require.False(t, ev.Timestamp.IsZero())
	}
}

func TestPublishIsTenantScoped(t *testing.T) {
	h := New(4, zap.NewNop())
	subA := h.Subscribe(1)
	subB := h.Subscribe(2)

	h.Publish(2, Event{Kind: EventUpdated})

	ev := receiveOne(t, subB)
	require.Equal(t, uint(2), ev.TenantID)

	select {
	case ev := <-subA.Events():
		t.Fatalf("tenant 1 subscriber received tenant 2 event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	h := New(4, zap.NewNop())

	done := make(chan struct{})
	go func() {
		h.Publish(1, Event{Kind: EventDeleted})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with zero subscribers")
	}
}

func TestSlowSubscriberLosesEventsWithoutStallingOthers(t *testing.T) {
	h := New(2, zap.NewNop())
	slow := h.Subscribe(1) // never drained
	fast := h.Subscribe(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Publish(1, Event{Kind: EventUpdated, EntityID: uint(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher stalled on a full subscriber buffer")
	}

	// Each undrained subscriber kept its buffer's worth; the overflow was
	// dropped for that subscriber only.
	require.Len(t, slow.Events(), 2)
	ev := receiveOne(t, fast)
	require.Equal(t, uint(0), ev.EntityID)
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	h := New(4, zap.NewNop())
	h.Publish(1, Event{Kind: EventCreated})

	late := h.Subscribe(1)
	select {
	case ev := <-late.Events():
		t.Fatalf("late subscriber received replayed event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := New(4, zap.NewNop())
	sub := h.Subscribe(1)
	require.Equal(t, 1, h.SubscriberCount(1))

	h.Unsubscribe(sub)
	require.Equal(t, 0, h.SubscriberCount(1))

	// Second detach is a no-op, and the channel is closed exactly once.
	h.Unsubscribe(sub)
	h.Unsubscribe(nil)

	_, open := <-sub.Events()
	require.False(t, open)
}

func TestConcurrentSubscribePublishUnsubscribe(t *testing.T) {
	h := New(8, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(tenantID uint) {
			defer wg.Done()
			sub := h.Subscribe(tenantID)
			for j := 0; j < 50; j++ {
				h.Publish(tenantID, Event{Kind: EventUpdated})
			}
			h.Unsubscribe(sub)
		}(uint(i % 4))
	}
	wg.Wait()

	for tenantID := uint(0); tenantID < 4; tenantID++ {
		require.Equal(t, 0, h.SubscriberCount(tenantID))
	}
}
