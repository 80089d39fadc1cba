// Package hub fans change events out to live subscribers. Fan-out is scoped
// per tenant and in-process only: delivery is at-most-once and best-effort,
// the repository has already persisted the change before any event is raised.
package hub

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"pharmacy-service/prometheus"
)

// Event kinds pushed to subscribers.
const (
	EventCreated     = "created"
	EventUpdated     = "updated"
	EventDeleted     = "deleted"
	EventStockAlert  = "stock_alert"
	EventExpiryAlert = "expiry_alert"
)

// Event is one change notification. Payload carries an entity snapshot or a
// field diff depending on the kind.
type Event struct {
	Kind      string    `json:"kind"`
	TenantID  uint      `json:"tenant_id"`
	Entity    string    `json:"entity,omitempty"`
	EntityID  uint      `json:"entity_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscription is one live observer of a tenant's event stream. It stays
// attached until Unsubscribe; the events channel is closed exactly once.
type Subscription struct {
	tenantID  uint
	events    chan Event
	createdAt time.Time
	closeOnce sync.Once
}

// Events returns the subscriber's delivery channel. It is closed on
// unsubscribe, so ranging over it terminates cleanly.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// TenantID returns the tenant this subscription observes.
func (s *Subscription) TenantID() uint {
	return s.tenantID
}

// Hub maintains the per-tenant subscriber sets.
type Hub struct {
	mu      sync.RWMutex
	tenants map[uint]map[*Subscription]struct{}
	buffer  int
	log     *zap.Logger
}

// New creates a hub whose subscribers each get a delivery channel of the
// given capacity. A subscriber that falls that far behind loses events
// rather than blocking the publisher.
func New(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		tenants: make(map[uint]map[*Subscription]struct{}),
		buffer:  buffer,
		log:     log.Named("hub"),
	}
}

// Subscribe attaches a new observer to the tenant's event stream.
func (h *Hub) Subscribe(tenantID uint) *Subscription {
	sub := &Subscription{
		tenantID:  tenantID,
		events:    make(chan Event, h.buffer),
		createdAt: time.Now(),
	}

	h.mu.Lock()
	set, ok := h.tenants[tenantID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.tenants[tenantID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	prometheus.SubscriberAttached(tenantID, 1)
	h.log.Debug("subscriber attached", zap.Uint("tenant_id", tenantID))
	return sub
}

// Unsubscribe detaches the observer and closes its channel. Idempotent:
// detaching twice is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	set, ok := h.tenants[sub.tenantID]
	removed := false
	if ok {
		if _, attached := set[sub]; attached {
			delete(set, sub)
			removed = true
		}
		if len(set) == 0 {
			delete(h.tenants, sub.tenantID)
		}
	}
	h.mu.Unlock()

	if !removed {
		return
	}
	sub.closeOnce.Do(func() { close(sub.events) })
	prometheus.SubscriberAttached(sub.tenantID, -1)
	h.log.Debug("subscriber detached", zap.Uint("tenant_id", sub.tenantID))
}

// Publish delivers the event to every subscriber attached to the tenant at
// this moment. Subscribers attached later do not receive it; with zero
// subscribers the event is dropped silently. A full subscriber buffer drops
// the event for that subscriber only, never stalling the publisher or the
// other subscribers.
func (h *Hub) Publish(tenantID uint, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.TenantID = tenantID

	prometheus.EventsPublishedCounter.WithLabelValues(ev.Kind).Inc()

	// Holding the read lock during delivery is safe: sends never block, and
	// Unsubscribe needs the write lock, so no channel closes mid-send.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.tenants[tenantID] {
		select {
		case sub.events <- ev:
		default:
			prometheus.EventsDroppedCounter.Inc()
			h.log.Warn("event dropped for slow subscriber",
				zap.Uint("tenant_id", tenantID),
				zap.String("kind", ev.Kind))
		}
	}
}

// SubscriberCount reports the number of observers attached to a tenant.
func (h *Hub) SubscriberCount(tenantID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tenants[tenantID])
}
