// Package notifier turns committed repository mutations into change events.
// Notification is strictly best-effort: by the time any of these run the
// mutation is already persisted, so a fan-out failure is logged and swallowed,
// never surfaced to the caller.
package notifier

import (
	"time"

	"go.uber.org/zap"

	"pharmacy-service/internal/hub"
	"pharmacy-service/internal/model"
	"pharmacy-service/internal/reconciler"
)

// Notifier publishes typed change events to the broadcast hub.
type Notifier struct {
	hub *hub.Hub
	log *zap.Logger
}

// New creates a notifier publishing to the given hub.
func New(h *hub.Hub, log *zap.Logger) *Notifier {
	return &Notifier{hub: h, log: log.Named("notifier")}
}

// EntityCreated announces a newly persisted record with its snapshot.
func (n *Notifier) EntityCreated(tenantID uint, entity string, entityID uint, snapshot any) {
	n.publish(tenantID, hub.Event{
		Kind:     hub.EventCreated,
		Entity:   entity,
		EntityID: entityID,
		Payload:  snapshot,
	})
}

// EntityUpdated announces an applied update carrying the field diff.
func (n *Notifier) EntityUpdated(tenantID uint, entity string, entityID uint, diff reconciler.Diff) {
	n.publish(tenantID, hub.Event{
		Kind:     hub.EventUpdated,
		Entity:   entity,
		EntityID: entityID,
		Payload:  diff,
	})
}

// EntityDeleted announces a soft-deleted record.
func (n *Notifier) EntityDeleted(tenantID uint, entity string, entityID uint) {
	n.publish(tenantID, hub.Event{
		Kind:     hub.EventDeleted,
		Entity:   entity,
		EntityID: entityID,
	})
}

// StockAlert announces medicines at or below their reorder level.
func (n *Notifier) StockAlert(tenantID uint, medicines []model.Medicine) {
	if len(medicines) == 0 {
		return
	}
	n.publish(tenantID, hub.Event{
		Kind:    hub.EventStockAlert,
		Entity:  "medicine",
		Payload: medicines,
	})
}

// ExpiryAlert announces medicines nearing their expiry date.
func (n *Notifier) ExpiryAlert(tenantID uint, medicines []model.Medicine) {
	if len(medicines) == 0 {
		return
	}
	n.publish(tenantID, hub.Event{
		Kind:    hub.EventExpiryAlert,
		Entity:  "medicine",
		Payload: medicines,
	})
}

func (n *Notifier) publish(tenantID uint, ev hub.Event) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("event publish failed",
				zap.Uint("tenant_id", tenantID),
				zap.String("kind", ev.Kind),
				zap.Any("panic", r))
		}
	}()

	if n.hub == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	n.hub.Publish(tenantID, ev)
}
