package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pharmacy-service/internal/hub"
	"pharmacy-service/internal/middleware"
	"pharmacy-service/pkg/logger"
)

// StreamHandler serves the live change-event stream over server-sent events.
type StreamHandler struct {
	hub *hub.Hub
}

// NewStreamHandler creates the stream handler.
func NewStreamHandler(h *hub.Hub) *StreamHandler {
	return &StreamHandler{hub: h}
}

// Stream attaches the client to its tenant's event stream and forwards
// events until the connection closes. The subscription lives exactly as long
// as the connection: client disconnect detaches it promptly.
func (h *StreamHandler) Stream(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	sub := h.hub.Subscribe(t.ID)
	defer h.hub.Unsubscribe(sub)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	log.Info("Event stream opened")

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			log.Info("Event stream closed by client")
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Error("Failed to encode event", zap.String("kind", ev.Kind), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
				log.Warn("Event stream write failed", zap.Error(err))
				return nil
			}
			resp.Flush()
		}
	}
}
