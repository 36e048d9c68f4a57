package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-service/internal/live"
	"github.com/iliyamo/table-service/internal/middleware"
)

// StreamHandler exposes live views as Server-Sent Events.
type StreamHandler struct {
	Live      Subscriber
	Intervals live.Intervals
}

// NewStreamHandler constructs a StreamHandler.
func NewStreamHandler(sub Subscriber, iv live.Intervals) *StreamHandler {
	if sub == nil {
		panic("nil subscriber passed to NewStreamHandler")
	}
	return &StreamHandler{Live: sub, Intervals: iv}
}

// Stream handles GET /v1/staff/stream/:view where view is kitchen, waiter
// or metrics.  It writes one "snapshot" event per snapshot until the
// client disconnects or a write fails; either way the subscription is
// cancelled before Stream returns.
func (h *StreamHandler) Stream(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	f, ok := h.Intervals.Filter(c.Param("view"), actor.RestaurantID)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "unknown view"})
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	for snap := range h.Live.Subscribe(ctx, f) {
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Seq, data); err != nil {
			return nil
		}
		w.Flush()
	}
	return nil
}
