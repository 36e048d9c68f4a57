package model

import "time"

// Event kinds emitted after a successful lifecycle write.
const (
	EventOrderCreated    = "order.created"
	EventOrderTransition = "order.transition"
	EventCallCreated     = "call.created"
	EventCallResolved    = "call.resolved"
	EventRatingSubmitted = "rating.submitted"
)

// Event describes a committed change to an order, call or rating.  It is
// consumed by live view nudging and by the activity queue.
type Event struct {
	Kind         string    `json:"kind"`
	RestaurantID uint64    `json:"restaurant_id"`
	TableID      uint64    `json:"table_id"`
	OrderID      uint64    `json:"order_id,omitempty"`
	CallID       uint64    `json:"call_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	ActorID      uint64    `json:"actor_id,omitempty"`
	At           time.Time `json:"at"`
}
