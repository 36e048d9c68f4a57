package model

import "time"

// OrderStatus is a state of the order lifecycle.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderPreparing OrderStatus = "PREPARING"
	OrderReady     OrderStatus = "READY"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// orderEdges lists the allowed successor states of every non-terminal state.
var orderEdges = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderDelivered, OrderCancelled},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransition reports whether from -> to is an edge of the order lifecycle.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Predecessors returns every state from which to can be reached in one step,
// in lifecycle order.
func Predecessors(to OrderStatus) []OrderStatus {
	var out []OrderStatus
	for _, from := range []OrderStatus{OrderPending, OrderConfirmed, OrderPreparing, OrderReady} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// ActiveOrderStatuses are the non-terminal states.
var ActiveOrderStatuses = []OrderStatus{OrderPending, OrderConfirmed, OrderPreparing, OrderReady}

// Order is a customer purchase request tied to one table.  TotalCents is
// computed once at creation from the frozen unit prices and never
// recomputed.  Each lifecycle timestamp is written exactly once, by the
// transition that reaches the corresponding state.
type Order struct {
	ID           uint64      `json:"id"`
	RestaurantID uint64      `json:"restaurant_id"`
	TableID      uint64      `json:"table_id"`
	TableLabel   string      `json:"table_label,omitempty"`
	Status       OrderStatus `json:"status"`
	Notes        *string     `json:"notes,omitempty"`
	TotalCents   int64       `json:"total_cents"`
	Items        []OrderItem `json:"items"`
	CreatedAt    time.Time   `json:"created_at"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ConfirmedBy *uint64    `json:"confirmed_by,omitempty"`
	PreparingAt *time.Time `json:"preparing_at,omitempty"`
	PreparedBy  *uint64    `json:"prepared_by,omitempty"`
	ReadyAt     *time.Time `json:"ready_at,omitempty"`
	ReadyBy     *uint64    `json:"ready_by,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	DeliveredBy *uint64    `json:"delivered_by,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy *uint64    `json:"cancelled_by,omitempty"`
}

// OrderItem is one line of an order.  UnitPriceCents is a copy of the menu
// price at order time.
type OrderItem struct {
	ID             uint64  `json:"id"`
	OrderID        uint64  `json:"order_id"`
	MenuItemID     uint64  `json:"menu_item_id"`
	Name           string  `json:"name"`
	Quantity       int     `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	Note           *string `json:"note,omitempty"`
}

// LineTotalCents returns quantity times the frozen unit price.
func (i OrderItem) LineTotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// OrderTransition describes one compare-and-swap status change.  The store
// applies it only if the row is still in the From state.
type OrderTransition struct {
	OrderID      uint64
	RestaurantID uint64
	From         OrderStatus
	To           OrderStatus
	ActorID      uint64
	At           time.Time
}
