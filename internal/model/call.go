package model

import "time"

// CallType distinguishes waiter calls from bill requests.
type CallType string

const (
	CallWaiter  CallType = "CALL_WAITER"
	RequestBill CallType = "REQUEST_BILL"
)

// Valid reports whether t is a known call type.
func (t CallType) Valid() bool { return t == CallWaiter || t == RequestBill }

// CallStatus is OPEN until a staff member resolves the call.
type CallStatus string

const (
	CallOpen     CallStatus = "OPEN"
	CallResolved CallStatus = "RESOLVED"
)

// Call is a service request raised from a table.  At most one OPEN call of
// a given type exists per table.
type Call struct {
	ID           uint64     `json:"id"`
	RestaurantID uint64     `json:"restaurant_id"`
	TableID      uint64     `json:"table_id"`
	TableLabel   string     `json:"table_label,omitempty"`
	Type         CallType   `json:"type"`
	Status       CallStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy   *uint64    `json:"resolved_by,omitempty"`
}
