package model

import "time"

// Table is a physical table in a restaurant.  The Token is printed in the
// table's QR code and is the public client's only credential; it is unique
// and never changes once issued.  Tables are deactivated rather than deleted
// so that historical orders and calls keep their reference.
//
// Fields:
//  ID           – tables.id
//  RestaurantID – owning restaurant.
//  Label        – display label, e.g. "T12" or "Terrace 3".
//  Token        – opaque access token (unique, immutable).
//  IsActive     – inactive tables reject every public operation.
type Table struct {
	ID           uint64    `json:"id"`
	RestaurantID uint64    `json:"restaurant_id"`
	Label        string    `json:"label"`
	Token        string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// RestaurantSettings holds the per-restaurant knobs consumed by the rating gate.
type RestaurantSettings struct {
	RestaurantID         uint64
	MinStarsRedirect     int
	GoogleReviewsEnabled bool
	GoogleReviewsURL     string
}
