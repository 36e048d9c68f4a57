package model

// MenuItem is the subset of a menu entry the lifecycle engine needs to
// validate and price an order.  Menu CRUD lives outside this service.
type MenuItem struct {
	ID           uint64 // menu_items.id
	RestaurantID uint64 // menu_items.restaurant_id
	Name         string // menu_items.name
	PriceCents   int64  // menu_items.price_cents (current price)
	IsActive     bool   // menu_items.is_active
}
