package model

// Staff roles carried in the "role" claim of a staff access token.
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleWaiter  = "WAITER"
	RoleKitchen = "KITCHEN"
)

// Actor is the already-authenticated staff member performing an operation.
// Identity is resolved upstream (JWT middleware); the lifecycle engine only
// authorizes against Role and scopes every read and write to RestaurantID.
type Actor struct {
	ID           uint64 `json:"id"`
	Role         string `json:"role"`
	RestaurantID uint64 `json:"restaurant_id"`
}

// HasAnyRole reports whether the actor holds one of roles.
func (a Actor) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// ValidRole reports whether role is one of the known staff roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleWaiter, RoleKitchen:
		return true
	}
	return false
}
