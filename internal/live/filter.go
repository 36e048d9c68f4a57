// Package live streams periodic snapshots of a restaurant's orders and
// calls to staff screens.  Each subscription is its own polling loop; the
// Hub only shortens the wait after a write.
package live

import (
	"time"

	"github.com/iliyamo/table-service/internal/model"
)

const (
	DefaultLiveInterval    = 2 * time.Second
	DefaultMetricsInterval = 30 * time.Second
)

// Filter selects what a subscription sees.
type Filter struct {
	Name          string
	RestaurantID  uint64
	OrderStatuses []model.OrderStatus
	IncludeCalls  bool
	Summary       bool
	Interval      time.Duration
}

// KitchenFilter shows orders the kitchen has to act on.
func KitchenFilter(restaurantID uint64, every time.Duration) Filter {
	return Filter{
		Name:          "kitchen",
		RestaurantID:  restaurantID,
		OrderStatuses: []model.OrderStatus{model.OrderConfirmed, model.OrderPreparing, model.OrderReady},
		Interval:      every,
	}
}

// WaiterFilter shows every active order plus the open calls.
func WaiterFilter(restaurantID uint64, every time.Duration) Filter {
	return Filter{
		Name:          "waiter",
		RestaurantID:  restaurantID,
		OrderStatuses: model.ActiveOrderStatuses,
		IncludeCalls:  true,
		Interval:      every,
	}
}

// MetricsFilter emits only the summary counters.
func MetricsFilter(restaurantID uint64, every time.Duration) Filter {
	return Filter{Name: "metrics", RestaurantID: restaurantID, Summary: true, Interval: every}
}

// Intervals holds the polling periods for the preset filters.
type Intervals struct {
	Live    time.Duration
	Metrics time.Duration
}

// Filter returns the named preset for restaurantID.
func (iv Intervals) Filter(name string, restaurantID uint64) (Filter, bool) {
	live, metrics := iv.Live, iv.Metrics
	if live <= 0 {
		live = DefaultLiveInterval
	}
	if metrics <= 0 {
		metrics = DefaultMetricsInterval
	}
	switch name {
	case "kitchen":
		return KitchenFilter(restaurantID, live), true
	case "waiter":
		return WaiterFilter(restaurantID, live), true
	case "metrics":
		return MetricsFilter(restaurantID, metrics), true
	}
	return Filter{}, false
}

func (f Filter) interval() time.Duration {
	if f.Interval > 0 {
		return f.Interval
	}
	if f.Summary {
		return DefaultMetricsInterval
	}
	return DefaultLiveInterval
}
