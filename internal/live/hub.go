package live

import (
	"context"
	"sync"

	"github.com/iliyamo/table-service/internal/model"
)

// Hub wakes the subscriptions of a restaurant after a write so they
// re-query before their next tick.  Nudges coalesce: a subscriber that is
// busy querying sees at most one pending wake-up.
type Hub struct {
	mu   sync.Mutex
	subs map[uint64]map[chan struct{}]struct{}
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]map[chan struct{}]struct{})}
}

// Notify nudges the event's restaurant.  It never blocks.
func (h *Hub) Notify(_ context.Context, ev model.Event) {
	h.Nudge(ev.RestaurantID)
}

// Nudge wakes every subscription of restaurantID.
func (h *Hub) Nudge(restaurantID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[restaurantID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns how many subscriptions restaurantID has.
func (h *Hub) Subscribers(restaurantID uint64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[restaurantID])
}

func (h *Hub) register(restaurantID uint64) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	set, ok := h.subs[restaurantID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		h.subs[restaurantID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[restaurantID], ch)
		if len(h.subs[restaurantID]) == 0 {
			delete(h.subs, restaurantID)
		}
	}
}
