package live

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/repository"
)

// OrderReader is the read side of the order store used by snapshots.
type OrderReader interface {
	ListByStatus(ctx context.Context, restaurantID uint64, statuses []model.OrderStatus) ([]model.Order, error)
	CountByStatusSince(ctx context.Context, restaurantID uint64, since time.Time) ([]repository.StatusCount, error)
}

// CallReader is the read side of the call store used by snapshots.
type CallReader interface {
	ListOpen(ctx context.Context, restaurantID uint64) ([]model.Call, error)
	CountOpen(ctx context.Context, restaurantID uint64) (int, error)
}

// Snapshot is the current state matching a Filter.  Seq increases by one
// per snapshot on a subscription.
type Snapshot struct {
	Seq          uint64        `json:"seq"`
	Filter       string        `json:"filter"`
	RestaurantID uint64        `json:"restaurant_id"`
	At           time.Time     `json:"at"`
	Orders       []model.Order `json:"orders,omitempty"`
	Calls        []model.Call  `json:"calls,omitempty"`
	Summary      *Summary      `json:"summary,omitempty"`
}

// Summary counts today's orders per status.  RevenueCents sums DELIVERED
// orders only.
type Summary struct {
	Since        time.Time                 `json:"since"`
	Orders       map[model.OrderStatus]int `json:"orders"`
	RevenueCents int64                     `json:"revenue_cents"`
	OpenCalls    int                       `json:"open_calls"`
}

// Publisher runs subscriptions.
type Publisher struct {
	orders OrderReader
	calls  CallReader
	hub    *Hub
	log    *log.Logger
	now    func() time.Time
}

// NewPublisher returns a Publisher reading from orders and calls.  hub may
// be nil, in which case subscriptions only poll.
func NewPublisher(orders OrderReader, calls CallReader, hub *Hub, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.New("live")
	}
	return &Publisher{orders: orders, calls: calls, hub: hub, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Subscribe emits a snapshot right away and then one per f.Interval, or
// sooner after a nudge, until ctx is done.  The channel is closed when the
// loop exits.  A failed query is logged and skipped; the next tick tries
// again.
func (p *Publisher) Subscribe(ctx context.Context, f Filter) <-chan Snapshot {
	out := make(chan Snapshot)
	nudge, unregister := (<-chan struct{})(nil), func() {}
	if p.hub != nil {
		nudge, unregister = p.hub.register(f.RestaurantID)
	}

	go func() {
		defer close(out)
		defer unregister()
		ticker := time.NewTicker(f.interval())
		defer ticker.Stop()

		var seq uint64
		emit := func() bool {
			snap, err := p.query(ctx, f)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				p.log.Warnj(log.JSON{"action": "live.query", "filter": f.Name, "restaurant_id": f.RestaurantID, "error": err.Error()})
				return true
			}
			seq++
			snap.Seq = seq
			select {
			case out <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-nudge:
			}
			if !emit() {
				return
			}
		}
	}()
	return out
}

func (p *Publisher) query(ctx context.Context, f Filter) (Snapshot, error) {
	now := p.now()
	snap := Snapshot{Filter: f.Name, RestaurantID: f.RestaurantID, At: now}
	if len(f.OrderStatuses) > 0 {
		orders, err := p.orders.ListByStatus(ctx, f.RestaurantID, f.OrderStatuses)
		if err != nil {
			return snap, fmt.Errorf("list orders: %w", err)
		}
		snap.Orders = orders
	}
	if f.IncludeCalls {
		calls, err := p.calls.ListOpen(ctx, f.RestaurantID)
		if err != nil {
			return snap, fmt.Errorf("list calls: %w", err)
		}
		snap.Calls = calls
	}
	if f.Summary {
		sum, err := p.summary(ctx, f.RestaurantID, now)
		if err != nil {
			return snap, err
		}
		snap.Summary = sum
	}
	return snap, nil
}

func (p *Publisher) summary(ctx context.Context, restaurantID uint64, now time.Time) (*Summary, error) {
	since := now.Truncate(24 * time.Hour)
	counts, err := p.orders.CountByStatusSince(ctx, restaurantID, since)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	open, err := p.calls.CountOpen(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("count calls: %w", err)
	}
	sum := &Summary{Since: since, Orders: make(map[model.OrderStatus]int, len(counts)), OpenCalls: open}
	for _, c := range counts {
		sum.Orders[c.Status] = c.Count
		if c.Status == model.OrderDelivered {
			sum.RevenueCents += c.TotalCents
		}
	}
	return sum, nil
}
