package live

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/repository"
)

type fakeStore struct {
	mu      sync.Mutex
	orders  []model.Order
	calls   []model.Call
	counts  []repository.StatusCount
	fail    error
	queries int
	since   time.Time
}

func (s *fakeStore) ListByStatus(_ context.Context, restaurantID uint64, statuses []model.OrderStatus) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if s.fail != nil {
		return nil, s.fail
	}
	want := map[model.OrderStatus]bool{}
	for _, st := range statuses {
		want[st] = true
	}
	var out []model.Order
	for _, o := range s.orders {
		if o.RestaurantID == restaurantID && want[o.Status] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeStore) CountByStatusSince(_ context.Context, _ uint64, since time.Time) ([]repository.StatusCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.since = since
	return s.counts, nil
}

func (s *fakeStore) ListOpen(_ context.Context, restaurantID uint64) ([]model.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Call
	for _, c := range s.calls {
		if c.RestaurantID == restaurantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) CountOpen(_ context.Context, _ uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls), nil
}

func (s *fakeStore) setOrders(orders ...model.Order) {
	s.mu.Lock()
	s.orders = orders
	s.mu.Unlock()
}

func quiet() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func next(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "stream closed")
		return snap
	case <-time.After(within):
		t.Fatalf("no snapshot within %s", within)
	}
	return Snapshot{}
}

func TestSubscribeEmitsImmediatelyAndFilters(t *testing.T) {
	st := &fakeStore{
		orders: []model.Order{
			{ID: 1, RestaurantID: 7, Status: model.OrderPending},
			{ID: 2, RestaurantID: 7, Status: model.OrderConfirmed},
			{ID: 3, RestaurantID: 7, Status: model.OrderPreparing},
			{ID: 4, RestaurantID: 8, Status: model.OrderConfirmed},
			{ID: 5, RestaurantID: 7, Status: model.OrderDelivered},
		},
		calls: []model.Call{{ID: 9, RestaurantID: 7, Status: model.CallOpen}},
	}
	p := NewPublisher(st, st, nil, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap := next(t, p.Subscribe(ctx, KitchenFilter(7, time.Hour)), time.Second)
	assert.Equal(t, uint64(1), snap.Seq)
	assert.Equal(t, "kitchen", snap.Filter)
	ids := []uint64{}
	for _, o := range snap.Orders {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []uint64{2, 3}, ids)
	assert.Empty(t, snap.Calls)

	snap = next(t, p.Subscribe(ctx, WaiterFilter(7, time.Hour)), time.Second)
	assert.Len(t, snap.Orders, 3)
	require.Len(t, snap.Calls, 1)
	assert.Equal(t, uint64(9), snap.Calls[0].ID)
}

func TestSubscribeRepollsWithIncreasingSeq(t *testing.T) {
	st := &fakeStore{}
	p := NewPublisher(st, st, nil, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := p.Subscribe(ctx, KitchenFilter(1, 10*time.Millisecond))
	first := next(t, ch, time.Second)
	st.setOrders(model.Order{ID: 1, RestaurantID: 1, Status: model.OrderReady})
	var last Snapshot
	for deadline := time.Now().Add(2 * time.Second); time.Now().Before(deadline); {
		last = next(t, ch, time.Second)
		if len(last.Orders) == 1 {
			break
		}
	}
	require.Len(t, last.Orders, 1)
	assert.Greater(t, last.Seq, first.Seq)
	assert.False(t, last.At.Before(first.At))
}

func TestCancelClosesStreamAndUnregisters(t *testing.T) {
	st := &fakeStore{}
	hub := NewHub()
	p := NewPublisher(st, st, hub, quiet())
	ctx, cancel := context.WithCancel(context.Background())

	ch := p.Subscribe(ctx, WaiterFilter(3, 5*time.Millisecond))
	next(t, ch, time.Second)
	assert.Equal(t, 1, hub.Subscribers(3))

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	assert.Equal(t, 0, hub.Subscribers(3))
}

func TestNudgeTriggersEarlySnapshot(t *testing.T) {
	st := &fakeStore{}
	hub := NewHub()
	p := NewPublisher(st, st, hub, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := p.Subscribe(ctx, KitchenFilter(5, time.Hour))
	next(t, ch, time.Second)

	st.setOrders(model.Order{ID: 42, RestaurantID: 5, Status: model.OrderConfirmed})
	hub.Notify(ctx, model.Event{Kind: model.EventOrderTransition, RestaurantID: 5})
	snap := next(t, ch, time.Second)
	assert.Equal(t, uint64(2), snap.Seq)
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, uint64(42), snap.Orders[0].ID)

	// Nudges for another restaurant do not wake this subscription.
	hub.Nudge(6)
	select {
	case <-ch:
		t.Fatal("unexpected snapshot")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestFailedQueryIsSkipped(t *testing.T) {
	st := &fakeStore{fail: errors.New("db down")}
	p := NewPublisher(st, st, nil, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := p.Subscribe(ctx, KitchenFilter(1, 5*time.Millisecond))
	require.Eventually(t, func() bool {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.queries >= 3
	}, time.Second, time.Millisecond)

	st.mu.Lock()
	st.fail = nil
	st.mu.Unlock()
	snap := next(t, ch, time.Second)
	assert.Equal(t, uint64(1), snap.Seq)
}

func TestMetricsSnapshot(t *testing.T) {
	st := &fakeStore{
		counts: []repository.StatusCount{
			{Status: model.OrderDelivered, Count: 3, TotalCents: 4500},
			{Status: model.OrderCancelled, Count: 1, TotalCents: 900},
			{Status: model.OrderPending, Count: 2, TotalCents: 1000},
		},
		calls: []model.Call{{ID: 1, RestaurantID: 2}, {ID: 2, RestaurantID: 2}},
	}
	p := NewPublisher(st, st, nil, quiet())
	fixed := time.Date(2026, 5, 1, 15, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap := next(t, p.Subscribe(ctx, MetricsFilter(2, time.Hour)), time.Second)
	require.NotNil(t, snap.Summary)
	assert.Nil(t, snap.Orders)
	assert.Equal(t, 3, snap.Summary.Orders[model.OrderDelivered])
	assert.Equal(t, 2, snap.Summary.Orders[model.OrderPending])
	assert.Equal(t, int64(4500), snap.Summary.RevenueCents)
	assert.Equal(t, 2, snap.Summary.OpenCalls)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), snap.Summary.Since)
}

func TestIntervalsPresets(t *testing.T) {
	iv := Intervals{Live: time.Second}
	f, ok := iv.Filter("kitchen", 4)
	require.True(t, ok)
	assert.Equal(t, time.Second, f.Interval)
	f, ok = iv.Filter("metrics", 4)
	require.True(t, ok)
	assert.Equal(t, DefaultMetricsInterval, f.Interval)
	assert.True(t, f.Summary)
	_, ok = iv.Filter("bar", 4)
	assert.False(t, ok)
}

func TestHubNudgeCoalesces(t *testing.T) {
	hub := NewHub()
	ch, unregister := hub.register(1)
	defer unregister()
	for i := 0; i < 5; i++ {
		hub.Nudge(1)
	}
	assert.Len(t, ch, 1)
}

func TestRedisBridgeRelaysNudgesToOtherInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	local, remote := NewHub(), NewHub()
	sender := NewRedisBridge(rdb, "", local, quiet())
	receiver := NewRedisBridge(rdb, "", remote, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- receiver.Run(ctx) }()

	nudge, unregister := remote.register(11)
	defer unregister()
	// Publishing before the subscription is live is lost, so keep notifying
	// until one arrives.
	require.Eventually(t, func() bool {
		sender.Notify(ctx, model.Event{RestaurantID: 11})
		select {
		case <-nudge:
			return true
		case <-time.After(10 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop")
	}
}

func TestRedisBridgeNudgesLocallyWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	hub := NewHub()
	bridge := NewRedisBridge(rdb, "", hub, quiet())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, bridge.Run(ctx))

	nudge, unregister := hub.register(11)
	defer unregister()
	bridge.Notify(ctx, model.Event{RestaurantID: 11})
	select {
	case <-nudge:
	default:
		t.Fatal("local subscriber was not nudged")
	}
}
