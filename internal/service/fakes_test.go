package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/ratelimit"
	"github.com/iliyamo/table-service/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories.  It keeps
// their contracts: conditional status updates, one OPEN call per
// (table, type) and one rating per call.
type memStore struct {
	mu       sync.Mutex
	tables   map[uint64]*model.Table
	settings map[uint64]model.RestaurantSettings
	menu     map[uint64]model.MenuItem
	orders   map[uint64]*model.Order
	calls    map[uint64]*model.Call
	ratings  map[uint64]*model.Rating
	log      []model.OrderTransition
	nextID   uint64

	// beforeTransition runs inside Transition before the status check,
	// letting a test interleave a competing writer.
	beforeTransition func()
}

func newMemStore() *memStore {
	return &memStore{
		tables:   map[uint64]*model.Table{},
		settings: map[uint64]model.RestaurantSettings{},
		menu:     map[uint64]model.MenuItem{},
		orders:   map[uint64]*model.Order{},
		calls:    map[uint64]*model.Call{},
		ratings:  map[uint64]*model.Rating{},
	}
}

func (m *memStore) id() uint64 { m.nextID++; return m.nextID }

func (m *memStore) addTable(restaurantID uint64, label, token string, active bool) *model.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &model.Table{ID: m.id(), RestaurantID: restaurantID, Label: label, Token: token, IsActive: active}
	m.tables[t.ID] = t
	return t
}

func (m *memStore) addMenuItem(restaurantID uint64, name string, price int64, active bool) model.MenuItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := model.MenuItem{ID: m.id(), RestaurantID: restaurantID, Name: name, PriceCents: price, IsActive: active}
	m.menu[it.ID] = it
	return it
}

func (m *memStore) setPrice(id uint64, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.menu[id]
	it.PriceCents = price
	m.menu[id] = it
}

// TableStore

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) GetByToken(_ context.Context, token string) (*model.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tables {
		if t.Token == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) Settings(_ context.Context, restaurantID uint64) (model.RestaurantSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[restaurantID]
	if !ok {
		return model.RestaurantSettings{}, repository.ErrNotFound
	}
	return s, nil
}

// MenuStore

func (m *memStore) FindByIDs(_ context.Context, restaurantID uint64, ids []uint64) ([]model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MenuItem
	for _, id := range ids {
		if it, ok := m.menu[id]; ok && it.RestaurantID == restaurantID {
			out = append(out, it)
		}
	}
	return out, nil
}

// OrderStore

func (m *memStore) orderStore() *memOrders { return (*memOrders)(m) }

type memOrders memStore

func (o *memOrders) Create(_ context.Context, ord *model.Order) error {
	m := (*memStore)(o)
	m.mu.Lock()
	defer m.mu.Unlock()
	ord.ID = m.id()
	for i := range ord.Items {
		ord.Items[i].ID = m.id()
		ord.Items[i].OrderID = ord.ID
	}
	cp := cloneOrder(ord)
	m.orders[ord.ID] = cp
	return nil
}

func (o *memOrders) Get(_ context.Context, id uint64) (*model.Order, error) {
	m := (*memStore)(o)
	m.mu.Lock()
	defer m.mu.Unlock()
	ord, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(ord), nil
}

func (o *memOrders) Transition(_ context.Context, t model.OrderTransition) error {
	m := (*memStore)(o)
	if m.beforeTransition != nil {
		hook := m.beforeTransition
		m.beforeTransition = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ord, ok := m.orders[t.OrderID]
	if !ok || ord.RestaurantID != t.RestaurantID || ord.Status != t.From {
		return repository.ErrStaleState
	}
	at, by := t.At, t.ActorID
	switch t.To {
	case model.OrderConfirmed:
		ord.ConfirmedAt, ord.ConfirmedBy = &at, &by
	case model.OrderPreparing:
		ord.PreparingAt, ord.PreparedBy = &at, &by
	case model.OrderReady:
		ord.ReadyAt, ord.ReadyBy = &at, &by
	case model.OrderDelivered:
		ord.DeliveredAt, ord.DeliveredBy = &at, &by
	case model.OrderCancelled:
		ord.CancelledAt, ord.CancelledBy = &at, &by
	}
	ord.Status = t.To
	m.log = append(m.log, t)
	return nil
}

func (o *memOrders) ListByStatus(_ context.Context, restaurantID uint64, statuses []model.OrderStatus) ([]model.Order, error) {
	return o.filter(func(ord *model.Order) bool { return ord.RestaurantID == restaurantID }, statuses), nil
}

func (o *memOrders) ListByTable(_ context.Context, tableID uint64, statuses []model.OrderStatus) ([]model.Order, error) {
	return o.filter(func(ord *model.Order) bool { return ord.TableID == tableID }, statuses), nil
}

func (o *memOrders) filter(keep func(*model.Order) bool, statuses []model.OrderStatus) []model.Order {
	m := (*memStore)(o)
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[model.OrderStatus]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	out := []model.Order{}
	for _, ord := range m.orders {
		if keep(ord) && want[ord.Status] {
			out = append(out, *cloneOrder(ord))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	return &cp
}

// CallStore

func (m *memStore) callStore() *memCalls { return (*memCalls)(m) }

type memCalls memStore

func (c *memCalls) Get(_ context.Context, id uint64) (*model.Call, error) {
	m := (*memStore)(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	call, ok := m.calls[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *call
	return &cp, nil
}

func (c *memCalls) FindOpen(_ context.Context, tableID uint64, t model.CallType) (*model.Call, error) {
	m := (*memStore)(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.calls {
		if call.TableID == tableID && call.Type == t && call.Status == model.CallOpen {
			cp := *call
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (c *memCalls) Create(_ context.Context, call *model.Call) error {
	m := (*memStore)(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.calls {
		if existing.TableID == call.TableID && existing.Type == call.Type && existing.Status == model.CallOpen {
			return repository.ErrDuplicate
		}
	}
	call.ID = m.id()
	call.Status = model.CallOpen
	cp := *call
	m.calls[call.ID] = &cp
	return nil
}

func (c *memCalls) Resolve(_ context.Context, restaurantID, id, actorID uint64, at time.Time) error {
	m := (*memStore)(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	call, ok := m.calls[id]
	if !ok || call.RestaurantID != restaurantID || call.Status != model.CallOpen {
		return repository.ErrStaleState
	}
	call.Status = model.CallResolved
	call.ResolvedAt = &at
	call.ResolvedBy = &actorID
	return nil
}

func (c *memCalls) ListOpenByTable(_ context.Context, tableID uint64) ([]model.Call, error) {
	return c.filter(func(call *model.Call) bool { return call.TableID == tableID && call.Status == model.CallOpen }), nil
}

func (c *memCalls) ListOpen(_ context.Context, restaurantID uint64) ([]model.Call, error) {
	return c.filter(func(call *model.Call) bool { return call.RestaurantID == restaurantID && call.Status == model.CallOpen }), nil
}

func (c *memCalls) LatestResolvedUnrated(_ context.Context, tableID uint64, since time.Time) (*model.Call, error) {
	m := (*memStore)(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.Call
	for _, call := range m.calls {
		if call.TableID != tableID || call.Status != model.CallResolved || call.ResolvedAt.Before(since) {
			continue
		}
		if _, rated := m.ratings[call.ID]; rated {
			continue
		}
		if best == nil || call.ResolvedAt.After(*best.ResolvedAt) {
			best = call
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (c *memCalls) filter(keep func(*model.Call) bool) []model.Call {
	m := (*memStore)(c)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Call{}
	for _, call := range m.calls {
		if keep(call) {
			out = append(out, *call)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RatingStore

func (m *memStore) ratingStore() *memRatings { return (*memRatings)(m) }

type memRatings memStore

func (r *memRatings) Create(_ context.Context, rt *model.Rating) error {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ratings[rt.CallID]; ok {
		return repository.ErrDuplicate
	}
	rt.ID = m.id()
	cp := *rt
	m.ratings[rt.CallID] = &cp
	return nil
}

func (r *memRatings) ExistsForCall(_ context.Context, callID uint64) (bool, error) {
	m := (*memStore)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ratings[callID]
	return ok, nil
}

// allowAll admits every action.
type allowAll struct{}

func (allowAll) Admit(context.Context, string, time.Duration) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: true}, nil
}

// recorder collects notified events.
type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) Notify(_ context.Context, ev model.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

// stepClock returns t0 and then advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func testOptions(rec *recorder, now func() time.Time) Options {
	return Options{Notifier: rec, Logger: quietLogger(), Now: now}
}
