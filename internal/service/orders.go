package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/ratelimit"
	"github.com/iliyamo/table-service/internal/repository"
)

// transitionRoles lists the staff roles allowed to move an order into
// each state.
var transitionRoles = map[model.OrderStatus][]string{
	model.OrderConfirmed: {model.RoleWaiter, model.RoleManager, model.RoleAdmin},
	model.OrderPreparing: {model.RoleKitchen, model.RoleAdmin},
	model.OrderReady:     {model.RoleKitchen, model.RoleAdmin},
	model.OrderDelivered: {model.RoleWaiter, model.RoleAdmin},
	model.OrderCancelled: {model.RoleWaiter, model.RoleAdmin},
}

var staffRoles = []string{model.RoleAdmin, model.RoleManager, model.RoleWaiter, model.RoleKitchen}

// MaxLineQuantity caps the quantity of a single order line.
const MaxLineQuantity = 999

// OrderLine is one requested line of a new order.
type OrderLine struct {
	MenuItemID uint64  `json:"menu_item_id"`
	Quantity   int     `json:"quantity"`
	Note       *string `json:"note,omitempty"`
}

// Orders is the order state machine.
type Orders struct {
	tables TableStore
	menu   MenuStore
	orders OrderStore
	admit  ratelimit.Admitter
	window time.Duration

	notify Notifier
	log    *log.Logger
	now    func() time.Time
}

// NewOrders wires the order state machine.  window is the per-table
// admission window for order creation.
func NewOrders(tables TableStore, menu MenuStore, orders OrderStore, admit ratelimit.Admitter, window time.Duration, opts Options) *Orders {
	if tables == nil || menu == nil || orders == nil || admit == nil {
		panic("nil dependency passed to NewOrders")
	}
	opts = opts.withDefaults("orders")
	return &Orders{
		tables: tables, menu: menu, orders: orders, admit: admit, window: window,
		notify: opts.Notifier, log: opts.Logger, now: opts.Now,
	}
}

// Create places a PENDING order for tableID.  Unit prices are copied from
// the menu at this moment and the total is fixed here.
func (s *Orders) Create(ctx context.Context, tableID uint64, lines []OrderLine, notes *string) (*model.Order, error) {
	table, err := s.tables.GetByID(ctx, tableID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("table")
		}
		return nil, fmt.Errorf("load table: %w", err)
	}
	if !table.IsActive {
		return nil, invalidState("this table is not accepting orders")
	}
	if len(lines) == 0 {
		return nil, validation("an order needs at least one item")
	}

	ids := make([]uint64, 0, len(lines))
	seen := make(map[uint64]bool, len(lines))
	var badQty, bigQty []uint64
	for _, l := range lines {
		switch {
		case l.Quantity < 1:
			badQty = append(badQty, l.MenuItemID)
		case l.Quantity > MaxLineQuantity:
			bigQty = append(bigQty, l.MenuItemID)
		}
		if !seen[l.MenuItemID] {
			seen[l.MenuItemID] = true
			ids = append(ids, l.MenuItemID)
		}
	}
	if len(badQty) > 0 {
		return nil, validation("quantity must be at least 1", badQty...)
	}
	if len(bigQty) > 0 {
		return nil, validation("quantity out of range", bigQty...)
	}

	found, err := s.menu.FindByIDs(ctx, table.RestaurantID, ids)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}
	byID := make(map[uint64]model.MenuItem, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}
	var missing, inactive []uint64
	for _, id := range ids {
		m, ok := byID[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case !m.IsActive:
			inactive = append(inactive, id)
		}
	}
	if len(missing) > 0 {
		return nil, &Error{Kind: KindNotFound, Message: "some items are not on the menu", Rejected: missing}
	}
	if len(inactive) > 0 {
		return nil, validation("some items are currently unavailable", inactive...)
	}

	o := &model.Order{
		RestaurantID: table.RestaurantID,
		TableID:      table.ID,
		TableLabel:   table.Label,
		Status:       model.OrderPending,
		Notes:        trimmed(notes),
		Items:        make([]model.OrderItem, 0, len(lines)),
	}
	for _, l := range lines {
		m := byID[l.MenuItemID]
		it := model.OrderItem{
			MenuItemID:     m.ID,
			Name:           m.Name,
			Quantity:       l.Quantity,
			UnitPriceCents: m.PriceCents,
			Note:           trimmed(l.Note),
		}
		line := it.LineTotalCents()
		if it.UnitPriceCents < 0 || line/int64(it.Quantity) != it.UnitPriceCents || line > math.MaxInt64-o.TotalCents {
			return nil, validation("order total out of range", m.ID)
		}
		o.Items = append(o.Items, it)
		o.TotalCents += line
	}

	d, err := s.admit.Admit(ctx, ratelimit.OrderKey(table.ID), s.window)
	if err != nil {
		return nil, fmt.Errorf("admission: %w", err)
	}
	if !d.Allowed {
		s.log.Infoj(log.JSON{"action": "order.create", "table_id": table.ID, "rate_limited": d.RetryAfter})
		return nil, rateLimited(d.RetryAfter)
	}

	o.CreatedAt = s.now()
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.log.Infoj(log.JSON{"action": "order.create", "restaurant_id": o.RestaurantID, "table_id": o.TableID,
		"order_id": o.ID, "total_cents": o.TotalCents})
	s.notify.Notify(ctx, model.Event{Kind: model.EventOrderCreated, RestaurantID: o.RestaurantID, TableID: o.TableID,
		OrderID: o.ID, Status: string(o.Status), At: o.CreatedAt})
	return o, nil
}

// Confirm moves a PENDING order to CONFIRMED.
func (s *Orders) Confirm(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error) {
	return s.transition(ctx, actor, id, model.OrderConfirmed)
}

// StartPreparing moves a CONFIRMED order to PREPARING.  Kitchen only.
func (s *Orders) StartPreparing(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error) {
	return s.transition(ctx, actor, id, model.OrderPreparing)
}

// MarkReady moves a PREPARING order to READY.
func (s *Orders) MarkReady(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error) {
	return s.transition(ctx, actor, id, model.OrderReady)
}

// Deliver moves a READY order to DELIVERED.
func (s *Orders) Deliver(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error) {
	return s.transition(ctx, actor, id, model.OrderDelivered)
}

// Cancel terminates any order that is not already DELIVERED or CANCELLED.
func (s *Orders) Cancel(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error) {
	return s.transition(ctx, actor, id, model.OrderCancelled)
}

// transition reads the order, checks the edge, then applies a single
// compare-and-swap from the observed status.  Losing a race to another
// actor surfaces as InvalidState; nothing is retried.
func (s *Orders) transition(ctx context.Context, actor model.Actor, id uint64, to model.OrderStatus) (*model.Order, error) {
	if !actor.HasAnyRole(transitionRoles[to]...) {
		return nil, forbidden()
	}
	o, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(o.Status, to) {
		return nil, invalidState(fmt.Sprintf("order is %s and cannot become %s", strings.ToLower(string(o.Status)), strings.ToLower(string(to))))
	}

	at := notBefore(s.now(), latestStamp(o))
	err = s.orders.Transition(ctx, model.OrderTransition{
		OrderID: o.ID, RestaurantID: actor.RestaurantID, From: o.Status, To: to, ActorID: actor.ID, At: at,
	})
	if errors.Is(err, repository.ErrStaleState) {
		s.log.Infoj(log.JSON{"action": "order.transition", "order_id": o.ID, "to": to, "actor_id": actor.ID, "lost_race": true})
		return nil, invalidState("order was updated by someone else; refresh and try again")
	}
	if err != nil {
		return nil, fmt.Errorf("transition order: %w", err)
	}

	updated, err := s.orders.Get(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	s.log.Infoj(log.JSON{"action": "order.transition", "restaurant_id": o.RestaurantID, "order_id": o.ID,
		"from": o.Status, "to": to, "actor_id": actor.ID})
	s.notify.Notify(ctx, model.Event{Kind: model.EventOrderTransition, RestaurantID: o.RestaurantID, TableID: o.TableID,
		OrderID: o.ID, Status: string(to), ActorID: actor.ID, At: at})
	return updated, nil
}

// Get returns one order of the actor's restaurant.
func (s *Orders) Get(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error) {
	if !actor.HasAnyRole(staffRoles...) {
		return nil, forbidden()
	}
	return s.load(ctx, actor, id)
}

// List returns the actor's restaurant orders in any of statuses.
func (s *Orders) List(ctx context.Context, actor model.Actor, statuses []model.OrderStatus) ([]model.Order, error) {
	if !actor.HasAnyRole(staffRoles...) {
		return nil, forbidden()
	}
	for _, st := range statuses {
		if !st.Valid() {
			return nil, validation("unknown order status " + string(st))
		}
	}
	if len(statuses) == 0 {
		statuses = model.ActiveOrderStatuses
	}
	out, err := s.orders.ListByStatus(ctx, actor.RestaurantID, statuses)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

// load fetches an order and hides orders of other restaurants.
func (s *Orders) load(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("order")
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if o.RestaurantID != actor.RestaurantID {
		return nil, notFound("order")
	}
	return o, nil
}

// latestStamp returns the most recent lifecycle timestamp of o.
func latestStamp(o *model.Order) time.Time {
	latest := o.CreatedAt
	for _, t := range []*time.Time{o.ConfirmedAt, o.PreparingAt, o.ReadyAt, o.DeliveredAt, o.CancelledAt} {
		if t != nil && t.After(latest) {
			latest = *t
		}
	}
	return latest
}

// notBefore keeps lifecycle timestamps monotonic across instances whose
// clocks disagree slightly.
func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
