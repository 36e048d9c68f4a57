package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/ratelimit"
	"github.com/iliyamo/table-service/internal/repository"
)

var resolveRoles = []string{model.RoleWaiter, model.RoleAdmin, model.RoleManager}

// Calls is the call state machine (OPEN -> RESOLVED).
type Calls struct {
	tables TableStore
	calls  CallStore
	admit  ratelimit.Admitter
	window time.Duration

	notify Notifier
	log    *log.Logger
	now    func() time.Time
}

// NewCalls wires the call state machine.  window is the admission window
// per (table, call type).
func NewCalls(tables TableStore, calls CallStore, admit ratelimit.Admitter, window time.Duration, opts Options) *Calls {
	if tables == nil || calls == nil || admit == nil {
		panic("nil dependency passed to NewCalls")
	}
	opts = opts.withDefaults("calls")
	return &Calls{
		tables: tables, calls: calls, admit: admit, window: window,
		notify: opts.Notifier, log: opts.Logger, now: opts.Now,
	}
}

// Create raises a call of callType at tableID.  When the table already has
// an OPEN call of that type, that call is returned and created is false.
func (s *Calls) Create(ctx context.Context, tableID uint64, callType model.CallType) (call *model.Call, created bool, err error) {
	if !callType.Valid() {
		return nil, false, validation("unknown call type")
	}
	table, err := s.tables.GetByID(ctx, tableID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, notFound("table")
		}
		return nil, false, fmt.Errorf("load table: %w", err)
	}
	if !table.IsActive {
		return nil, false, invalidState("this table is not accepting requests")
	}

	// An existing OPEN call answers repeated taps without touching the
	// admission window.
	if open, err := s.findOpen(ctx, table.ID, callType); err != nil || open != nil {
		return open, false, err
	}

	d, err := s.admit.Admit(ctx, ratelimit.CallKey(table.ID, string(callType)), s.window)
	if err != nil {
		return nil, false, fmt.Errorf("admission: %w", err)
	}
	if !d.Allowed {
		s.log.Infoj(log.JSON{"action": "call.create", "table_id": table.ID, "type": callType, "rate_limited": d.RetryAfter})
		return nil, false, rateLimited(d.RetryAfter)
	}

	c := &model.Call{
		RestaurantID: table.RestaurantID,
		TableID:      table.ID,
		TableLabel:   table.Label,
		Type:         callType,
		Status:       model.CallOpen,
		CreatedAt:    s.now(),
	}
	err = s.calls.Create(ctx, c)
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent request inserted first; its call is the answer.
		open, ferr := s.findOpen(ctx, table.ID, callType)
		if ferr != nil {
			return nil, false, ferr
		}
		if open != nil {
			return open, false, nil
		}
		return nil, false, invalidState("call changed while it was being created; try again")
	}
	if err != nil {
		return nil, false, fmt.Errorf("create call: %w", err)
	}
	s.log.Infoj(log.JSON{"action": "call.create", "restaurant_id": c.RestaurantID, "table_id": c.TableID,
		"call_id": c.ID, "type": c.Type})
	s.notify.Notify(ctx, model.Event{Kind: model.EventCallCreated, RestaurantID: c.RestaurantID, TableID: c.TableID,
		CallID: c.ID, Status: string(c.Status), At: c.CreatedAt})
	return c, true, nil
}

func (s *Calls) findOpen(ctx context.Context, tableID uint64, callType model.CallType) (*model.Call, error) {
	c, err := s.calls.FindOpen(ctx, tableID, callType)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open call: %w", err)
	}
	return c, nil
}

// Resolve closes an OPEN call.  Resolving an already resolved call is an
// InvalidState failure, which staff UIs show as "already handled".
func (s *Calls) Resolve(ctx context.Context, actor model.Actor, id uint64) (*model.Call, error) {
	if !actor.HasAnyRole(resolveRoles...) {
		return nil, forbidden()
	}
	c, err := s.calls.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("call")
	}
	if err != nil {
		return nil, fmt.Errorf("load call: %w", err)
	}
	if c.RestaurantID != actor.RestaurantID {
		return nil, notFound("call")
	}
	if c.Status != model.CallOpen {
		return nil, invalidState("this call has already been handled")
	}

	at := notBefore(s.now(), c.CreatedAt)
	err = s.calls.Resolve(ctx, actor.RestaurantID, c.ID, actor.ID, at)
	if errors.Is(err, repository.ErrStaleState) {
		return nil, invalidState("this call has already been handled")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve call: %w", err)
	}

	c.Status = model.CallResolved
	c.ResolvedAt = &at
	by := actor.ID
	c.ResolvedBy = &by
	s.log.Infoj(log.JSON{"action": "call.resolve", "restaurant_id": c.RestaurantID, "call_id": c.ID, "actor_id": actor.ID})
	s.notify.Notify(ctx, model.Event{Kind: model.EventCallResolved, RestaurantID: c.RestaurantID, TableID: c.TableID,
		CallID: c.ID, Status: string(c.Status), ActorID: actor.ID, At: at})
	return c, nil
}

// ListOpen returns the OPEN calls of the actor's restaurant.
func (s *Calls) ListOpen(ctx context.Context, actor model.Actor) ([]model.Call, error) {
	if !actor.HasAnyRole(staffRoles...) {
		return nil, forbidden()
	}
	out, err := s.calls.ListOpen(ctx, actor.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	return out, nil
}
