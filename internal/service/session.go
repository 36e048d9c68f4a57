package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/repository"
)

// DefaultRatingLookback is how far back a resolved, unrated call is still
// offered for rating.
const DefaultRatingLookback = 30 * time.Minute

// TableSession is what the public client sees after scanning a table's QR
// code.  PendingRating is the latest call resolved within the lookback
// window that still has no rating.
type TableSession struct {
	TableID       uint64        `json:"table_id"`
	RestaurantID  uint64        `json:"restaurant_id"`
	Label         string        `json:"label"`
	OpenCalls     []model.Call  `json:"open_calls"`
	ActiveOrders  []model.Order `json:"active_orders"`
	PendingRating *model.Call   `json:"pending_rating,omitempty"`
}

// Sessions resolves table tokens.  It never writes.
type Sessions struct {
	tables   TableStore
	calls    CallStore
	orders   OrderStore
	lookback time.Duration
	now      func() time.Time
}

// NewSessions wires the table session resolver.
func NewSessions(tables TableStore, calls CallStore, orders OrderStore, lookback time.Duration, opts Options) *Sessions {
	if tables == nil || calls == nil || orders == nil {
		panic("nil dependency passed to NewSessions")
	}
	if lookback <= 0 {
		lookback = DefaultRatingLookback
	}
	opts = opts.withDefaults("sessions")
	return &Sessions{tables: tables, calls: calls, orders: orders, lookback: lookback, now: opts.Now}
}

// Table maps token to its active table.
func (s *Sessions) Table(ctx context.Context, token string) (*model.Table, error) {
	if token == "" {
		return nil, notFound("table")
	}
	t, err := s.tables.GetByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("table")
	}
	if err != nil {
		return nil, fmt.Errorf("load table: %w", err)
	}
	if !t.IsActive {
		return nil, invalidState("this table is not active")
	}
	return t, nil
}

// Resolve returns the current session projection for token.
func (s *Sessions) Resolve(ctx context.Context, token string) (*TableSession, error) {
	t, err := s.Table(ctx, token)
	if err != nil {
		return nil, err
	}
	calls, err := s.calls.ListOpenByTable(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	orders, err := s.orders.ListByTable(ctx, t.ID, model.ActiveOrderStatuses)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	sess := &TableSession{
		TableID:      t.ID,
		RestaurantID: t.RestaurantID,
		Label:        t.Label,
		OpenCalls:    calls,
		ActiveOrders: orders,
	}
	pending, err := s.calls.LatestResolvedUnrated(ctx, t.ID, s.now().Add(-s.lookback))
	switch {
	case err == nil:
		sess.PendingRating = pending
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("pending rating: %w", err)
	}
	return sess, nil
}
