// Package service implements the order and call lifecycle engine: the two
// state machines, the rating gate and the table session resolver.  It
// holds no locks; concurrent writers are arbitrated by the conditional
// updates of the stores it is given.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/table-service/internal/model"
)

// TableStore reads tables and restaurant settings.
type TableStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Table, error)
	GetByToken(ctx context.Context, token string) (*model.Table, error)
	Settings(ctx context.Context, restaurantID uint64) (model.RestaurantSettings, error)
}

// MenuStore looks up menu items of a restaurant by id.
type MenuStore interface {
	FindByIDs(ctx context.Context, restaurantID uint64, ids []uint64) ([]model.MenuItem, error)
}

// OrderStore persists orders.  Transition must be a compare-and-swap on
// the status column and return repository.ErrStaleState when it matched
// no row.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	Get(ctx context.Context, id uint64) (*model.Order, error)
	Transition(ctx context.Context, t model.OrderTransition) error
	ListByStatus(ctx context.Context, restaurantID uint64, statuses []model.OrderStatus) ([]model.Order, error)
	ListByTable(ctx context.Context, tableID uint64, statuses []model.OrderStatus) ([]model.Order, error)
}

// CallStore persists calls.  Create returns repository.ErrDuplicate when an
// OPEN call of the same type already exists at the table; Resolve returns
// repository.ErrStaleState when the call was not OPEN.
type CallStore interface {
	Get(ctx context.Context, id uint64) (*model.Call, error)
	FindOpen(ctx context.Context, tableID uint64, callType model.CallType) (*model.Call, error)
	Create(ctx context.Context, c *model.Call) error
	Resolve(ctx context.Context, restaurantID, id, actorID uint64, at time.Time) error
	ListOpenByTable(ctx context.Context, tableID uint64) ([]model.Call, error)
	ListOpen(ctx context.Context, restaurantID uint64) ([]model.Call, error)
	LatestResolvedUnrated(ctx context.Context, tableID uint64, since time.Time) (*model.Call, error)
}

// RatingStore persists ratings.  Create returns repository.ErrDuplicate for
// a second rating of the same call.
type RatingStore interface {
	Create(ctx context.Context, r *model.Rating) error
	ExistsForCall(ctx context.Context, callID uint64) (bool, error)
}

// Notifier receives an event after every committed lifecycle write.
// Implementations must not block and must not fail the write.
type Notifier interface {
	Notify(ctx context.Context, ev model.Event)
}

// Notifiers fans an event out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ev model.Event) {
	for _, n := range ns {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.Event) {}

// utcNow is the default clock.  Timestamps are truncated to milliseconds,
// the precision of the DATETIME(3) columns.
func utcNow() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
