package handler

import (
	"context"

	"github.com/iliyamo/table-service/internal/live"
	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/service"
)

// The handlers depend on these views of the service layer; the concrete
// implementations live in internal/service and internal/live.

type SessionService interface {
	Table(ctx context.Context, token string) (*model.Table, error)
	Resolve(ctx context.Context, token string) (*service.TableSession, error)
}

type OrderService interface {
	Create(ctx context.Context, tableID uint64, lines []service.OrderLine, notes *string) (*model.Order, error)
	Confirm(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error)
	StartPreparing(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error)
	MarkReady(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error)
	Deliver(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error)
	Cancel(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error)
	Get(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error)
	List(ctx context.Context, actor model.Actor, statuses []model.OrderStatus) ([]model.Order, error)
}

type CallService interface {
	Create(ctx context.Context, tableID uint64, callType model.CallType) (*model.Call, bool, error)
	Resolve(ctx context.Context, actor model.Actor, id uint64) (*model.Call, error)
	ListOpen(ctx context.Context, actor model.Actor) ([]model.Call, error)
}

type RatingService interface {
	CanRate(ctx context.Context, tableID, callID uint64) (bool, error)
	Submit(ctx context.Context, tableID, callID uint64, stars int, feedback *string) (*service.RatingResult, error)
}

// TableAdmin is implemented by *repository.TableRepo.
type TableAdmin interface {
	Create(ctx context.Context, restaurantID uint64, label string) (*model.Table, error)
	Deactivate(ctx context.Context, restaurantID, id uint64) error
}

// Subscriber is implemented by *live.Publisher.
type Subscriber interface {
	Subscribe(ctx context.Context, f live.Filter) <-chan live.Snapshot
}
