package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-service/internal/middleware"
	"github.com/iliyamo/table-service/internal/model"
)

// StaffHandler serves the kitchen and floor screens.  Routes run behind
// JWTAuth; capability checks happen in the state machines.
type StaffHandler struct {
	Orders OrderService
	Calls  CallService
}

// NewStaffHandler constructs a StaffHandler.
func NewStaffHandler(orders OrderService, calls CallService) *StaffHandler {
	if orders == nil || calls == nil {
		panic("nil service passed to NewStaffHandler")
	}
	return &StaffHandler{Orders: orders, Calls: calls}
}

type orderStep func(ctx context.Context, actor model.Actor, id uint64) (*model.Order, error)

func (h *StaffHandler) step(c echo.Context, fn orderStep) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid order id")
	}
	o, err := fn(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Confirm handles POST /v1/staff/orders/:id/confirm.
func (h *StaffHandler) Confirm(c echo.Context) error { return h.step(c, h.Orders.Confirm) }

// StartPreparing handles POST /v1/staff/orders/:id/start.
func (h *StaffHandler) StartPreparing(c echo.Context) error { return h.step(c, h.Orders.StartPreparing) }

// MarkReady handles POST /v1/staff/orders/:id/ready.
func (h *StaffHandler) MarkReady(c echo.Context) error { return h.step(c, h.Orders.MarkReady) }

// Deliver handles POST /v1/staff/orders/:id/deliver.
func (h *StaffHandler) Deliver(c echo.Context) error { return h.step(c, h.Orders.Deliver) }

// Cancel handles POST /v1/staff/orders/:id/cancel.
func (h *StaffHandler) Cancel(c echo.Context) error { return h.step(c, h.Orders.Cancel) }

// GetOrder handles GET /v1/staff/orders/:id.
func (h *StaffHandler) GetOrder(c echo.Context) error { return h.step(c, h.Orders.Get) }

// ListOrders handles GET /v1/staff/orders?status=CONFIRMED,PREPARING.
// Without a status filter it returns the active orders.
func (h *StaffHandler) ListOrders(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var statuses []model.OrderStatus
	for _, s := range strings.Split(c.QueryParam("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, model.OrderStatus(strings.ToUpper(s)))
		}
	}
	orders, err := h.Orders.List(c.Request().Context(), actor, statuses)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// ListCalls handles GET /v1/staff/calls.
func (h *StaffHandler) ListCalls(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	calls, err := h.Calls.ListOpen(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"calls": calls})
}

// ResolveCall handles POST /v1/staff/calls/:id/resolve.
func (h *StaffHandler) ResolveCall(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid call id")
	}
	call, err := h.Calls.Resolve(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, call)
}
