package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-service/internal/handler"
	"github.com/iliyamo/table-service/internal/middleware"
	"github.com/iliyamo/table-service/internal/model"
)

// RegisterStaff registers the kitchen and floor endpoints under
// /v1/staff.  Any staff role may reach them; which role may perform which
// transition is decided by the order and call state machines.
func RegisterStaff(e *echo.Echo, h *handler.StaffHandler, s *handler.StreamHandler, jwtSecret string) {
	g := e.Group(
		"/v1/staff",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleWaiter, model.RoleKitchen),
	)
	g.GET("/orders", h.ListOrders)
	g.GET("/orders/:id", h.GetOrder)
	g.POST("/orders/:id/confirm", h.Confirm)
	g.POST("/orders/:id/start", h.StartPreparing)
	g.POST("/orders/:id/ready", h.MarkReady)
	g.POST("/orders/:id/deliver", h.Deliver)
	g.POST("/orders/:id/cancel", h.Cancel)

	g.GET("/calls", h.ListCalls)
	g.POST("/calls/:id/resolve", h.ResolveCall)

	g.GET("/stream/:view", s.Stream)
}

// RegisterAdmin registers table management under /v1/admin for ADMIN and
// MANAGER.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleManager),
	)
	g.POST("/tables", h.CreateTable)
	g.POST("/tables/:id/deactivate", h.DeactivateTable)
}
