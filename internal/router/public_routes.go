package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-service/internal/handler"
)

// RegisterPublic registers the table client endpoints under /v1/t/:token.
// throttle guards the whole group against floods from one table or IP;
// the per-table order and call windows are enforced by the services.
func RegisterPublic(e *echo.Echo, h *handler.PublicHandler, throttle echo.MiddlewareFunc) {
	g := e.Group("/v1/t/:token", throttle)
	g.GET("", h.Session)
	g.POST("/orders", h.PlaceOrder)
	g.POST("/calls", h.CreateCall)
	g.GET("/calls/:id/rating", h.CanRate)
	g.POST("/calls/:id/rating", h.SubmitRating)
}
