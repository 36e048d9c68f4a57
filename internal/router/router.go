package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers routes that need neither a table token nor a
// staff token.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}
