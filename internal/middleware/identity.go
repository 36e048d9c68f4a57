package middleware

// identity.go stores the authenticated staff actor in the Echo context and
// derives the identity part of throttle keys.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-service/internal/model"
)

const actorKey = "actor"

// SetActor stores a in the request context.
func SetActor(c echo.Context, a model.Actor) {
	c.Set(actorKey, a)
}

// ActorFrom returns the actor stored by JWTAuth.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(actorKey).(model.Actor)
	return a, ok
}

// actorID returns the actor id as a string, or "guest" on public routes.
func actorID(c echo.Context) string {
	if a, ok := ActorFrom(c); ok {
		return strconv.FormatUint(a.ID, 10)
	}
	return "guest"
}
