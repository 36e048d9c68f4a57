package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/table-service/internal/service"
)

// kindStatus maps lifecycle failure kinds to HTTP status codes.
var kindStatus = map[service.Kind]int{
	service.KindNotFound:      http.StatusNotFound,
	service.KindInvalidState:  http.StatusConflict,
	service.KindValidation:    http.StatusUnprocessableEntity,
	service.KindRateLimited:   http.StatusTooManyRequests,
	service.KindAlreadyExists: http.StatusConflict,
	service.KindForbidden:     http.StatusForbidden,
}

// writeError renders err.  Typed lifecycle failures carry their own
// user-facing message; anything else is logged and reported as an opaque
// 500.
func writeError(c echo.Context, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		status, ok := kindStatus[se.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		body := echo.Map{"error": se.Kind.String(), "message": se.Message}
		if len(se.Rejected) > 0 {
			body["rejected_items"] = se.Rejected
		}
		if se.Kind == service.KindRateLimited {
			c.Response().Header().Set("Retry-After", strconv.Itoa(se.RetryAfter))
			body["retry_after"] = se.RetryAfter
		}
		return c.JSON(status, body)
	}
	c.Logger().Errorj(log.JSON{"action": "http", "method": c.Request().Method, "path": c.Path(), "error": err.Error()})
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
