package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/table-service/internal/middleware"
	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/repository"
)

// AdminHandler manages the restaurant's tables.  It runs behind
// RequireRole(ADMIN, MANAGER).
type AdminHandler struct {
	Tables TableAdmin
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(tables TableAdmin) *AdminHandler {
	if tables == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Tables: tables}
}

// CreateTable handles POST /v1/admin/tables.  The response is the only
// place the new table's token is shown; it is what the QR code encodes.
func (h *AdminHandler) CreateTable(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Label string `json:"label"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	label := strings.TrimSpace(body.Label)
	if label == "" || len(label) > 60 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation_error", "message": "label must be 1 to 60 characters"})
	}
	var (
		t   *model.Table
		err error
	)
	// A token collision is astronomically unlikely; a fresh token fixes it.
	for attempt := 0; attempt < 3; attempt++ {
		t, err = h.Tables.Create(c.Request().Context(), actor.RestaurantID, label)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return writeError(c, err)
	}
	c.Logger().Infoj(log.JSON{"action": "table.create", "restaurant_id": t.RestaurantID, "table_id": t.ID, "actor_id": actor.ID})
	return c.JSON(http.StatusCreated, echo.Map{"table": t, "token": t.Token})
}

// DeactivateTable handles POST /v1/admin/tables/:id/deactivate.  The
// token stops resolving; existing orders and calls are untouched.
func (h *AdminHandler) DeactivateTable(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid table id")
	}
	err := h.Tables.Deactivate(c.Request().Context(), actor.RestaurantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "table not found"})
	}
	if err != nil {
		return writeError(c, err)
	}
	c.Logger().Infoj(log.JSON{"action": "table.deactivate", "restaurant_id": actor.RestaurantID, "table_id": id, "actor_id": actor.ID})
	return c.NoContent(http.StatusNoContent)
}
