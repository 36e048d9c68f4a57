package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-service/internal/model"
	"github.com/iliyamo/table-service/internal/service"
)

// PublicHandler serves the table client reached by scanning a QR code.
// Every route is keyed by the table token; there is no login.
type PublicHandler struct {
	Sessions SessionService
	Orders   OrderService
	Calls    CallService
	Ratings  RatingService
}

// NewPublicHandler constructs a PublicHandler.  All dependencies must be
// non-nil.
func NewPublicHandler(sessions SessionService, orders OrderService, calls CallService, ratings RatingService) *PublicHandler {
	if sessions == nil || orders == nil || calls == nil || ratings == nil {
		panic("nil service passed to NewPublicHandler")
	}
	return &PublicHandler{Sessions: sessions, Orders: orders, Calls: calls, Ratings: ratings}
}

// Session handles GET /v1/t/:token.
func (h *PublicHandler) Session(c echo.Context) error {
	sess, err := h.Sessions.Resolve(c.Request().Context(), c.Param("token"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// PlaceOrder handles POST /v1/t/:token/orders.
func (h *PublicHandler) PlaceOrder(c echo.Context) error {
	var body struct {
		Items []service.OrderLine `json:"items"`
		Notes *string             `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	table, err := h.Sessions.Table(ctx, c.Param("token"))
	if err != nil {
		return writeError(c, err)
	}
	o, err := h.Orders.Create(ctx, table.ID, body.Items, body.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// CreateCall handles POST /v1/t/:token/calls.  A repeated request while
// the call is still open answers 200 with the existing call.
func (h *PublicHandler) CreateCall(c echo.Context) error {
	var body struct {
		Type model.CallType `json:"type"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	table, err := h.Sessions.Table(ctx, c.Param("token"))
	if err != nil {
		return writeError(c, err)
	}
	call, created, err := h.Calls.Create(ctx, table.ID, body.Type)
	if err != nil {
		return writeError(c, err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, call)
}

// CanRate handles GET /v1/t/:token/calls/:id/rating.
func (h *PublicHandler) CanRate(c echo.Context) error {
	callID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid call id")
	}
	ctx := c.Request().Context()
	table, err := h.Sessions.Table(ctx, c.Param("token"))
	if err != nil {
		return writeError(c, err)
	}
	can, err := h.Ratings.CanRate(ctx, table.ID, callID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"can_rate": can})
}

// SubmitRating handles POST /v1/t/:token/calls/:id/rating.
func (h *PublicHandler) SubmitRating(c echo.Context) error {
	callID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid call id")
	}
	var body struct {
		Stars    int     `json:"stars"`
		Feedback *string `json:"feedback"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	table, err := h.Sessions.Table(ctx, c.Param("token"))
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Ratings.Submit(ctx, table.ID, callID, body.Stars, body.Feedback)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}
