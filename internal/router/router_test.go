package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/table-service/internal/handler"
	"github.com/iliyamo/table-service/internal/live"
)

func TestRoutesAreRegistered(t *testing.T) {
	e := echo.New()
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	RegisterRoutes(e, handler.Health(nil))
	RegisterPublic(e, &handler.PublicHandler{}, pass)
	RegisterStaff(e, &handler.StaffHandler{}, &handler.StreamHandler{Intervals: live.Intervals{}}, "secret")
	RegisterAdmin(e, &handler.AdminHandler{}, "secret")

	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /v1/t/:token",
		"POST /v1/t/:token/orders",
		"POST /v1/t/:token/calls",
		"GET /v1/t/:token/calls/:id/rating",
		"POST /v1/t/:token/calls/:id/rating",
		"GET /v1/staff/orders",
		"POST /v1/staff/orders/:id/confirm",
		"POST /v1/staff/orders/:id/start",
		"POST /v1/staff/orders/:id/ready",
		"POST /v1/staff/orders/:id/deliver",
		"POST /v1/staff/orders/:id/cancel",
		"GET /v1/staff/calls",
		"POST /v1/staff/calls/:id/resolve",
		"GET /v1/staff/stream/:view",
		"POST /v1/admin/tables",
		"POST /v1/admin/tables/:id/deactivate",
	} {
		assert.True(t, got[want], want)
	}
}

func TestStaffRoutesRequireToken(t *testing.T) {
	e := echo.New()
	RegisterStaff(e, &handler.StaffHandler{}, &handler.StreamHandler{}, "secret")
	RegisterAdmin(e, &handler.AdminHandler{}, "secret")
	for _, path := range []string{"/v1/staff/orders", "/v1/staff/calls"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/admin/tables", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
