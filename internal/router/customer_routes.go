package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-booking/internal/booking"
	"github.com/iliyamo/class-booking/internal/handler"
	"github.com/iliyamo/class-booking/internal/middleware"
)

// RegisterCustomer registers customer endpoints under /v1. All routes
// require a valid JWT and the CUSTOMER role; limit wraps the routes that
// write.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(booking.RoleCustomer),
	)
	g.POST("/slots/:id/quote", h.Quote)
	g.POST("/slots/:id/reservations", h.Book, limit)
	g.DELETE("/reservations/:id", h.Cancel, limit)
	g.GET("/my-reservations", h.List)
	g.GET("/me/points", h.Points)
	g.GET("/me/coupons", h.Coupons)
	g.GET("/reservations/:id/qr", h.QR)
}

// RegisterReservationReads registers GET /v1/reservations/:id for every
// role; the manager decides whether the caller may see it.
func RegisterReservationReads(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string) {
	e.GET("/v1/reservations/:id", h.Get, middleware.JWTAuth(jwtSecret))
}
