package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-booking/internal/booking"
	"github.com/iliyamo/class-booking/internal/handler"
	"github.com/iliyamo/class-booking/internal/middleware"
)

// RegisterSeller registers class, slot and coupon management under
// /v1/seller for the SELLER role.
func RegisterSeller(e *echo.Echo, h *handler.SellerHandler, jwtSecret string) {
	g := e.Group(
		"/v1/seller",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(booking.RoleSeller),
	)
	g.POST("/classes", h.CreateClass)
	g.GET("/classes", h.ListClasses)
	g.POST("/classes/:id/slots/materialize", h.Materialize)
	g.POST("/classes/:id/slots", h.CreateSlot)
	g.PATCH("/slots/:id", h.UpdateSlot)
	g.POST("/reservations/:id/complete", h.Complete)
	g.POST("/coupons", h.CreateCoupon)
	g.POST("/coupons/:id/issue", h.IssueCoupon)
}

// RegisterAdmin registers operator endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(booking.RoleAdmin),
	)
	g.POST("/points/adjust", h.AdjustPoints)
}
