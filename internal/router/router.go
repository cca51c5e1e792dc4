// Package router registers the HTTP routes on an echo instance. Each
// audience gets its own group with the middleware it needs.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/class-booking/internal/handler"
)

// RegisterRoutes registers the probes and the metrics endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterPublic registers unauthenticated browsing. Only class detail is
// cached; slot listings must reflect bookings immediately.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, live *handler.LiveHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/classes/:id", p.GetClass, cache)
	e.GET("/v1/classes/:id/slots", p.ListSlots)
	if live != nil {
		e.GET("/v1/classes/:id/slots/live", live.Slots)
	}
}
