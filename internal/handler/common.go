// Package handler exposes the HTTP API of the booking core. Handlers parse
// the request, call the booking manager, slot service or stores, and map
// errors to status codes; none of them hold business rules of their own.
package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-booking/internal/booking"
	"github.com/iliyamo/class-booking/internal/middleware"
	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/repository"
	"github.com/iliyamo/class-booking/internal/slots"
)

// respondError writes {"error", "code"} for err. Manager errors are
// classified by booking.Kind; store and slot service sentinels are mapped
// directly. Unknown errors are logged and reported as 500.
func respondError(c echo.Context, err error) error {
	status, code, msg := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("handler: %s %s failed: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden, "forbidden", "forbidden"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict", "conflicts with the current state"
	case errors.Is(err, repository.ErrInsufficientPoints):
		return http.StatusPaymentRequired, "insufficient_funds", "insufficient points"
	case errors.Is(err, repository.ErrInvalidAdjustment),
		errors.Is(err, slots.ErrInvalidRange), errors.Is(err, slots.ErrInvalidSlot),
		errors.Is(err, model.ErrCouponNoDiscount), errors.Is(err, model.ErrCouponBothDiscount),
		errors.Is(err, model.ErrCouponPercentRange):
		return http.StatusBadRequest, "validation", err.Error()
	}

	kind := booking.Kind(err)
	switch kind {
	case booking.KindValidation:
		return http.StatusBadRequest, kind.String(), err.Error()
	case booking.KindConflict:
		msg := err.Error()
		if errors.Is(err, booking.ErrSlotUnavailable) {
			msg = booking.ErrSlotUnavailable.Error()
		}
		return http.StatusConflict, kind.String(), msg
	case booking.KindTransient:
		return http.StatusServiceUnavailable, kind.String(), booking.ErrTransient.Error()
	case booking.KindInsufficientFunds:
		return http.StatusPaymentRequired, kind.String(), err.Error()
	case booking.KindNotFound:
		return http.StatusNotFound, kind.String(), "not found"
	case booking.KindForbidden:
		return http.StatusForbidden, kind.String(), "forbidden"
	case booking.KindUnauthenticated:
		return http.StatusUnauthorized, kind.String(), "unauthorized"
	}
	return http.StatusInternalServerError, "internal", "internal error"
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "validation"})
}

// session returns the caller stored by the JWT middleware. Routes without
// the middleware get a zero session, which every manager call rejects.
func session(c echo.Context) booking.Session {
	s, _ := middleware.SessionFrom(c)
	return s
}

func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// parseDay reads a YYYY-MM-DD value in loc.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, loc)
}
