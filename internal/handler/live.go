package handler

import (
	"log"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-booking/internal/realtime"
)

// LiveHandler streams slot updates of a class over a websocket.
type LiveHandler struct {
	Classes ClassReader
	Hub     *realtime.Hub
}

// Slots handles GET /v1/classes/:id/slots/live.
func (h *LiveHandler) Slots(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid class id")
	}
	if _, err := h.Classes.GetClass(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	if err := h.Hub.Serve(c.Response(), c.Request(), id); err != nil {
		log.Printf("handler: websocket upgrade for class_id=%d failed: %v", id, err)
	}
	return nil
}
