package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/schedule"
	"github.com/iliyamo/class-booking/internal/slots"
)

// ClassReader loads a class.
type ClassReader interface {
	GetClass(ctx context.Context, id uint64) (*model.Class, error)
}

// PublicHandler serves unauthenticated browsing of classes and sessions.
type PublicHandler struct {
	Classes ClassReader
	Slots   *slots.Service
}

// NewPublicHandler panics if a dependency is nil.
func NewPublicHandler(classes ClassReader, svc *slots.Service) *PublicHandler {
	if classes == nil || svc == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{Classes: classes, Slots: svc}
}

// ClassView is the public shape of a class. Schedule maps weekday names to
// HH:MM start times.
type ClassView struct {
	ID          uint64              `json:"id"`
	SellerID    uint64              `json:"seller_id"`
	Name        string              `json:"name"`
	PricePoints int64               `json:"price_points"`
	Capacity    int                 `json:"capacity"`
	Schedule    map[string][]string `json:"schedule,omitempty"`
	Skipped     []string            `json:"schedule_warnings,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func newClassView(c *model.Class) ClassView {
	v := ClassView{
		ID:          c.ID,
		SellerID:    c.SellerID,
		Name:        c.Name,
		PricePoints: c.PricePoints,
		Capacity:    c.Capacity,
		CreatedAt:   c.CreatedAt,
	}
	def := schedule.ParseString(c.Schedule)
	if def == nil {
		return v
	}
	days := def.Map()
	v.Schedule = make(map[string][]string, len(days))
	for d, times := range days {
		name := schedule.DayName(d)
		for _, t := range times {
			v.Schedule[name] = append(v.Schedule[name], t.String())
		}
	}
	for _, s := range def.Skipped {
		v.Skipped = append(v.Skipped, s.String())
	}
	return v
}

// GetClass handles GET /v1/classes/:id.
func (h *PublicHandler) GetClass(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid class id")
	}
	cls, err := h.Classes.GetClass(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newClassView(cls))
}

// ListSlots handles GET /v1/classes/:id/slots. It takes either
// ?date=YYYY-MM-DD or ?from=YYYY-MM-DD&to=YYYY-MM-DD; without any it
// lists today. Days are interpreted in the schedule zone.
func (h *PublicHandler) ListSlots(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid class id")
	}
	loc := h.Slots.Location()
	from, to := time.Now().In(loc), time.Now().In(loc)
	var err error
	switch date, f, t := c.QueryParam("date"), c.QueryParam("from"), c.QueryParam("to"); {
	case date != "":
		if from, err = parseDay(date, loc); err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		to = from
	case f != "" || t != "":
		if f == "" || t == "" {
			return badRequest(c, "from and to are both required")
		}
		if from, err = parseDay(f, loc); err != nil {
			return badRequest(c, "from must be YYYY-MM-DD")
		}
		if to, err = parseDay(t, loc); err != nil {
			return badRequest(c, "to must be YYYY-MM-DD")
		}
	}
	views, err := h.Slots.ListForRange(c.Request().Context(), id, from, to)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views})
}
