package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-booking/internal/booking"
	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/realtime"
	"github.com/iliyamo/class-booking/internal/repository"
	"github.com/iliyamo/class-booking/internal/schedule"
	"github.com/iliyamo/class-booking/internal/slots"
)

// SellerStore is what the seller routes write outside the manager.
type SellerStore interface {
	CreateClass(ctx context.Context, c *model.Class) error
	ListClassesBySeller(ctx context.Context, sellerID uint64) ([]model.Class, error)
	CreateCouponTemplate(ctx context.Context, t *model.CouponTemplate) error
	GetCouponTemplate(ctx context.Context, id uint64) (*model.CouponTemplate, error)
	IssueCoupon(ctx context.Context, templateID, userID uint64) (*model.UserCoupon, error)
}

// SlotNotifier is told about slot edits so live listings refresh.
type SlotNotifier interface {
	SlotChanged(typ string, s model.Slot)
}

// SellerHandler serves class, slot and coupon management for sellers.
// JWT authentication and the SELLER role are enforced by middleware;
// ownership of the class is checked per request.
type SellerHandler struct {
	Manager         *booking.Manager
	Slots           *slots.Service
	Store           SellerStore
	Notifier        SlotNotifier
	MaterializeDays int
}

// NewSellerHandler panics if a required dependency is nil. notifier may be
// nil.
func NewSellerHandler(m *booking.Manager, svc *slots.Service, store SellerStore, notifier SlotNotifier, materializeDays int) *SellerHandler {
	if m == nil || svc == nil || store == nil {
		panic("nil dependency passed to NewSellerHandler")
	}
	return &SellerHandler{Manager: m, Slots: svc, Store: store, Notifier: notifier, MaterializeDays: materializeDays}
}

func (h *SellerHandler) notify(s *model.Slot) {
	if h.Notifier != nil && s != nil {
		h.Notifier.SlotChanged(realtime.UpdateSlotChanged, *s)
	}
}

type classBody struct {
	Name        string          `json:"name"`
	PricePoints int64           `json:"price_points"`
	Capacity    int             `json:"capacity"`
	Schedule    json.RawMessage `json:"schedule"`
}

// scheduleText accepts the schedule as a JSON object or as a string that
// holds one, and returns the text to store.
func scheduleText(raw json.RawMessage) (*string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, true
	}
	if schedule.ParseJSON([]byte(trimmed)) == nil {
		return nil, false
	}
	var s string
	if json.Unmarshal([]byte(trimmed), &s) == nil {
		trimmed = s
	}
	return &trimmed, true
}

// CreateClass handles POST /v1/seller/classes.
func (h *SellerHandler) CreateClass(c echo.Context) error {
	var body classBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	body.Name = strings.TrimSpace(body.Name)
	switch {
	case body.Name == "":
		return badRequest(c, "name is required")
	case body.PricePoints < 0:
		return badRequest(c, "price_points must not be negative")
	case body.Capacity < 1:
		return badRequest(c, "capacity must be at least 1")
	}
	sched, ok := scheduleText(body.Schedule)
	if !ok {
		return badRequest(c, "schedule defines no valid sessions")
	}
	cls := &model.Class{
		SellerID:    session(c).UserID,
		Name:        body.Name,
		PricePoints: body.PricePoints,
		Capacity:    body.Capacity,
		Schedule:    sched,
	}
	if err := h.Store.CreateClass(c.Request().Context(), cls); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, newClassView(cls))
}

// ListClasses handles GET /v1/seller/classes.
func (h *SellerHandler) ListClasses(c echo.Context) error {
	classes, err := h.Store.ListClassesBySeller(c.Request().Context(), session(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]ClassView, 0, len(classes))
	for i := range classes {
		out = append(out, newClassView(&classes[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Materialize handles POST /v1/seller/classes/:id/slots/materialize. The
// optional body {"from","to"} takes YYYY-MM-DD days; the default range is
// today through the configured number of days ahead.
func (h *SellerHandler) Materialize(c echo.Context) error {
	classID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid class id")
	}
	var body struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	loc := h.Slots.Location()
	from := time.Now().In(loc)
	to := from.AddDate(0, 0, h.MaterializeDays)
	var err error
	if body.From != "" {
		if from, err = parseDay(body.From, loc); err != nil {
			return badRequest(c, "from must be YYYY-MM-DD")
		}
	}
	if body.To != "" {
		if to, err = parseDay(body.To, loc); err != nil {
			return badRequest(c, "to must be YYYY-MM-DD")
		}
	}
	ctx := c.Request().Context()
	if _, err := h.Slots.Authorize(ctx, session(c).UserID, classID); err != nil {
		return respondError(c, err)
	}
	n, err := h.Slots.Materialize(ctx, classID, from, to)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"created": n})
}

// CreateSlot handles POST /v1/seller/classes/:id/slots for a one-off
// session. start_at is RFC 3339; capacity defaults to the class capacity.
func (h *SellerHandler) CreateSlot(c echo.Context) error {
	classID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid class id")
	}
	var body struct {
		StartAt  time.Time `json:"start_at"`
		Capacity int       `json:"capacity"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	slot, err := h.Slots.CreateSingle(c.Request().Context(), session(c).UserID, classID, body.StartAt, body.Capacity)
	if err != nil {
		return respondError(c, err)
	}
	h.notify(slot)
	return c.JSON(http.StatusCreated, schedule.View(*slot))
}

// UpdateSlot handles PATCH /v1/seller/slots/:id with optional capacity and
// is_open fields.
func (h *SellerHandler) UpdateSlot(c echo.Context) error {
	slotID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid slot id")
	}
	var body struct {
		Capacity *int  `json:"capacity"`
		IsOpen   *bool `json:"is_open"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Capacity == nil && body.IsOpen == nil {
		return badRequest(c, "capacity or is_open is required")
	}
	slot, err := h.Slots.UpdateSlot(c.Request().Context(), session(c).UserID, slotID, body.Capacity, body.IsOpen)
	if err != nil {
		return respondError(c, err)
	}
	h.notify(slot)
	return c.JSON(http.StatusOK, schedule.View(*slot))
}

// Complete handles POST /v1/seller/reservations/:id/complete.
func (h *SellerHandler) Complete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Manager.Complete(c.Request().Context(), session(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CreateCoupon handles POST /v1/seller/coupons.
func (h *SellerHandler) CreateCoupon(c echo.Context) error {
	var body struct {
		Name            string     `json:"name"`
		DiscountPoints  int64      `json:"discount_points"`
		DiscountPercent int        `json:"discount_percent"`
		ExpiresAt       *time.Time `json:"expires_at"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(body.Name) == "" {
		return badRequest(c, "name is required")
	}
	t := &model.CouponTemplate{
		SellerID:        session(c).UserID,
		Name:            strings.TrimSpace(body.Name),
		DiscountPoints:  body.DiscountPoints,
		DiscountPercent: body.DiscountPercent,
		ExpiresAt:       body.ExpiresAt,
	}
	if err := h.Store.CreateCouponTemplate(c.Request().Context(), t); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// IssueCoupon handles POST /v1/seller/coupons/:id/issue {"user_id": N}.
func (h *SellerHandler) IssueCoupon(c echo.Context) error {
	templateID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid coupon id")
	}
	var body struct {
		UserID uint64 `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil || body.UserID == 0 {
		return badRequest(c, "user_id is required")
	}
	ctx := c.Request().Context()
	t, err := h.Store.GetCouponTemplate(ctx, templateID)
	if err != nil {
		return respondError(c, err)
	}
	if t.SellerID != session(c).UserID {
		return respondError(c, repository.ErrForbidden)
	}
	uc, err := h.Store.IssueCoupon(ctx, templateID, body.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, uc)
}
