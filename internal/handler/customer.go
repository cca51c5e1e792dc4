package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/class-booking/internal/booking"
	"github.com/iliyamo/class-booking/internal/model"
)

// CustomerStore is what the customer routes read outside the manager.
type CustomerStore interface {
	Balance(ctx context.Context, userID uint64) (int64, error)
	PointsHistory(ctx context.Context, userID uint64, limit int) ([]model.PointsEntry, error)
	ListUserCoupons(ctx context.Context, userID uint64) ([]model.UserCoupon, error)
}

// CustomerHandler serves quoting, booking and the customer's own data.
// JWT authentication and the CUSTOMER role are enforced by middleware.
type CustomerHandler struct {
	Manager  *booking.Manager
	Store    CustomerStore
	QRSecret []byte // signs check-in QR payloads
}

// NewCustomerHandler panics if a dependency is nil.
func NewCustomerHandler(m *booking.Manager, store CustomerStore, qrSecret string) *CustomerHandler {
	if m == nil || store == nil {
		panic("nil dependency passed to NewCustomerHandler")
	}
	return &CustomerHandler{Manager: m, Store: store, QRSecret: []byte(qrSecret)}
}

type selectionBody struct {
	UserCouponID *uint64 `json:"user_coupon_id"`
	PointsToUse  int64   `json:"points_to_use"`
}

type bookBody struct {
	selectionBody
	PaymentToken string `json:"payment_token"`
	OrderID      string `json:"order_id"`
}

// Quote handles POST /v1/slots/:id/quote.
func (h *CustomerHandler) Quote(c echo.Context) error {
	slotID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid slot id")
	}
	var body selectionBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	q, err := h.Manager.Quote(c.Request().Context(), session(c), slotID, body.UserCouponID, body.PointsToUse)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Book handles POST /v1/slots/:id/reservations. The order id comes from
// the body or the Idempotency-Key header; a retried request with the same
// key returns the reservation created the first time.
func (h *CustomerHandler) Book(c echo.Context) error {
	slotID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid slot id")
	}
	var body bookBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.OrderID == "" {
		body.OrderID = c.Request().Header.Get("Idempotency-Key")
	}
	res, err := h.Manager.Book(c.Request().Context(), session(c), booking.BookRequest{
		SlotID:       slotID,
		UserCouponID: body.UserCouponID,
		PointsToUse:  body.PointsToUse,
		PaymentToken: body.PaymentToken,
		OrderID:      body.OrderID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Cancel handles DELETE /v1/reservations/:id.
func (h *CustomerHandler) Cancel(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Manager.Cancel(c.Request().Context(), session(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Get handles GET /v1/reservations/:id.
func (h *CustomerHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Manager.Get(c.Request().Context(), session(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// List handles GET /v1/my-reservations.
func (h *CustomerHandler) List(c echo.Context) error {
	items, err := h.Manager.List(c.Request().Context(), session(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Points handles GET /v1/me/points?limit=N.
func (h *CustomerHandler) Points(c echo.Context) error {
	sess := session(c)
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			return badRequest(c, "limit must be between 1 and 500")
		}
		limit = n
	}
	ctx := c.Request().Context()
	bal, err := h.Store.Balance(ctx, sess.UserID)
	if err != nil {
		return respondError(c, err)
	}
	history, err := h.Store.PointsHistory(ctx, sess.UserID, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": bal, "history": history})
}

// Coupons handles GET /v1/me/coupons.
func (h *CustomerHandler) Coupons(c echo.Context) error {
	items, err := h.Store.ListUserCoupons(c.Request().Context(), session(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// QR handles GET /v1/reservations/:id/qr and returns a PNG check-in code
// for an active reservation.
func (h *CustomerHandler) QR(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.Manager.Get(c.Request().Context(), session(c), id)
	if err != nil {
		return respondError(c, err)
	}
	if !res.Status.Active() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not active", "code": "conflict"})
	}
	png, err := qrcode.Encode(CheckInPayload(h.QRSecret, res), qrcode.Medium, 256)
	if err != nil {
		return respondError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// CheckInPayload is the text encoded in a reservation's QR code:
// reservation, slot and order ids plus an HMAC-SHA256 prefix over them.
func CheckInPayload(secret []byte, r *model.Reservation) string {
	data := fmt.Sprintf("r=%d;s=%d;o=%s", r.ID, r.SlotID, r.OrderID)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(data))
	return data + ";sig=" + hex.EncodeToString(mac.Sum(nil))[:32]
}
