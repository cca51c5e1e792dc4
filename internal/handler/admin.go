package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/class-booking/internal/model"
)

// PointsAdjuster records manual ledger movements.
type PointsAdjuster interface {
	AdjustPoints(ctx context.Context, userID uint64, typ model.PointsEntryType, amount int64, memo string) (*model.PointsEntry, error)
}

// AdminHandler serves operator endpoints. The ADMIN role is enforced by
// middleware.
type AdminHandler struct {
	Points PointsAdjuster
}

// AdjustPoints handles POST /v1/admin/points/adjust with
// {"user_id", "type": "CHARGE"|"ADMIN", "amount", "memo"}.
func (h *AdminHandler) AdjustPoints(c echo.Context) error {
	var body struct {
		UserID uint64 `json:"user_id"`
		Type   string `json:"type"`
		Amount int64  `json:"amount"`
		Memo   string `json:"memo"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.UserID == 0 {
		return badRequest(c, "user_id is required")
	}
	typ := model.PointsEntryType(strings.ToUpper(body.Type))
	entry, err := h.Points.AdjustPoints(c.Request().Context(), body.UserID, typ, body.Amount, body.Memo)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, entry)
}
