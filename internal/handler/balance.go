package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/train-fare-settlement/internal/auth"
	"github.com/iliyamo/train-fare-settlement/internal/model"
	"github.com/iliyamo/train-fare-settlement/internal/repository"
)

// BalanceHandler serves the per-user balance endpoints. Writes here are
// the admin escape hatch; regular money movement goes through the ledger
// engine via transactions and payments.
type BalanceHandler struct {
	Balances *repository.BalanceRepo
}

func NewBalanceHandler(b *repository.BalanceRepo) *BalanceHandler {
	return &BalanceHandler{Balances: b}
}

// Get returns the user's balance. Plain users only see their own.
func (h *BalanceHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if err := auth.Authorize(p, bothRoles, userID); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Balances.GetByUser(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewBalance(b, p.Role == model.RoleAdmin))
}

type balancePutReq struct {
	Total *decimal.Decimal `json:"total"`
}

// Put overwrites the total directly. Admin only; the new total may be
// zero but never negative.
func (h *BalanceHandler) Put(c echo.Context) error {
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req balancePutReq
	if err := c.Bind(&req); err != nil || req.Total == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total required"})
	}
	if req.Total.IsNegative() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total cannot be negative"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Balances.SetTotal(ctx, userID, *req.Total)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewBalance(b, true))
}

// SoftDelete flags the balance. Admin only.
func (h *BalanceHandler) SoftDelete(c echo.Context) error {
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Balances.GetByUser(ctx, userID); err != nil {
		return writeError(c, err)
	}
	if err := h.Balances.SoftDeleteByUser(ctx, userID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HardDelete removes the balance row. Admin only.
func (h *BalanceHandler) HardDelete(c echo.Context) error {
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Balances.GetByUser(ctx, userID); err != nil {
		return writeError(c, err)
	}
	if err := h.Balances.HardDeleteByUser(ctx, userID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
