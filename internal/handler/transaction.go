package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/train-fare-settlement/internal/auth"
	"github.com/iliyamo/train-fare-settlement/internal/ledger"
	"github.com/iliyamo/train-fare-settlement/internal/model"
	"github.com/iliyamo/train-fare-settlement/internal/repository"
)

// TransactionHandler serves deposit/withdraw endpoints. Reads go to the
// repository; every mutation goes through the ledger engine so the entry
// and the balance move together.
type TransactionHandler struct {
	Engine       *ledger.Engine
	Transactions *repository.TransactionRepo
}

func NewTransactionHandler(e *ledger.Engine, t *repository.TransactionRepo) *TransactionHandler {
	return &TransactionHandler{Engine: e, Transactions: t}
}

// scope parses the user/balance ids from the path and applies the
// ownership rule for the authenticated principal.
func (h *TransactionHandler) scope(c echo.Context) (auth.Principal, uint64, uint64, error) {
	p, err := principal(c)
	if err != nil {
		return auth.Principal{}, 0, 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		return auth.Principal{}, 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	balanceID, err := pathID(c, "balance_id")
	if err != nil {
		return auth.Principal{}, 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid balance id")
	}
	if err := auth.Authorize(p, bothRoles, userID); err != nil {
		return auth.Principal{}, 0, 0, err
	}
	return p, userID, balanceID, nil
}

func (h *TransactionHandler) scopeErr(c echo.Context, err error) error {
	if he, ok := err.(*echo.HTTPError); ok {
		return c.JSON(he.Code, echo.Map{"error": he.Message})
	}
	return writeError(c, err)
}

// List returns the active entries of a balance, oldest first.
func (h *TransactionHandler) List(c echo.Context) error {
	p, userID, balanceID, err := h.scope(c)
	if err != nil {
		return h.scopeErr(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	txns, err := h.Transactions.ListByBalance(ctx, userID, balanceID)
	if err != nil {
		return writeError(c, err)
	}
	admin := p.Role == model.RoleAdmin
	items := make([]echo.Map, 0, len(txns))
	for _, t := range txns {
		items = append(items, viewTransaction(t, admin))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one entry.
func (h *TransactionHandler) Get(c echo.Context) error {
	p, userID, balanceID, err := h.scope(c)
	if err != nil {
		return h.scopeErr(c, err)
	}
	txnID, err := pathID(c, "transaction_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Transactions.Get(ctx, userID, balanceID, txnID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewTransaction(t, p.Role == model.RoleAdmin))
}

type transactionCreateReq struct {
	Type   string           `json:"type"`
	Amount *decimal.Decimal `json:"amount"`
}

// Create appends a deposit or withdrawal.
func (h *TransactionHandler) Create(c echo.Context) error {
	p, userID, balanceID, err := h.scope(c)
	if err != nil {
		return h.scopeErr(c, err)
	}

	var req transactionCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	kind := strings.ToLower(strings.TrimSpace(req.Type))
	if !model.ValidTransactionType(kind) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be deposit or withdraw"})
	}
	if req.Amount == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, b, err := h.Engine.CreateTransaction(ctx, userID, balanceID, kind, *req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	admin := p.Role == model.RoleAdmin
	return c.JSON(http.StatusCreated, echo.Map{
		"transaction": viewTransaction(t, admin),
		"balance":     viewBalance(b, admin),
	})
}

type transactionUpdateReq struct {
	Type   *string          `json:"type"`
	Amount *decimal.Decimal `json:"amount"`
}

// Update edits an entry with revert-then-reapply semantics. Admin only.
func (h *TransactionHandler) Update(c echo.Context) error {
	_, userID, balanceID, err := h.scope(c)
	if err != nil {
		return h.scopeErr(c, err)
	}
	txnID, err := pathID(c, "transaction_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}

	var req transactionUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if c.Request().Method == http.MethodPut && (req.Type == nil || req.Amount == nil) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type and amount are required"})
	}
	var patch ledger.TransactionPatch
	if req.Type != nil {
		kind := strings.ToLower(strings.TrimSpace(*req.Type))
		if !model.ValidTransactionType(kind) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be deposit or withdraw"})
		}
		patch.Type = &kind
	}
	patch.Amount = req.Amount
	if patch.Type == nil && patch.Amount == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, b, err := h.Engine.UpdateTransaction(ctx, userID, balanceID, txnID, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"transaction": viewTransaction(t, true),
		"balance":     viewBalance(b, true),
	})
}

// HardDelete removes an entry. Admin only.
func (h *TransactionHandler) HardDelete(c echo.Context) error {
	return h.delete(c, false)
}

// SoftDelete flags an entry. Users may flag their own.
func (h *TransactionHandler) SoftDelete(c echo.Context) error {
	return h.delete(c, true)
}

func (h *TransactionHandler) delete(c echo.Context, soft bool) error {
	_, userID, balanceID, err := h.scope(c)
	if err != nil {
		return h.scopeErr(c, err)
	}
	txnID, err := pathID(c, "transaction_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Engine.DeleteTransaction(ctx, userID, balanceID, txnID, soft); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
