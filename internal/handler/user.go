package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-fare-settlement/internal/auth"
	"github.com/iliyamo/train-fare-settlement/internal/config"
	"github.com/iliyamo/train-fare-settlement/internal/model"
	"github.com/iliyamo/train-fare-settlement/internal/repository"
	"github.com/iliyamo/train-fare-settlement/internal/utils"
)

// UserHandler serves account management. Deleting a user cascades in the
// same mode (soft or hard) to the balance, transactions and payments, so
// the handler holds all four repositories.
type UserHandler struct {
	Cfg          config.Config
	Users        *repository.UserRepo
	Balances     *repository.BalanceRepo
	Transactions *repository.TransactionRepo
	Payments     *repository.PaymentRepo
	Tokens       *repository.TokenRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo, b *repository.BalanceRepo, t *repository.TransactionRepo, p *repository.PaymentRepo, tok *repository.TokenRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u, Balances: b, Transactions: t, Payments: p, Tokens: tok}
}

var bothRoles = []string{model.RoleUser, model.RoleAdmin}

// List returns every active user. Admin only (enforced at the router).
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]echo.Map, 0, len(users))
	for _, u := range users {
		items = append(items, viewUser(u, true))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one user. Plain users can only fetch themselves.
func (h *UserHandler) Get(c echo.Context) error {
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

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewUser(u, p.Role == model.RoleAdmin))
}

type userUpdateReq struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
}

// Update handles PUT and PATCH. PUT requires the full mutable field set;
// PATCH takes any subset. Password changes are rehashed with bcrypt. The
// role field is the only way to promote an account and only admins may
// send it.
func (h *UserHandler) Update(c echo.Context) error {
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

	var req userUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if c.Request().Method == http.MethodPut &&
		(req.Email == nil || req.FirstName == nil || req.LastName == nil) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, first_name and last_name are required"})
	}

	var patch repository.UserPatch
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email cannot be empty"})
		}
		patch.Email = &email
	}
	if req.Password != nil {
		if *req.Password == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "password cannot be empty"})
		}
		hash, err := utils.HashPassword(*req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
		}
		patch.PasswordHash = &hash
	}
	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		patch.FirstName = &name
	}
	if req.LastName != nil {
		name := strings.TrimSpace(*req.LastName)
		patch.LastName = &name
	}
	if req.Role != nil {
		if p.Role != model.RoleAdmin {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "only admins can change roles"})
		}
		role := strings.ToLower(strings.TrimSpace(*req.Role))
		if role != model.RoleUser && role != model.RoleAdmin {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be user or admin"})
		}
		patch.Role = &role
	}
	if patch.Email == nil && patch.PasswordHash == nil && patch.FirstName == nil && patch.LastName == nil && patch.Role == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Update(ctx, userID, patch); err != nil {
		return writeError(c, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewUser(u, p.Role == model.RoleAdmin))
}

// HardDelete removes the user and everything they own. Admin only.
func (h *UserHandler) HardDelete(c echo.Context) error {
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		return writeError(c, err)
	}
	// Children first so a failed cascade leaves the parent visible.
	if err := h.Payments.HardDeleteByUser(ctx, userID); err != nil {
		return writeError(c, err)
	}
	if err := h.Transactions.HardDeleteByUser(ctx, userID); err != nil {
		return writeError(c, err)
	}
	if err := h.Balances.HardDeleteByUser(ctx, userID); err != nil {
		return writeError(c, err)
	}
	if err := h.Users.HardDelete(ctx, userID); err != nil {
		return writeError(c, err)
	}
	_ = h.Tokens.RevokeAllForUser(ctx, userID)
	return c.NoContent(http.StatusNoContent)
}

// SoftDelete flags the user and their records. The user can close their
// own account; admins can close any.
func (h *UserHandler) SoftDelete(c echo.Context) error {
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

	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		return writeError(c, err)
	}
	if err := h.Payments.SoftDeleteByUser(ctx, userID); err != nil {
		return writeError(c, err)
	}
	if err := h.Transactions.SoftDeleteByUser(ctx, userID); err != nil {
		return writeError(c, err)
	}
	if err := h.Balances.SoftDeleteByUser(ctx, userID); err != nil {
		return writeError(c, err)
	}
	if err := h.Users.SoftDelete(ctx, userID); err != nil {
		return writeError(c, err)
	}
	_ = h.Tokens.RevokeAllForUser(ctx, userID)
	return c.NoContent(http.StatusNoContent)
}
