package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-fare-settlement/internal/auth"
	"github.com/iliyamo/train-fare-settlement/internal/ledger"
	"github.com/iliyamo/train-fare-settlement/internal/model"
	"github.com/iliyamo/train-fare-settlement/internal/queue"
	"github.com/iliyamo/train-fare-settlement/internal/repository"
	queue_publisher "github.com/iliyamo/train-fare-settlement/internal/service"
)

// PaymentHandler serves fare payments. Creation is reserved for the
// "user" role paying for themselves; revising a payment is an admin
// correction that refunds the old fare and debits the new one.
type PaymentHandler struct {
	Engine   *ledger.Engine
	Payments *repository.PaymentRepo
	Travels  *repository.TravelRepo
}

func NewPaymentHandler(e *ledger.Engine, p *repository.PaymentRepo, t *repository.TravelRepo) *PaymentHandler {
	return &PaymentHandler{Engine: e, Payments: p, Travels: t}
}

// List returns the user's active payments.
func (h *PaymentHandler) List(c echo.Context) error {
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

	payments, err := h.Payments.ListByUser(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	admin := p.Role == model.RoleAdmin
	items := make([]echo.Map, 0, len(payments))
	for _, pay := range payments {
		items = append(items, viewPayment(pay, admin))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one payment.
func (h *PaymentHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	paymentID, err := pathID(c, "payment_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	if err := auth.Authorize(p, bothRoles, userID); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pay, err := h.Payments.Get(ctx, userID, paymentID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewPayment(pay, p.Role == model.RoleAdmin))
}

type paymentCreateReq struct {
	TravelID *uint64 `json:"travel_id"`
}

// Create debits the travel's fare from the caller's balance. Only the
// "user" role pays, and only for themselves; admins correct payments
// through PUT instead of creating them.
func (h *PaymentHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if err := auth.Authorize(p, []string{model.RoleUser}, userID); err != nil {
		return writeError(c, err)
	}

	var req paymentCreateReq
	if err := c.Bind(&req); err != nil || req.TravelID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "travel_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pay, b, err := h.Engine.CreatePayment(ctx, userID, *req.TravelID)
	if err != nil {
		return writeError(c, err)
	}
	h.publishSettled(pay, b)

	return c.JSON(http.StatusCreated, echo.Map{
		"payment": viewPayment(pay, false),
		"balance": viewBalance(b, false),
	})
}

type paymentUpdateReq struct {
	TravelID *uint64 `json:"travel_id"`
}

// Update retargets a payment to another travel. Admin only; the old fare
// is refunded and the new one debited in a single step.
func (h *PaymentHandler) Update(c echo.Context) error {
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	paymentID, err := pathID(c, "payment_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	var req paymentUpdateReq
	if err := c.Bind(&req); err != nil || req.TravelID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "travel_id required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pay, b, err := h.Engine.UpdatePayment(ctx, userID, paymentID, *req.TravelID)
	if err != nil {
		return writeError(c, err)
	}
	h.publishSettled(pay, b)

	return c.JSON(http.StatusOK, echo.Map{
		"payment": viewPayment(pay, true),
		"balance": viewBalance(b, true),
	})
}

// HardDelete removes a payment. Admin only.
func (h *PaymentHandler) HardDelete(c echo.Context) error {
	return h.delete(c, false)
}

// SoftDelete flags a payment. Users may flag their own.
func (h *PaymentHandler) SoftDelete(c echo.Context) error {
	return h.delete(c, true)
}

func (h *PaymentHandler) delete(c echo.Context, soft bool) error {
	p, err := principal(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	paymentID, err := pathID(c, "payment_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	if err := auth.Authorize(p, bothRoles, userID); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Engine.DeletePayment(ctx, userID, paymentID, soft); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// publishSettled sends the settlement event in the background. The
// payment already committed; a broker outage only costs the log line.
func (h *PaymentHandler) publishSettled(pay model.Payment, b model.Balance) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		ev := queue.PaymentSettledEvent{
			PaymentID:    pay.ID,
			UserID:       pay.UserID,
			TravelID:     pay.TravelID,
			Fare:         pay.Amount.String(),
			BalanceAfter: b.Total.String(),
			SettledAt:    time.Now().UTC().Format(time.RFC3339),
		}
		if travel, err := h.Travels.GetByID(ctx, pay.TravelID); err == nil {
			ev.TrainID = travel.TrainID
			ev.DepartureID = travel.DepartureID
			ev.ArrivalID = travel.ArrivalID
		}
		_ = queue_publisher.PublishPaymentSettled(ctx, ev)
	}()
}
