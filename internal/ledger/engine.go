// Package ledger orchestrates every mutation of a user's balance. Each
// operation runs in a single database transaction with the balance row
// locked (SELECT ... FOR UPDATE), so the ledger entry and the balance
// write commit or roll back together and concurrent operations on the
// same user serialize instead of losing updates.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/train-fare-settlement/internal/model"
	"github.com/iliyamo/train-fare-settlement/internal/repository"
)

// ErrInvalidAmount is returned when a transaction amount is zero or
// negative.
var ErrInvalidAmount = errors.New("amount must be greater than zero")

// ErrInsufficientFunds is returned when a withdrawal or payment would
// drive the balance below zero. The balance keeps its pre-operation
// value.
var ErrInsufficientFunds = errors.New("total balance not sufficient")

// Engine applies transaction and payment operations to balances.
//
// ReverseOnDelete controls whether deleting a ledger entry reverses its
// effect on the balance. The upstream behavior is to leave the balance
// untouched on delete, so the default is false; the flag exists to make
// that policy an explicit choice instead of a silent one.
type Engine struct {
	db              *sql.DB
	balances        *repository.BalanceRepo
	transactions    *repository.TransactionRepo
	travels         *repository.TravelRepo
	payments        *repository.PaymentRepo
	reverseOnDelete bool
}

// NewEngine wires the engine to its database and repositories.
func NewEngine(db *sql.DB, balances *repository.BalanceRepo, transactions *repository.TransactionRepo, travels *repository.TravelRepo, payments *repository.PaymentRepo, reverseOnDelete bool) *Engine {
	if db == nil || balances == nil || transactions == nil || travels == nil || payments == nil {
		panic("nil dependency passed to NewEngine")
	}
	return &Engine{
		db:              db,
		balances:        balances,
		transactions:    transactions,
		travels:         travels,
		payments:        payments,
		reverseOnDelete: reverseOnDelete,
	}
}

// lockBalance loads the user's balance under a row lock and, when
// balanceID is non-zero, verifies the path-scoped balance id matches.
func (e *Engine) lockBalance(ctx context.Context, tx *sql.Tx, userID, balanceID uint64) (model.Balance, error) {
	b, err := e.balances.GetByUserForUpdateTx(ctx, tx, userID)
	if err != nil {
		return model.Balance{}, err
	}
	if balanceID != 0 && b.ID != balanceID {
		return model.Balance{}, &repository.NotFoundError{Entity: "balance", ID: balanceID}
	}
	return b, nil
}

// CreateTransaction appends a deposit or withdrawal and moves the
// balance accordingly. A withdrawal that would overdraw the balance
// fails with ErrInsufficientFunds and leaves everything untouched.
func (e *Engine) CreateTransaction(ctx context.Context, userID, balanceID uint64, kind string, amount decimal.Decimal) (model.Transaction, model.Balance, error) {
	if amount.Sign() <= 0 {
		return model.Transaction{}, model.Balance{}, ErrInvalidAmount
	}
	if !model.ValidTransactionType(kind) {
		return model.Transaction{}, model.Balance{}, fmt.Errorf("unknown transaction type %q", kind)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Transaction{}, model.Balance{}, err
	}
	defer tx.Rollback()

	b, err := e.lockBalance(ctx, tx, userID, balanceID)
	if err != nil {
		return model.Transaction{}, model.Balance{}, err
	}

	var newTotal decimal.Decimal
	if kind == model.TransactionDeposit {
		newTotal = b.Total.Add(amount)
	} else {
		newTotal = b.Total.Sub(amount)
		if newTotal.IsNegative() {
			return model.Transaction{}, model.Balance{}, ErrInsufficientFunds
		}
	}

	t, err := e.transactions.CreateTx(ctx, tx, userID, b.ID, kind, amount)
	if err != nil {
		return model.Transaction{}, model.Balance{}, err
	}
	if err := e.balances.SetTotalTx(ctx, tx, b.ID, newTotal); err != nil {
		return model.Transaction{}, model.Balance{}, err
	}
	refreshed, err := e.balances.GetTx(ctx, tx, b.ID)
	if err != nil {
		return model.Transaction{}, model.Balance{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Transaction{}, model.Balance{}, err
	}
	return t, refreshed, nil
}

// TransactionPatch carries the optional fields of a transaction update.
// Nil fields keep the entry's current value; the revert/reapply math
// always uses the effective post-merge type and amount.
type TransactionPatch struct {
	Type   *string
	Amount *decimal.Decimal
}

// UpdateTransaction edits an existing entry by undoing its old effect on
// the balance and applying the new one in the same transaction. The
// revert stays in memory until the reapply passes the non-negative
// check, so a failed update never exposes a half-adjusted balance.
func (e *Engine) UpdateTransaction(ctx context.Context, userID, balanceID, transactionID uint64, patch TransactionPatch) (model.Transaction, model.Balance, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Transaction{}, model.Balance{}, err
	}
	defer tx.Rollback()

	b, err := e.lockBalance(ctx, tx, userID, balanceID)
	if err != nil {
		return model.Transaction{}, model.Balance{}, err
	}
	old, err := e.transactions.GetTx(ctx, tx, userID, b.ID, transactionID)
	if err != nil {
		return model.Transaction{}, model.Balance{}, err
	}

	reverted := b.Total.Sub(old.Amount)
	if old.Type == model.TransactionWithdraw {
		reverted = b.Total.Add(old.Amount)
	}

	kind := old.Type
	if patch.Type != nil {
		if !model.ValidTransactionType(*patch.Type) {
			return model.Transaction{}, model.Balance{}, fmt.Errorf("unknown transaction type %q", *patch.Type)
		}
		kind = *patch.Type
	}
	amount := old.Amount
	if patch.Amount != nil {
		if patch.Amount.Sign() <= 0 {
			return model.Transaction{}, model.Balance{}, ErrInvalidAmount
		}
		amount = *patch.Amount
	}

	newTotal := reverted.Add(amount)
	if kind == model.TransactionWithdraw {
		newTotal = reverted.Sub(amount)
	}
	if newTotal.IsNegative() {
		return model.Transaction{}, model.Balance{}, ErrInsufficientFunds
	}

	updated, err := e.transactions.UpdateTx(ctx, tx, old.ID, kind, amount)
	if err != nil {
		return model.Transaction{}, model.Balance{}, err
	}
	if err := e.balances.SetTotalTx(ctx, tx, b.ID, newTotal); err != nil {
		return model.Transaction{}, model.Balance{}, err
	}
	refreshed, err := e.balances.GetTx(ctx, tx, b.ID)
	if err != nil {
		return model.Transaction{}, model.Balance{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Transaction{}, model.Balance{}, err
	}
	return updated, refreshed, nil
}

// DeleteTransaction removes (hard) or flags (soft) an entry. The balance
// is reversed only when the engine was built with ReverseOnDelete;
// reversing a deposit that the user has since spent fails with
// ErrInsufficientFunds rather than breaking the non-negative invariant.
func (e *Engine) DeleteTransaction(ctx context.Context, userID, balanceID, transactionID uint64, soft bool) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := e.lockBalance(ctx, tx, userID, balanceID)
	if err != nil {
		return err
	}
	old, err := e.transactions.GetTx(ctx, tx, userID, b.ID, transactionID)
	if err != nil {
		return err
	}

	if e.reverseOnDelete {
		reverted := b.Total.Sub(old.Amount)
		if old.Type == model.TransactionWithdraw {
			reverted = b.Total.Add(old.Amount)
		}
		if reverted.IsNegative() {
			return ErrInsufficientFunds
		}
		if err := e.balances.SetTotalTx(ctx, tx, b.ID, reverted); err != nil {
			return err
		}
	}

	if soft {
		err = e.transactions.SoftDeleteTx(ctx, tx, old.ID)
	} else {
		err = e.transactions.HardDeleteTx(ctx, tx, old.ID)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// CreatePayment debits the travel's fare from the user's balance and
// records the payment with the fare snapshotted.
func (e *Engine) CreatePayment(ctx context.Context, userID, travelID uint64) (model.Payment, model.Balance, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	defer tx.Rollback()

	b, err := e.lockBalance(ctx, tx, userID, 0)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	travel, err := e.travels.GetByIDTx(ctx, tx, travelID)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}

	newTotal := b.Total.Sub(travel.Total)
	if newTotal.IsNegative() {
		return model.Payment{}, model.Balance{}, ErrInsufficientFunds
	}

	if err := e.balances.SetTotalTx(ctx, tx, b.ID, newTotal); err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	p, err := e.payments.CreateTx(ctx, tx, userID, travel.ID, travel.Total)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	refreshed, err := e.balances.GetTx(ctx, tx, b.ID)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	return p, refreshed, nil
}

// UpdatePayment retargets a payment to another travel: the old fare is
// refunded and the new fare debited as one committed step, so the
// balance changes by exactly oldFare - newFare and no intermediate state
// is ever visible.
func (e *Engine) UpdatePayment(ctx context.Context, userID, paymentID, newTravelID uint64) (model.Payment, model.Balance, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	defer tx.Rollback()

	b, err := e.lockBalance(ctx, tx, userID, 0)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	p, err := e.payments.GetTx(ctx, tx, userID, paymentID)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	previous, err := e.travels.GetByIDTx(ctx, tx, p.TravelID)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	next, err := e.travels.GetByIDTx(ctx, tx, newTravelID)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}

	reverted := b.Total.Add(previous.Total)
	newTotal := reverted.Sub(next.Total)
	if newTotal.IsNegative() {
		return model.Payment{}, model.Balance{}, ErrInsufficientFunds
	}

	if err := e.balances.SetTotalTx(ctx, tx, b.ID, newTotal); err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	updated, err := e.payments.UpdateTravelTx(ctx, tx, p.ID, next.ID, next.Total)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	refreshed, err := e.balances.GetTx(ctx, tx, b.ID)
	if err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Payment{}, model.Balance{}, err
	}
	return updated, refreshed, nil
}

// DeletePayment removes (hard) or flags (soft) a payment. As with
// transactions, the fare is refunded only under ReverseOnDelete.
func (e *Engine) DeletePayment(ctx context.Context, userID, paymentID uint64, soft bool) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := e.lockBalance(ctx, tx, userID, 0)
	if err != nil {
		return err
	}
	p, err := e.payments.GetTx(ctx, tx, userID, paymentID)
	if err != nil {
		return err
	}

	if e.reverseOnDelete {
		if err := e.balances.SetTotalTx(ctx, tx, b.ID, b.Total.Add(p.Amount)); err != nil {
			return err
		}
	}

	if soft {
		err = e.payments.SoftDeleteTx(ctx, tx, p.ID)
	} else {
		err = e.payments.HardDeleteTx(ctx, tx, p.ID)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}
