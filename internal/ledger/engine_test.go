package ledger

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-fare-settlement/internal/model"
	"github.com/iliyamo/train-fare-settlement/internal/repository"
)

func newTestEngine(t *testing.T, reverseOnDelete bool) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	e := NewEngine(db,
		repository.NewBalanceRepo(db),
		repository.NewTransactionRepo(db),
		repository.NewTravelRepo(db),
		repository.NewPaymentRepo(db),
		reverseOnDelete)
	return e, mock
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// decimalArg matches a driver argument against a decimal value so tests
// do not depend on the exact string formatting of totals.
type decimalArg struct{ want decimal.Decimal }

func (a decimalArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	d, err := decimal.NewFromString(s)
	return err == nil && d.Equal(a.want)
}

func balanceRows(id, userID uint64, total string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "user_id", "total", "is_deleted", "created_at", "updated_at"}).
		AddRow(id, userID, total, false, now, now)
}

func transactionRows(id, userID, balanceID uint64, kind, amount string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "user_id", "balance_id", "type", "amount", "is_deleted", "created_at", "updated_at"}).
		AddRow(id, userID, balanceID, kind, amount, false, now, now)
}

func travelRows(id, trainID uint64, total string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "train_id", "departure_id", "arrival_id", "total", "is_deleted", "created_at", "updated_at"}).
		AddRow(id, trainID, 1, 2, total, false, now, now)
}

func paymentRows(id, userID, travelID uint64, amount string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "user_id", "travel_id", "amount", "is_deleted", "created_at", "updated_at"}).
		AddRow(id, userID, travelID, amount, false, now, now)
}

func expectLockedBalance(mock sqlmock.Sqlmock, id, userID uint64, total string) {
	mock.ExpectQuery("FROM balances WHERE user_id=(.+) FOR UPDATE").
		WithArgs(userID).
		WillReturnRows(balanceRows(id, userID, total))
}

func expectBalanceWrite(mock sqlmock.Sqlmock, id, userID uint64, newTotal string) {
	mock.ExpectExec("UPDATE balances SET total=").
		WithArgs(decimalArg{want: dec(newTotal)}, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM balances WHERE id=").
		WithArgs(id).
		WillReturnRows(balanceRows(id, userID, newTotal))
}

func TestCreateTransaction(t *testing.T) {
	t.Run("deposit adds to the total", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "100.00")
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(uint64(7), uint64(3), model.TransactionDeposit, decimalArg{want: dec("50")}).
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectQuery("FROM transactions WHERE id=").
			WithArgs(int64(11)).
			WillReturnRows(transactionRows(11, 7, 3, model.TransactionDeposit, "50.00"))
		expectBalanceWrite(mock, 3, 7, "150.00")
		mock.ExpectCommit()

		txn, b, err := e.CreateTransaction(context.Background(), 7, 3, model.TransactionDeposit, dec("50"))
		require.NoError(t, err)
		assert.Equal(t, uint64(11), txn.ID)
		assert.True(t, b.Total.Equal(dec("150")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("withdrawing the exact total leaves zero", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "100.00")
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(uint64(7), uint64(3), model.TransactionWithdraw, decimalArg{want: dec("100")}).
			WillReturnResult(sqlmock.NewResult(12, 1))
		mock.ExpectQuery("FROM transactions WHERE id=").
			WithArgs(int64(12)).
			WillReturnRows(transactionRows(12, 7, 3, model.TransactionWithdraw, "100.00"))
		expectBalanceWrite(mock, 3, 7, "0.00")
		mock.ExpectCommit()

		_, b, err := e.CreateTransaction(context.Background(), 7, 3, model.TransactionWithdraw, dec("100"))
		require.NoError(t, err)
		assert.True(t, b.Total.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("overdraw by a cent fails and writes nothing", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "100.00")
		mock.ExpectRollback()

		_, _, err := e.CreateTransaction(context.Background(), 7, 3, model.TransactionWithdraw, dec("100.01"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero and negative amounts are rejected before any query", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		_, _, err := e.CreateTransaction(context.Background(), 7, 3, model.TransactionDeposit, dec("0"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, _, err = e.CreateTransaction(context.Background(), 7, 3, model.TransactionWithdraw, dec("-5"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mismatched balance id is not found", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "100.00")
		mock.ExpectRollback()

		_, _, err := e.CreateTransaction(context.Background(), 7, 99, model.TransactionDeposit, dec("10"))
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateTransaction(t *testing.T) {
	t.Run("reverts the old effect and applies the new one", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		// Balance 100 includes a deposit of 50; turning it into a
		// withdrawal of 20 should land on 100 - 50 - 20 = 30.
		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "100.00")
		mock.ExpectQuery("FROM transactions WHERE id=(.+) AND user_id=").
			WithArgs(uint64(11), uint64(7), uint64(3)).
			WillReturnRows(transactionRows(11, 7, 3, model.TransactionDeposit, "50.00"))
		mock.ExpectExec("UPDATE transactions SET type=").
			WithArgs(model.TransactionWithdraw, decimalArg{want: dec("20")}, uint64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM transactions WHERE id=").
			WithArgs(uint64(11)).
			WillReturnRows(transactionRows(11, 7, 3, model.TransactionWithdraw, "20.00"))
		expectBalanceWrite(mock, 3, 7, "30.00")
		mock.ExpectCommit()

		kind := model.TransactionWithdraw
		amount := dec("20")
		txn, b, err := e.UpdateTransaction(context.Background(), 7, 3, 11, TransactionPatch{Type: &kind, Amount: &amount})
		require.NoError(t, err)
		assert.Equal(t, model.TransactionWithdraw, txn.Type)
		assert.True(t, b.Total.Equal(dec("30")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("shrinking a spent deposit fails without touching the balance", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		// Balance 100 rests entirely on a deposit of 100; shrinking the
		// deposit to 40 would leave -60.
		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "100.00")
		mock.ExpectQuery("FROM transactions WHERE id=(.+) AND user_id=").
			WithArgs(uint64(11), uint64(7), uint64(3)).
			WillReturnRows(transactionRows(11, 7, 3, model.TransactionDeposit, "100.00"))
		mock.ExpectRollback()

		kind := model.TransactionWithdraw
		amount := dec("40")
		_, _, err := e.UpdateTransaction(context.Background(), 7, 3, 11, TransactionPatch{Type: &kind, Amount: &amount})
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteTransaction(t *testing.T) {
	t.Run("soft delete keeps the balance by default", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "150.00")
		mock.ExpectQuery("FROM transactions WHERE id=(.+) AND user_id=").
			WithArgs(uint64(11), uint64(7), uint64(3)).
			WillReturnRows(transactionRows(11, 7, 3, model.TransactionDeposit, "50.00"))
		mock.ExpectExec("UPDATE transactions SET is_deleted=1").
			WithArgs(uint64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := e.DeleteTransaction(context.Background(), 7, 3, 11, true)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hard delete reverses the entry when configured to", func(t *testing.T) {
		e, mock := newTestEngine(t, true)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "150.00")
		mock.ExpectQuery("FROM transactions WHERE id=(.+) AND user_id=").
			WithArgs(uint64(11), uint64(7), uint64(3)).
			WillReturnRows(transactionRows(11, 7, 3, model.TransactionWithdraw, "25.00"))
		mock.ExpectExec("UPDATE balances SET total=").
			WithArgs(decimalArg{want: dec("175")}, uint64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM transactions WHERE id=").
			WithArgs(uint64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := e.DeleteTransaction(context.Background(), 7, 3, 11, false)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reversing a spent deposit fails", func(t *testing.T) {
		e, mock := newTestEngine(t, true)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "10.00")
		mock.ExpectQuery("FROM transactions WHERE id=(.+) AND user_id=").
			WithArgs(uint64(11), uint64(7), uint64(3)).
			WillReturnRows(transactionRows(11, 7, 3, model.TransactionDeposit, "50.00"))
		mock.ExpectRollback()

		err := e.DeleteTransaction(context.Background(), 7, 3, 11, false)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreatePayment(t *testing.T) {
	t.Run("debits the fare and snapshots it on the payment", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "100.00")
		mock.ExpectQuery("FROM travels WHERE id=").
			WithArgs(uint64(5)).
			WillReturnRows(travelRows(5, 2, "26.00"))
		mock.ExpectExec("UPDATE balances SET total=").
			WithArgs(decimalArg{want: dec("74")}, uint64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO payments").
			WithArgs(uint64(7), uint64(5), decimalArg{want: dec("26")}).
			WillReturnResult(sqlmock.NewResult(21, 1))
		mock.ExpectQuery("FROM payments WHERE id=").
			WithArgs(int64(21)).
			WillReturnRows(paymentRows(21, 7, 5, "26.00"))
		mock.ExpectQuery("FROM balances WHERE id=").
			WithArgs(uint64(3)).
			WillReturnRows(balanceRows(3, 7, "74.00"))
		mock.ExpectCommit()

		p, b, err := e.CreatePayment(context.Background(), 7, 5)
		require.NoError(t, err)
		assert.True(t, p.Amount.Equal(dec("26")))
		assert.True(t, b.Total.Equal(dec("74")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a fare above the total is rejected", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "20.00")
		mock.ExpectQuery("FROM travels WHERE id=").
			WithArgs(uint64(5)).
			WillReturnRows(travelRows(5, 2, "26.00"))
		mock.ExpectRollback()

		_, _, err := e.CreatePayment(context.Background(), 7, 5)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("paying for a missing travel is not found", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "100.00")
		mock.ExpectQuery("FROM travels WHERE id=").
			WithArgs(uint64(404)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "train_id", "departure_id", "arrival_id", "total", "is_deleted", "created_at", "updated_at"}))
		mock.ExpectRollback()

		_, _, err := e.CreatePayment(context.Background(), 7, 404)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdatePayment(t *testing.T) {
	t.Run("changes the balance by exactly the fare difference", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		// Refund 26, debit 16.9: 74 + 26 - 16.9 = 83.1.
		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "74.00")
		mock.ExpectQuery("FROM payments WHERE id=(.+) AND user_id=").
			WithArgs(uint64(21), uint64(7)).
			WillReturnRows(paymentRows(21, 7, 5, "26.00"))
		mock.ExpectQuery("FROM travels WHERE id=").
			WithArgs(uint64(5)).
			WillReturnRows(travelRows(5, 2, "26.00"))
		mock.ExpectQuery("FROM travels WHERE id=").
			WithArgs(uint64(6)).
			WillReturnRows(travelRows(6, 2, "16.90"))
		mock.ExpectExec("UPDATE balances SET total=").
			WithArgs(decimalArg{want: dec("83.1")}, uint64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE payments SET travel_id=").
			WithArgs(uint64(6), decimalArg{want: dec("16.9")}, uint64(21)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM payments WHERE id=").
			WithArgs(uint64(21)).
			WillReturnRows(paymentRows(21, 7, 6, "16.90"))
		mock.ExpectQuery("FROM balances WHERE id=").
			WithArgs(uint64(3)).
			WillReturnRows(balanceRows(3, 7, "83.10"))
		mock.ExpectCommit()

		p, b, err := e.UpdatePayment(context.Background(), 7, 21, 6)
		require.NoError(t, err)
		assert.Equal(t, uint64(6), p.TravelID)
		assert.True(t, p.Amount.Equal(dec("16.9")))
		assert.True(t, b.Total.Equal(dec("83.1")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a dearer travel the balance cannot cover is rejected", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "1.00")
		mock.ExpectQuery("FROM payments WHERE id=(.+) AND user_id=").
			WithArgs(uint64(21), uint64(7)).
			WillReturnRows(paymentRows(21, 7, 5, "13.00"))
		mock.ExpectQuery("FROM travels WHERE id=").
			WithArgs(uint64(5)).
			WillReturnRows(travelRows(5, 2, "13.00"))
		mock.ExpectQuery("FROM travels WHERE id=").
			WithArgs(uint64(6)).
			WillReturnRows(travelRows(6, 2, "39.00"))
		mock.ExpectRollback()

		_, _, err := e.UpdatePayment(context.Background(), 7, 21, 6)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeletePayment(t *testing.T) {
	t.Run("soft delete keeps the balance by default", func(t *testing.T) {
		e, mock := newTestEngine(t, false)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "74.00")
		mock.ExpectQuery("FROM payments WHERE id=(.+) AND user_id=").
			WithArgs(uint64(21), uint64(7)).
			WillReturnRows(paymentRows(21, 7, 5, "26.00"))
		mock.ExpectExec("UPDATE payments SET is_deleted=1").
			WithArgs(uint64(21)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := e.DeletePayment(context.Background(), 7, 21, true)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hard delete refunds the fare when configured to", func(t *testing.T) {
		e, mock := newTestEngine(t, true)

		mock.ExpectBegin()
		expectLockedBalance(mock, 3, 7, "74.00")
		mock.ExpectQuery("FROM payments WHERE id=(.+) AND user_id=").
			WithArgs(uint64(21), uint64(7)).
			WillReturnRows(paymentRows(21, 7, 5, "26.00"))
		mock.ExpectExec("UPDATE balances SET total=").
			WithArgs(decimalArg{want: dec("100")}, uint64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM payments WHERE id=").
			WithArgs(uint64(21)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := e.DeletePayment(context.Background(), 7, 21, false)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// TestSettlementJourney walks one account through a realistic day:
// start at 100, deposit 50, fail to withdraw 200, pay a fare of 30,
// then have the payment retargeted to a dearer travel costing 45.
func TestSettlementJourney(t *testing.T) {
	e, mock := newTestEngine(t, false)
	ctx := context.Background()

	// Deposit 50: 100 -> 150.
	mock.ExpectBegin()
	expectLockedBalance(mock, 3, 7, "100.00")
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(uint64(7), uint64(3), model.TransactionDeposit, decimalArg{want: dec("50")}).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectQuery("FROM transactions WHERE id=").
		WithArgs(int64(31)).
		WillReturnRows(transactionRows(31, 7, 3, model.TransactionDeposit, "50.00"))
	expectBalanceWrite(mock, 3, 7, "150.00")
	mock.ExpectCommit()

	_, b, err := e.CreateTransaction(ctx, 7, 3, model.TransactionDeposit, dec("50"))
	require.NoError(t, err)
	require.True(t, b.Total.Equal(dec("150")))

	// Withdrawing 200 overdraws and rolls back.
	mock.ExpectBegin()
	expectLockedBalance(mock, 3, 7, "150.00")
	mock.ExpectRollback()

	_, _, err = e.CreateTransaction(ctx, 7, 3, model.TransactionWithdraw, dec("200"))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// Paying a fare of 30: 150 -> 120.
	mock.ExpectBegin()
	expectLockedBalance(mock, 3, 7, "150.00")
	mock.ExpectQuery("FROM travels WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(travelRows(5, 2, "30.00"))
	mock.ExpectExec("UPDATE balances SET total=").
		WithArgs(decimalArg{want: dec("120")}, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(uint64(7), uint64(5), decimalArg{want: dec("30")}).
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectQuery("FROM payments WHERE id=").
		WithArgs(int64(41)).
		WillReturnRows(paymentRows(41, 7, 5, "30.00"))
	mock.ExpectQuery("FROM balances WHERE id=").
		WithArgs(uint64(3)).
		WillReturnRows(balanceRows(3, 7, "120.00"))
	mock.ExpectCommit()

	pay, b, err := e.CreatePayment(ctx, 7, 5)
	require.NoError(t, err)
	require.True(t, b.Total.Equal(dec("120")))

	// Retargeting to a fare of 45: refund 30, debit 45, 120 -> 105.
	mock.ExpectBegin()
	expectLockedBalance(mock, 3, 7, "120.00")
	mock.ExpectQuery("FROM payments WHERE id=(.+) AND user_id=").
		WithArgs(pay.ID, uint64(7)).
		WillReturnRows(paymentRows(41, 7, 5, "30.00"))
	mock.ExpectQuery("FROM travels WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(travelRows(5, 2, "30.00"))
	mock.ExpectQuery("FROM travels WHERE id=").
		WithArgs(uint64(6)).
		WillReturnRows(travelRows(6, 2, "45.00"))
	mock.ExpectExec("UPDATE balances SET total=").
		WithArgs(decimalArg{want: dec("105")}, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payments SET travel_id=").
		WithArgs(uint64(6), decimalArg{want: dec("45")}, uint64(41)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM payments WHERE id=").
		WithArgs(uint64(41)).
		WillReturnRows(paymentRows(41, 7, 6, "45.00"))
	mock.ExpectQuery("FROM balances WHERE id=").
		WithArgs(uint64(3)).
		WillReturnRows(balanceRows(3, 7, "105.00"))
	mock.ExpectCommit()

	pay, b, err = e.UpdatePayment(ctx, 7, pay.ID, 6)
	require.NoError(t, err)
	assert.True(t, pay.Amount.Equal(dec("45")))
	assert.True(t, b.Total.Equal(dec("105")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
