package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/train-fare-settlement/internal/model"
)

// BalanceRepo provides data access to the `balances` table. It is the
// only write path to balances.total; callers compute the final value and
// the ledger engine serializes concurrent writers by taking a row lock
// (GetByUserForUpdateTx) inside a transaction before any arithmetic.
type BalanceRepo struct{ DB *sql.DB }

func NewBalanceRepo(db *sql.DB) *BalanceRepo { return &BalanceRepo{DB: db} }

const balanceColumns = "id,user_id,total,is_deleted,created_at,updated_at"

func scanBalance(row interface{ Scan(...interface{}) error }) (model.Balance, error) {
	var b model.Balance
	err := row.Scan(&b.ID, &b.UserID, &b.Total, &b.IsDeleted, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CreateTx inserts the seeded zero balance for a freshly created user.
// It runs inside the registration transaction so the account and its
// balance commit atomically.
func (r *BalanceRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID uint64) (model.Balance, error) {
	res, err := tx.ExecContext(ctx, "INSERT INTO balances (user_id, total) VALUES (?, 0)", userID)
	if err != nil {
		return model.Balance{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Balance{}, err
	}
	return scanBalance(tx.QueryRowContext(ctx,
		"SELECT "+balanceColumns+" FROM balances WHERE id=?", id))
}

// GetByUser fetches the active balance of a user.
func (r *BalanceRepo) GetByUser(ctx context.Context, userID uint64) (model.Balance, error) {
	b, err := scanBalance(r.DB.QueryRowContext(ctx,
		"SELECT "+balanceColumns+" FROM balances WHERE user_id=? AND is_deleted=0 LIMIT 1", userID))
	if err == sql.ErrNoRows {
		return b, notFound("balance", userID)
	}
	return b, err
}

// GetByUserForUpdateTx fetches the active balance while holding a row
// lock for the remainder of tx. Every ledger engine write path goes
// through this lock so two concurrent operations on the same user cannot
// interleave their read-compute-write sequences.
func (r *BalanceRepo) GetByUserForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64) (model.Balance, error) {
	b, err := scanBalance(tx.QueryRowContext(ctx,
		"SELECT "+balanceColumns+" FROM balances WHERE user_id=? AND is_deleted=0 LIMIT 1 FOR UPDATE", userID))
	if err == sql.ErrNoRows {
		return b, notFound("balance", userID)
	}
	return b, err
}

// SetTotalTx overwrites total and bumps updated_at within tx. The caller
// must hold the row lock obtained by GetByUserForUpdateTx.
func (r *BalanceRepo) SetTotalTx(ctx context.Context, tx *sql.Tx, balanceID uint64, total decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE balances SET total=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND is_deleted=0", total, balanceID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("balance", balanceID)
	}
	return nil
}

// GetTx re-reads a balance inside tx, after SetTotalTx, so callers can
// return the refreshed record with database timestamps.
func (r *BalanceRepo) GetTx(ctx context.Context, tx *sql.Tx, balanceID uint64) (model.Balance, error) {
	b, err := scanBalance(tx.QueryRowContext(ctx,
		"SELECT "+balanceColumns+" FROM balances WHERE id=? AND is_deleted=0 LIMIT 1", balanceID))
	if err == sql.ErrNoRows {
		return b, notFound("balance", balanceID)
	}
	return b, err
}

// SetTotal overwrites a user's total outside any ledger operation. This
// is the admin PUT path; the handler validates the new total is not
// negative before calling.
func (r *BalanceRepo) SetTotal(ctx context.Context, userID uint64, total decimal.Decimal) (model.Balance, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE balances SET total=?, updated_at=UTC_TIMESTAMP() WHERE user_id=? AND is_deleted=0", total, userID)
	if err != nil {
		return model.Balance{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Balance{}, err
	}
	if n == 0 {
		return model.Balance{}, notFound("balance", userID)
	}
	return r.GetByUser(ctx, userID)
}

// SoftDeleteByUser flags the user's balance as deleted.
func (r *BalanceRepo) SoftDeleteByUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE balances SET is_deleted=1, updated_at=UTC_TIMESTAMP() WHERE user_id=? AND is_deleted=0", userID)
	return err
}

// HardDeleteByUser removes the user's balance row.
func (r *BalanceRepo) HardDeleteByUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM balances WHERE user_id=?", userID)
	return err
}
