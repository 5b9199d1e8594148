package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/train-fare-settlement/internal/model"
)

// TransactionRepo provides data access to the `transactions` table. The
// ...Tx methods run inside the ledger engine's transaction so a ledger
// entry and its balance effect commit together.
type TransactionRepo struct{ DB *sql.DB }

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{DB: db} }

const transactionColumns = "id,user_id,balance_id,type,amount,is_deleted,created_at,updated_at"

func scanTransaction(row interface{ Scan(...interface{}) error }) (model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.BalanceID, &t.Type, &t.Amount,
		&t.IsDeleted, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTx inserts a ledger entry within tx and returns the stored row.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, balanceID uint64, kind string, amount decimal.Decimal) (model.Transaction, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO transactions (user_id, balance_id, type, amount) VALUES (?,?,?,?)",
		userID, balanceID, kind, amount)
	if err != nil {
		return model.Transaction{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Transaction{}, err
	}
	return scanTransaction(tx.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id=?", id))
}

// GetTx fetches an active transaction scoped to its user and balance
// within tx. Soft-deleted entries do not exist for consistency purposes.
func (r *TransactionRepo) GetTx(ctx context.Context, tx *sql.Tx, userID, balanceID, id uint64) (model.Transaction, error) {
	t, err := scanTransaction(tx.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id=? AND user_id=? AND balance_id=? AND is_deleted=0 LIMIT 1",
		id, userID, balanceID))
	if err == sql.ErrNoRows {
		return t, notFound("transaction", id)
	}
	return t, err
}

// Get is GetTx outside a transaction, for plain reads.
func (r *TransactionRepo) Get(ctx context.Context, userID, balanceID, id uint64) (model.Transaction, error) {
	t, err := scanTransaction(r.DB.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id=? AND user_id=? AND balance_id=? AND is_deleted=0 LIMIT 1",
		id, userID, balanceID))
	if err == sql.ErrNoRows {
		return t, notFound("transaction", id)
	}
	return t, err
}

// ListByBalance returns all active entries of a balance, oldest first.
func (r *TransactionRepo) ListByBalance(ctx context.Context, userID, balanceID uint64) ([]model.Transaction, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id=? AND balance_id=? AND is_deleted=0 ORDER BY id",
		userID, balanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTx overwrites type and amount of an entry within tx and returns
// the stored row. The ledger engine has already merged partial updates
// into effective values and adjusted the balance accordingly.
func (r *TransactionRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id uint64, kind string, amount decimal.Decimal) (model.Transaction, error) {
	_, err := tx.ExecContext(ctx,
		"UPDATE transactions SET type=?, amount=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND is_deleted=0",
		kind, amount, id)
	if err != nil {
		return model.Transaction{}, err
	}
	return scanTransaction(tx.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id=?", id))
}

// SoftDeleteTx flags an entry as deleted within tx.
func (r *TransactionRepo) SoftDeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE transactions SET is_deleted=1, updated_at=UTC_TIMESTAMP() WHERE id=?", id)
	return err
}

// HardDeleteTx removes an entry row within tx.
func (r *TransactionRepo) HardDeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE id=?", id)
	return err
}

// SoftDeleteByUser flags every entry of a user, for the user-delete
// cascade.
func (r *TransactionRepo) SoftDeleteByUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE transactions SET is_deleted=1, updated_at=UTC_TIMESTAMP() WHERE user_id=? AND is_deleted=0", userID)
	return err
}

// HardDeleteByUser removes every entry of a user.
func (r *TransactionRepo) HardDeleteByUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM transactions WHERE user_id=?", userID)
	return err
}
