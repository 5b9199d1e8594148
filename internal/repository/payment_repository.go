package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/train-fare-settlement/internal/model"
)

// PaymentRepo provides data access to the `payments` table. Like
// TransactionRepo, the ...Tx methods participate in the ledger engine's
// transaction so the fare debit and the balance write commit together.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

const paymentColumns = "id,user_id,travel_id,amount,is_deleted,created_at,updated_at"

func scanPayment(row interface{ Scan(...interface{}) error }) (model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.UserID, &p.TravelID, &p.Amount,
		&p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateTx inserts a payment within tx and returns the stored row.
// Amount is the fare snapshotted from the travel at creation time.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, travelID uint64, amount decimal.Decimal) (model.Payment, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO payments (user_id, travel_id, amount) VALUES (?,?,?)",
		userID, travelID, amount)
	if err != nil {
		return model.Payment{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Payment{}, err
	}
	return scanPayment(tx.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id=?", id))
}

// GetTx fetches an active payment scoped to its user within tx.
func (r *PaymentRepo) GetTx(ctx context.Context, tx *sql.Tx, userID, id uint64) (model.Payment, error) {
	p, err := scanPayment(tx.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id=? AND user_id=? AND is_deleted=0 LIMIT 1", id, userID))
	if err == sql.ErrNoRows {
		return p, notFound("payment", id)
	}
	return p, err
}

// Get is GetTx outside a transaction, for plain reads.
func (r *PaymentRepo) Get(ctx context.Context, userID, id uint64) (model.Payment, error) {
	p, err := scanPayment(r.DB.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id=? AND user_id=? AND is_deleted=0 LIMIT 1", id, userID))
	if err == sql.ErrNoRows {
		return p, notFound("payment", id)
	}
	return p, err
}

// ListByUser returns all active payments of a user, oldest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Payment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE user_id=? AND is_deleted=0 ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateTravelTx retargets a payment to a different travel within tx,
// storing the new fare snapshot.
func (r *PaymentRepo) UpdateTravelTx(ctx context.Context, tx *sql.Tx, id, travelID uint64, amount decimal.Decimal) (model.Payment, error) {
	_, err := tx.ExecContext(ctx,
		"UPDATE payments SET travel_id=?, amount=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND is_deleted=0",
		travelID, amount, id)
	if err != nil {
		return model.Payment{}, err
	}
	return scanPayment(tx.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id=?", id))
}

// SoftDeleteTx flags a payment as deleted within tx.
func (r *PaymentRepo) SoftDeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE payments SET is_deleted=1, updated_at=UTC_TIMESTAMP() WHERE id=?", id)
	return err
}

// HardDeleteTx removes a payment row within tx.
func (r *PaymentRepo) HardDeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM payments WHERE id=?", id)
	return err
}

// SoftDeleteByUser flags every payment of a user, for the user-delete
// cascade.
func (r *PaymentRepo) SoftDeleteByUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE payments SET is_deleted=1, updated_at=UTC_TIMESTAMP() WHERE user_id=? AND is_deleted=0", userID)
	return err
}

// HardDeleteByUser removes every payment of a user.
func (r *PaymentRepo) HardDeleteByUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM payments WHERE user_id=?", userID)
	return err
}
