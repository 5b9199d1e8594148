package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/train-fare-settlement/internal/model"
)

// TravelRepo provides data access to the `travels` table. The fare is
// computed by the caller (handler via the fare package) and stored as
// travels.total; clients never supply it.
type TravelRepo struct{ DB *sql.DB }

func NewTravelRepo(db *sql.DB) *TravelRepo { return &TravelRepo{DB: db} }

const travelColumns = "id,train_id,departure_id,arrival_id,total,is_deleted,created_at,updated_at"

func scanTravel(row interface{ Scan(...interface{}) error }) (model.Travel, error) {
	var t model.Travel
	err := row.Scan(&t.ID, &t.TrainID, &t.DepartureID, &t.ArrivalID, &t.Total,
		&t.IsDeleted, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// Create inserts a travel with its computed fare and returns the stored
// row.
func (r *TravelRepo) Create(ctx context.Context, trainID, departureID, arrivalID uint64, total decimal.Decimal) (model.Travel, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO travels (train_id, departure_id, arrival_id, total) VALUES (?,?,?,?)",
		trainID, departureID, arrivalID, total)
	if err != nil {
		return model.Travel{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Travel{}, err
	}
	return scanTravel(r.DB.QueryRowContext(ctx,
		"SELECT "+travelColumns+" FROM travels WHERE id=?", id))
}

// Get fetches an active travel scoped to its train.
func (r *TravelRepo) Get(ctx context.Context, trainID, id uint64) (model.Travel, error) {
	t, err := scanTravel(r.DB.QueryRowContext(ctx,
		"SELECT "+travelColumns+" FROM travels WHERE id=? AND train_id=? AND is_deleted=0 LIMIT 1", id, trainID))
	if err == sql.ErrNoRows {
		return t, notFound("travel", id)
	}
	return t, err
}

// GetByID fetches an active travel by id alone. The payment path uses
// this lookup since payments reference travels across trains.
func (r *TravelRepo) GetByID(ctx context.Context, id uint64) (model.Travel, error) {
	t, err := scanTravel(r.DB.QueryRowContext(ctx,
		"SELECT "+travelColumns+" FROM travels WHERE id=? AND is_deleted=0 LIMIT 1", id))
	if err == sql.ErrNoRows {
		return t, notFound("travel", id)
	}
	return t, err
}

// GetByIDTx is GetByID inside the ledger engine's transaction.
func (r *TravelRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Travel, error) {
	t, err := scanTravel(tx.QueryRowContext(ctx,
		"SELECT "+travelColumns+" FROM travels WHERE id=? AND is_deleted=0 LIMIT 1", id))
	if err == sql.ErrNoRows {
		return t, notFound("travel", id)
	}
	return t, err
}

// ListByTrain returns all active travels of a train ordered by id.
func (r *TravelRepo) ListByTrain(ctx context.Context, trainID uint64) ([]model.Travel, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+travelColumns+" FROM travels WHERE train_id=? AND is_deleted=0 ORDER BY id", trainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Travel, 0)
	for rows.Next() {
		t, err := scanTravel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update overwrites endpoints and the recomputed fare of a travel.
func (r *TravelRepo) Update(ctx context.Context, trainID, id, departureID, arrivalID uint64, total decimal.Decimal) (model.Travel, error) {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE travels SET departure_id=?, arrival_id=?, total=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND train_id=? AND is_deleted=0",
		departureID, arrivalID, total, id, trainID)
	if err != nil {
		return model.Travel{}, err
	}
	return r.Get(ctx, trainID, id)
}

// SoftDelete flags a travel as deleted.
func (r *TravelRepo) SoftDelete(ctx context.Context, trainID, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE travels SET is_deleted=1, updated_at=UTC_TIMESTAMP() WHERE id=? AND train_id=? AND is_deleted=0", id, trainID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("travel", id)
	}
	return nil
}

// HardDelete removes a travel row.
func (r *TravelRepo) HardDelete(ctx context.Context, trainID, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM travels WHERE id=? AND train_id=?", id, trainID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("travel", id)
	}
	return nil
}

// SoftDeleteByTrain flags every travel of a train, for the train-delete
// cascade.
func (r *TravelRepo) SoftDeleteByTrain(ctx context.Context, trainID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE travels SET is_deleted=1, updated_at=UTC_TIMESTAMP() WHERE train_id=? AND is_deleted=0", trainID)
	return err
}

// HardDeleteByTrain removes every travel of a train.
func (r *TravelRepo) HardDeleteByTrain(ctx context.Context, trainID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM travels WHERE train_id=?", trainID)
	return err
}
