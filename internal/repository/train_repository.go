package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/train-fare-settlement/internal/model"
)

// TrainRepo provides data access to the `trains` table.
type TrainRepo struct{ DB *sql.DB }

func NewTrainRepo(db *sql.DB) *TrainRepo { return &TrainRepo{DB: db} }

const trainColumns = "id,name,is_deleted,created_at,updated_at"

func scanTrain(row interface{ Scan(...interface{}) error }) (model.Train, error) {
	var t model.Train
	err := row.Scan(&t.ID, &t.Name, &t.IsDeleted, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// Create inserts a train and returns the stored row.
func (r *TrainRepo) Create(ctx context.Context, name string) (model.Train, error) {
	res, err := r.DB.ExecContext(ctx, "INSERT INTO trains (name) VALUES (?)", name)
	if err != nil {
		return model.Train{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Train{}, err
	}
	return scanTrain(r.DB.QueryRowContext(ctx,
		"SELECT "+trainColumns+" FROM trains WHERE id=?", id))
}

// GetByID fetches an active train.
func (r *TrainRepo) GetByID(ctx context.Context, id uint64) (model.Train, error) {
	t, err := scanTrain(r.DB.QueryRowContext(ctx,
		"SELECT "+trainColumns+" FROM trains WHERE id=? AND is_deleted=0 LIMIT 1", id))
	if err == sql.ErrNoRows {
		return t, notFound("train", id)
	}
	return t, err
}

// List returns all active trains ordered by id.
func (r *TrainRepo) List(ctx context.Context) ([]model.Train, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+trainColumns+" FROM trains WHERE is_deleted=0 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Train, 0)
	for rows.Next() {
		t, err := scanTrain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Rename overwrites the train's name.
func (r *TrainRepo) Rename(ctx context.Context, id uint64, name string) (model.Train, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE trains SET name=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND is_deleted=0", name, id)
	if err != nil {
		return model.Train{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Train{}, err
	} else if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return model.Train{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// SoftDelete flags a train as deleted. Callers cascade the same mode to
// the train's stations and travels.
func (r *TrainRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE trains SET is_deleted=1, updated_at=UTC_TIMESTAMP() WHERE id=? AND is_deleted=0", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("train", id)
	}
	return nil
}

// HardDelete removes the train row.
func (r *TrainRepo) HardDelete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM trains WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("train", id)
	}
	return nil
}
