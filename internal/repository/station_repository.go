package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/train-fare-settlement/internal/model"
)

// StationRepo provides data access to the `stations` table. A unique
// index on (train_id, position) keeps the ordering coordinate unambiguous
// per train; violations surface as ErrPositionTaken.
type StationRepo struct{ DB *sql.DB }

func NewStationRepo(db *sql.DB) *StationRepo { return &StationRepo{DB: db} }

const stationColumns = "id,train_id,name,position,is_deleted,created_at,updated_at"

func scanStation(row interface{ Scan(...interface{}) error }) (model.Station, error) {
	var s model.Station
	err := row.Scan(&s.ID, &s.TrainID, &s.Name, &s.Position, &s.IsDeleted, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a station on a train and returns the stored row.
func (r *StationRepo) Create(ctx context.Context, trainID uint64, name string, position int64) (model.Station, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO stations (train_id, name, position) VALUES (?,?,?)", trainID, name, position)
	if err != nil {
		if isDuplicate(err) {
			return model.Station{}, ErrPositionTaken
		}
		return model.Station{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Station{}, err
	}
	return scanStation(r.DB.QueryRowContext(ctx,
		"SELECT "+stationColumns+" FROM stations WHERE id=?", id))
}

// Get fetches an active station scoped to its train.
func (r *StationRepo) Get(ctx context.Context, trainID, id uint64) (model.Station, error) {
	s, err := scanStation(r.DB.QueryRowContext(ctx,
		"SELECT "+stationColumns+" FROM stations WHERE id=? AND train_id=? AND is_deleted=0 LIMIT 1", id, trainID))
	if err == sql.ErrNoRows {
		return s, notFound("station", id)
	}
	return s, err
}

// ListByTrain returns all active stations of a train in route order.
func (r *StationRepo) ListByTrain(ctx context.Context, trainID uint64) ([]model.Station, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+stationColumns+" FROM stations WHERE train_id=? AND is_deleted=0 ORDER BY position", trainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Station, 0)
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StationPatch carries the optional fields of a partial station update.
type StationPatch struct {
	Name     *string
	Position *int64
}

// Update applies a patch to an active station and bumps updated_at.
func (r *StationRepo) Update(ctx context.Context, trainID, id uint64, p StationPatch) (model.Station, error) {
	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *p.Name)
	}
	if p.Position != nil {
		sets = append(sets, "position=?")
		args = append(args, *p.Position)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at=UTC_TIMESTAMP()")
		args = append(args, id, trainID)
		_, err := r.DB.ExecContext(ctx,
			"UPDATE stations SET "+strings.Join(sets, ",")+" WHERE id=? AND train_id=? AND is_deleted=0", args...)
		if err != nil {
			if isDuplicate(err) {
				return model.Station{}, ErrPositionTaken
			}
			return model.Station{}, err
		}
	}
	return r.Get(ctx, trainID, id)
}

// SoftDelete flags a station as deleted.
func (r *StationRepo) SoftDelete(ctx context.Context, trainID, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE stations SET is_deleted=1, updated_at=UTC_TIMESTAMP() WHERE id=? AND train_id=? AND is_deleted=0", id, trainID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("station", id)
	}
	return nil
}

// HardDelete removes a station row.
func (r *StationRepo) HardDelete(ctx context.Context, trainID, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM stations WHERE id=? AND train_id=?", id, trainID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("station", id)
	}
	return nil
}

// SoftDeleteByTrain flags every station of a train, for the train-delete
// cascade.
func (r *StationRepo) SoftDeleteByTrain(ctx context.Context, trainID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE stations SET is_deleted=1, updated_at=UTC_TIMESTAMP() WHERE train_id=? AND is_deleted=0", trainID)
	return err
}

// HardDeleteByTrain removes every station of a train.
func (r *StationRepo) HardDeleteByTrain(ctx context.Context, trainID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM stations WHERE train_id=?", trainID)
	return err
}
