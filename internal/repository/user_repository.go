package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/train-fare-settlement/internal/model"
)

// UserRepo provides data access to the `users` table. Soft-deleted users
// are invisible to every lookup.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,first_name,last_name,role,is_deleted,created_at,updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.IsDeleted, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateTx inserts a user inside an existing transaction and returns the
// generated id. The caller pairs it with BalanceRepo.CreateTx so that the
// account and its seeded balance commit together.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, email, passwordHash, firstName, lastName, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, first_name, last_name, role) VALUES (?,?,?,?,?)",
		email, passwordHash, firstName, lastName, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an active user by normalized email. Used by login,
// so the caller sees sql.ErrNoRows rather than a NotFoundError and can
// answer with a generic invalid-credentials message.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND is_deleted=0 LIMIT 1", email))
}

// GetByID fetches an active user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND is_deleted=0 LIMIT 1", id))
	if err == sql.ErrNoRows {
		return u, notFound("user", id)
	}
	return u, err
}

// List returns all active users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE is_deleted=0 ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserPatch carries the optional fields of a partial user update. Nil
// fields keep their current value. PasswordHash must already be hashed.
type UserPatch struct {
	Email        *string
	PasswordHash *string
	FirstName    *string
	LastName     *string
	Role         *string
}

// Update applies a patch to an active user and bumps updated_at. A full
// (PUT) update simply sets every field of the patch. Returns
// ErrEmailExists on a duplicate email and NotFoundError when the user is
// absent or soft-deleted.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UserPatch) error {
	sets := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	if p.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*p.Email)))
	}
	if p.PasswordHash != nil {
		sets = append(sets, "password_hash=?")
		args = append(args, *p.PasswordHash)
	}
	if p.FirstName != nil {
		sets = append(sets, "first_name=?")
		args = append(args, *p.FirstName)
	}
	if p.LastName != nil {
		sets = append(sets, "last_name=?")
		args = append(args, *p.LastName)
	}
	if p.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, *p.Role)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at=UTC_TIMESTAMP()")
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=? AND is_deleted=0", args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or an update to identical values; re-check existence.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SoftDelete flags a user as deleted. The caller cascades the same mode
// to the balance, transactions and payments owned by the user.
func (r *UserRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_deleted=1, updated_at=UTC_TIMESTAMP() WHERE id=? AND is_deleted=0", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("user", id)
	}
	return nil
}

// HardDelete removes the user row outright.
func (r *UserRepo) HardDelete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("user", id)
	}
	return nil
}
