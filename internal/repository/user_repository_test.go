package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db), mock
}

func userRows(id uint64, email string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "first_name", "last_name", "role", "is_deleted", "created_at", "updated_at"}).
		AddRow(id, email, "$2a$10$hash", "Ada", "Lovelace", "user", false, now, now)
}

func TestUserRepoCreateTx(t *testing.T) {
	t.Run("normalizes the email and returns the new id", func(t *testing.T) {
		repo, mock := newUserRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").
			WithArgs("ada@example.com", "$2a$10$hash", "Ada", "Lovelace", "user").
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectCommit()

		tx, err := repo.DB.Begin()
		require.NoError(t, err)
		id, err := repo.CreateTx(context.Background(), tx, "  Ada@Example.com ", "$2a$10$hash", "Ada", "Lovelace", "user")
		require.NoError(t, err)
		assert.Equal(t, uint64(7), id)
		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email maps to ErrEmailExists", func(t *testing.T) {
		repo, mock := newUserRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").
			WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'ada@example.com' for key 'users.email'"))
		mock.ExpectRollback()

		tx, err := repo.DB.Begin()
		require.NoError(t, err)
		_, err = repo.CreateTx(context.Background(), tx, "ada@example.com", "x", "", "", "user")
		assert.ErrorIs(t, err, ErrEmailExists)
		require.NoError(t, tx.Rollback())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepoGetByID(t *testing.T) {
	t.Run("missing user yields a typed not-found", func(t *testing.T) {
		repo, mock := newUserRepo(t)

		// No rows, so the scan sees sql.ErrNoRows.
		mock.ExpectQuery("FROM users WHERE id=").
			WithArgs(uint64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "first_name", "last_name", "role", "is_deleted", "created_at", "updated_at"}))

		_, err := repo.GetByID(context.Background(), 42)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "user", nf.Entity)
		assert.Equal(t, uint64(42), nf.ID)
		assert.Equal(t, "user with id 42 was not found", err.Error())
	})

	t.Run("found user scans cleanly", func(t *testing.T) {
		repo, mock := newUserRepo(t)

		mock.ExpectQuery("FROM users WHERE id=").
			WithArgs(uint64(7)).
			WillReturnRows(userRows(7, "ada@example.com"))

		u, err := repo.GetByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", u.Email)
		assert.Equal(t, "user", u.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepoUpdate(t *testing.T) {
	t.Run("patch updates only the provided fields", func(t *testing.T) {
		repo, mock := newUserRepo(t)

		first := "Augusta"
		mock.ExpectExec("UPDATE users SET first_name=\\?,updated_at=UTC_TIMESTAMP\\(\\)").
			WithArgs("Augusta", uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), 7, UserPatch{FirstName: &first})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero affected rows on a missing user is not found", func(t *testing.T) {
		repo, mock := newUserRepo(t)

		email := "new@example.com"
		mock.ExpectExec("UPDATE users SET email=").
			WithArgs("new@example.com", uint64(42)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("FROM users WHERE id=").
			WithArgs(uint64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "first_name", "last_name", "role", "is_deleted", "created_at", "updated_at"}))

		err := repo.Update(context.Background(), 42, UserPatch{Email: &email})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
