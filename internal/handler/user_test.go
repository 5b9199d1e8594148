package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-fare-settlement/internal/config"
	"github.com/iliyamo/train-fare-settlement/internal/model"
	"github.com/iliyamo/train-fare-settlement/internal/repository"
)

func newUserHandler(t *testing.T) (*UserHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h := NewUserHandler(config.Config{}, repository.NewUserRepo(db),
		repository.NewBalanceRepo(db), repository.NewTransactionRepo(db),
		repository.NewPaymentRepo(db), repository.NewTokenRepo(db))
	return h, mock
}

func userUpdateCtx(t *testing.T, body, pathUserID string, callerID uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues(pathUserID)
	c.Set("user_id", callerID)
	c.Set("role", role)
	return c, rec
}

func TestUserUpdateRoleChanges(t *testing.T) {
	t.Run("a plain user cannot change their own role", func(t *testing.T) {
		h, mock := newUserHandler(t)

		c, rec := userUpdateCtx(t, `{"role":"admin"}`, "7", 7, model.RoleUser)
		require.NoError(t, h.Update(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("an admin promotes an account", func(t *testing.T) {
		h, mock := newUserHandler(t)

		now := time.Now().UTC()
		mock.ExpectExec("UPDATE users SET role=").
			WithArgs(model.RoleAdmin, uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM users WHERE id=").
			WithArgs(uint64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "first_name", "last_name", "role", "is_deleted", "created_at", "updated_at"}).
				AddRow(7, "eve@example.com", "x", "Eve", "Lowe", model.RoleAdmin, false, now, now))

		c, rec := userUpdateCtx(t, `{"role":"admin"}`, "7", 1, model.RoleAdmin)
		require.NoError(t, h.Update(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"role":"admin"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown roles are rejected", func(t *testing.T) {
		h, mock := newUserHandler(t)

		c, rec := userUpdateCtx(t, `{"role":"owner"}`, "7", 1, model.RoleAdmin)
		require.NoError(t, h.Update(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
