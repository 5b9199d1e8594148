package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-fare-settlement/internal/model"
)

func paymentCreateCtx(t *testing.T, body, pathUserID string, callerID uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues(pathUserID)
	c.Set("user_id", callerID)
	c.Set("role", role)
	return c, rec
}

// The gates below all reject before the handler touches the engine or
// the database, so a nil-dependency handler is enough.
func TestPaymentCreateGates(t *testing.T) {
	h := &PaymentHandler{}

	t.Run("admins do not create payments", func(t *testing.T) {
		c, rec := paymentCreateCtx(t, `{"travel_id":5}`, "7", 1, model.RoleAdmin)
		require.NoError(t, h.Create(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("a user cannot pay for someone else", func(t *testing.T) {
		// Forbidden regardless of whether user 8 exists.
		c, rec := paymentCreateCtx(t, `{"travel_id":5}`, "8", 7, model.RoleUser)
		require.NoError(t, h.Create(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("travel_id is required", func(t *testing.T) {
		c, rec := paymentCreateCtx(t, `{}`, "7", 7, model.RoleUser)
		require.NoError(t, h.Create(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
