package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-fare-settlement/internal/auth"
	"github.com/iliyamo/train-fare-settlement/internal/ledger"
	"github.com/iliyamo/train-fare-settlement/internal/repository"
)

// principal reads the identity the JWT middleware stored in the context.
func principal(c echo.Context) (auth.Principal, error) {
	id, ok := c.Get("user_id").(uint64)
	if !ok {
		return auth.Principal{}, errors.New("missing user_id in context")
	}
	role, _ := c.Get("role").(string)
	return auth.Principal{ID: id, Role: role}, nil
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// reqCtx bounds database work done on behalf of a request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// writeError translates domain errors to HTTP responses. Anything not
// recognized is a 500 with a generic body; the real cause stays out of
// the response.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrPositionTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "position already taken on this train"})
	case errors.Is(err, ledger.ErrInvalidAmount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be greater than zero"})
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total balance not sufficient"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
