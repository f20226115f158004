package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajuswesust/GetMyShow/internal/model"
	"github.com/rajuswesust/GetMyShow/internal/repository"
	"github.com/rajuswesust/GetMyShow/internal/service"
)

func writeError(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, writeDomainError(c, err))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestWriteDomainError(t *testing.T) {
	t.Run("unavailable seats carry the seat list", func(t *testing.T) {
		code, body := writeError(t, &service.SeatsUnavailableError{SeatIDs: []uint64{3, 7}})

		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, []any{float64(3), float64(7)}, body["unavailable"])
	})

	t.Run("expired hold is distinguished from a taken seat", func(t *testing.T) {
		code, body := writeError(t, model.ErrLockExpired)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "hold expired", body["error"])

		code, body = writeError(t, model.ErrSeatUnavailable)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "seat unavailable", body["error"])
	})

	t.Run("version conflict tells the client to start over", func(t *testing.T) {
		code, body := writeError(t, model.ErrVersionConflict)

		assert.Equal(t, http.StatusConflict, code)
		msg, ok := body["error"].(string)
		require.True(t, ok)
		assert.Contains(t, msg, "start a new booking")
		assert.NotContains(t, msg, "retry")
	})

	t.Run("precondition failures are bad requests", func(t *testing.T) {
		code, _ := writeError(t, model.ErrCapacityExceeded)
		assert.Equal(t, http.StatusBadRequest, code)

		code, _ = writeError(t, service.ErrNoSeatsRequested)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("missing entities are not found", func(t *testing.T) {
		for _, err := range []error{
			repository.ErrShowNotFound,
			repository.ErrBookingNotFound,
			repository.ErrSeatInventoryNotFound,
		} {
			code, _ := writeError(t, err)
			assert.Equal(t, http.StatusNotFound, code)
		}
	})

	t.Run("unknown errors are internal", func(t *testing.T) {
		code, body := writeError(t, errors.New("driver: bad connection"))

		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "internal error", body["error"])
	})
}
