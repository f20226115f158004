package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rajuswesust/GetMyShow/internal/model"
	"github.com/rajuswesust/GetMyShow/internal/repository"
	"github.com/rajuswesust/GetMyShow/internal/service"
)

// getUserID extracts the authenticated user's ID from the request context,
// tolerating the numeric types a decoded JWT claim may arrive as.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// writeDomainError translates core errors into HTTP responses.  Seat-level
// failures carry the list of seats that could not be claimed so clients can
// offer alternatives; expired holds are distinguished from taken seats.
func writeDomainError(c echo.Context, err error) error {
	var unavailable *service.SeatsUnavailableError
	switch {
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "some seats are unavailable",
			"unavailable": unavailable.SeatIDs,
		})
	case errors.Is(err, model.ErrLockExpired):
		return c.JSON(http.StatusConflict, echo.Map{"error": "hold expired"})
	case errors.Is(err, model.ErrSeatUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat unavailable"})
	case errors.Is(err, model.ErrInvalidStateTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "operation not allowed in current state"})
	case errors.Is(err, model.ErrVersionConflict):
		// A version conflict surfaced here already exhausted the internal
		// retries; the client must start a fresh booking, not repeat the call.
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking lost a concurrent update, start a new booking"})
	case errors.Is(err, model.ErrShowNotBookable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "show not bookable"})
	case errors.Is(err, model.ErrCapacityExceeded):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "too many seats requested"})
	case errors.Is(err, service.ErrNoSeatsRequested):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	case errors.Is(err, repository.ErrShowNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrSeatInventoryNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
