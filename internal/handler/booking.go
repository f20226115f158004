package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rajuswesust/GetMyShow/internal/model"
	"github.com/rajuswesust/GetMyShow/internal/service"
)

// BookingHandler exposes the reservation core to the payment and
// presentation collaborators: creating a booking locks seats, confirm and
// cancel are invoked after payment success or failure, and the read
// endpoints serve booking summaries.  JWT authentication has already been
// performed by middleware; methods return 401 when the user ID cannot be
// extracted from the context.
type BookingHandler struct {
	Reservations *service.ReservationService
}

// NewBookingHandler constructs a BookingHandler.  The service must be non-nil.
func NewBookingHandler(reservations *service.ReservationService) *BookingHandler {
	if reservations == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Reservations: reservations}
}

// bookingResponse is the client-facing summary of a booking.  The holder
// token never leaves the server.
type bookingResponse struct {
	Reference          string             `json:"reference"`
	ShowID             uint64             `json:"show_id"`
	Status             string             `json:"status"`
	TotalSeats         uint32             `json:"total_seats"`
	TotalAmountCents   uint32             `json:"total_amount_cents"`
	ExpiresAt          string             `json:"expires_at"`
	ConfirmedAt        *string            `json:"confirmed_at,omitempty"`
	CancelledAt        *string            `json:"cancelled_at,omitempty"`
	CancellationReason *string            `json:"cancellation_reason,omitempty"`
	Seats              []bookingSeatEntry `json:"seats,omitempty"`
}

type bookingSeatEntry struct {
	SeatID     uint64 `json:"seat_id"`
	Label      string `json:"label"`
	PriceCents uint32 `json:"price_cents"`
}

func toBookingResponse(b *model.Booking, seats []model.BookingSeat) bookingResponse {
	resp := bookingResponse{
		Reference:          b.Reference,
		ShowID:             b.ShowID,
		Status:             string(b.Status),
		TotalSeats:         b.TotalSeats,
		TotalAmountCents:   b.TotalAmountCents,
		ExpiresAt:          b.ExpiresAt.UTC().Format(time.RFC3339),
		CancellationReason: b.CancellationReason,
	}
	if b.ConfirmedAt != nil {
		s := b.ConfirmedAt.UTC().Format(time.RFC3339)
		resp.ConfirmedAt = &s
	}
	if b.CancelledAt != nil {
		s := b.CancelledAt.UTC().Format(time.RFC3339)
		resp.CancelledAt = &s
	}
	for _, rec := range seats {
		resp.Seats = append(resp.Seats, bookingSeatEntry{
			SeatID:     rec.SeatID,
			Label:      rec.Label,
			PriceCents: rec.PriceCents,
		})
	}
	return resp
}

// CreateBooking handles POST /v1/shows/:id/bookings.  The body must contain a
// "seat_ids" array.  On success every requested seat is locked and a PENDING
// booking is returned with its expiry; the client has until then to pay.  If
// any seat cannot be claimed the response lists the unavailable seats and no
// lock is left behind.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var body struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	booking, err := h.Reservations.CreateBooking(c.Request().Context(), userID, showID, body.SeatIDs)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResponse(booking, nil))
}

// ConfirmBooking handles POST /v1/bookings/:reference/confirm.  Invoked by
// the payment collaborator after a successful charge.  Confirmation fails
// with 409 when the hold already expired; the client must start over.
func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ref := c.Param("reference")
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	// Ownership check before mutating anything.
	if _, _, err := h.Reservations.GetBooking(c.Request().Context(), ref, userID); err != nil {
		return writeDomainError(c, err)
	}

	booking, err := h.Reservations.ConfirmBooking(c.Request().Context(), ref)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(booking, nil))
}

// CancelBooking handles DELETE /v1/bookings/:reference.  Legal for PENDING
// and CONFIRMED bookings; all seats held by the booking return to AVAILABLE.
// The optional body may carry a cancellation reason.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ref := c.Param("reference")
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&body) // body is optional
	if body.Reason == "" {
		body.Reason = "cancelled by user"
	}
	if _, _, err := h.Reservations.GetBooking(c.Request().Context(), ref, userID); err != nil {
		return writeDomainError(c, err)
	}

	booking, err := h.Reservations.CancelBooking(c.Request().Context(), ref, body.Reason)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(booking, nil))
}

// GetBooking handles GET /v1/bookings/:reference.  Returns the booking
// summary with its seats for the authenticated owner; 404 otherwise.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ref := c.Param("reference")
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	booking, seats, err := h.Reservations.GetBooking(c.Request().Context(), ref, userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": toBookingResponse(booking, seats)})
}

// ListMyBookings handles GET /v1/my-bookings.  Returns the authenticated
// user's booking history, newest first.  Bookings are never deleted, so the
// history includes terminal ones.
func (h *BookingHandler) ListMyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.Reservations.ListUserBookings(c.Request().Context(), userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	items := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		items = append(items, toBookingResponse(&bookings[i], nil))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
