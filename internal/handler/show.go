package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rajuswesust/GetMyShow/internal/model"
	"github.com/rajuswesust/GetMyShow/internal/repository"
	"github.com/rajuswesust/GetMyShow/internal/service"
)

// ShowHandler serves the per-show seat map and the inventory seeding hook
// used by the scheduling collaborator when a show is created.
type ShowHandler struct {
	ShowRepo *repository.ShowRepo
	SeatRepo *repository.SeatInventoryRepo
	SeatMap  *service.SeatMapService
}

// NewShowHandler constructs a ShowHandler.  All dependencies must be non-nil.
func NewShowHandler(showRepo *repository.ShowRepo, seatRepo *repository.SeatInventoryRepo, seatMap *service.SeatMapService) *ShowHandler {
	if showRepo == nil || seatRepo == nil || seatMap == nil {
		panic("nil dependency passed to NewShowHandler")
	}
	return &ShowHandler{ShowRepo: showRepo, SeatRepo: seatRepo, SeatMap: seatMap}
}

// GetShowSeats handles GET /v1/shows/:id/seats.  Returns the seat map for a
// show: seat id, label, type, price and current status.  No authentication
// required so guests can browse availability before logging in.
func (h *ShowHandler) GetShowSeats(c echo.Context) error {
	showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	if _, err := h.ShowRepo.GetByID(c.Request().Context(), showID); err != nil {
		return writeDomainError(c, err)
	}
	seats, err := h.SeatMap.GetSeatMap(c.Request().Context(), showID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "seats": seats})
}

// SeedInventory handles POST /v1/shows/:id/inventory.  Called once by the
// scheduling collaborator after creating a show, with the seats and prices
// resolved from the catalog.  Every row starts AVAILABLE.
func (h *ShowHandler) SeedInventory(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	if _, err := h.ShowRepo.GetByID(c.Request().Context(), showID); err != nil {
		return writeDomainError(c, err)
	}
	var body struct {
		Seats []struct {
			SeatID     uint64 `json:"seat_id"`
			Label      string `json:"label"`
			SeatType   string `json:"seat_type"`
			PriceCents uint32 `json:"price_cents"`
		} `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}

	rows := make([]model.SeatInventory, 0, len(body.Seats))
	for _, s := range body.Seats {
		if s.SeatID == 0 || s.Label == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_id and label are required for every seat"})
		}
		seatType := s.SeatType
		if seatType == "" {
			seatType = "STANDARD"
		}
		rows = append(rows, model.SeatInventory{
			ShowID:     showID,
			SeatID:     s.SeatID,
			Label:      s.Label,
			SeatType:   seatType,
			PriceCents: s.PriceCents,
		})
	}
	if err := h.SeatRepo.CreateBulk(c.Request().Context(), rows); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to seed inventory"})
	}
	h.SeatMap.Invalidate(c.Request().Context(), showID)
	return c.JSON(http.StatusCreated, echo.Map{"show_id": showID, "seeded": len(rows)})
}
