package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
	"github.com/buberdinner/dinner-marketplace/internal/reservation"
)

// ReservationHandler serves the reservation API.
type ReservationHandler struct {
	svc *reservation.Service
}

// NewReservationHandler builds the handler.
func NewReservationHandler(svc *reservation.Service) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

type reservationResponse struct {
	ID              string    `json:"id"`
	DinnerID        int64     `json:"dinner_id"`
	GuestID         int64     `json:"guest_id"`
	ReservationDate time.Time `json:"reservation_date"`
}

func toReservationResponse(r *reservation.Reservation) reservationResponse {
	return reservationResponse{
		ID:              r.ID,
		DinnerID:        r.DinnerID,
		GuestID:         r.GuestID,
		ReservationDate: r.ReservationDate,
	}
}

func (h *ReservationHandler) Create(c echo.Context) error {
	var req struct {
		DinnerID int64 `json:"dinner_id"`
		GuestID  int64 `json:"guest_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.DinnerID <= 0 || req.GuestID <= 0 {
		return writeError(c, apperr.New(apperr.CodeInvalid, "dinner_id and guest_id must be positive"))
	}
	r, err := h.svc.Create(c.Request().Context(), req.DinnerID, req.GuestID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

func (h *ReservationHandler) Cancel(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return writeError(c, apperr.New(apperr.CodeInvalid, "reservation id is required"))
	}
	if err := h.svc.Cancel(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReservationHandler) ByGuest(c echo.Context) error {
	guestID, err := pathID(c, "guestId")
	if err != nil {
		return writeError(c, err)
	}
	reservations, err := h.svc.ByGuest(c.Request().Context(), guestID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]reservationResponse, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, toReservationResponse(r))
	}
	return c.JSON(http.StatusOK, out)
}

// GuestsByDinner is the synchronous lookup the dinner service calls when a
// dinner starts. The ids come from live reservation rows.
func (h *ReservationHandler) GuestsByDinner(c echo.Context) error {
	dinnerID, err := pathID(c, "dinnerId")
	if err != nil {
		return writeError(c, err)
	}
	ids, err := h.svc.GuestIDsByDinner(c.Request().Context(), dinnerID)
	if err != nil {
		return writeError(c, err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return c.JSON(http.StatusOK, echo.Map{"guest_ids": ids})
}
