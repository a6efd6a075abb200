package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/buberdinner/dinner-marketplace/internal/dinner"
)

// DinnerHandler serves the dinner lifecycle API.
type DinnerHandler struct {
	svc     *dinner.Service
	reviews *dinner.ReviewService
}

// NewDinnerHandler builds the handler.
func NewDinnerHandler(svc *dinner.Service, reviews *dinner.ReviewService) *DinnerHandler {
	return &DinnerHandler{svc: svc, reviews: reviews}
}

type dinnerRequest struct {
	HostID        int64     `json:"host_id"`
	MenuID        int64     `json:"menu_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Address       string    `json:"address"`
	CuisineType   string    `json:"cuisine_type"`
	MaxGuestCount int       `json:"max_guest_count"`
	ImageURL      string    `json:"image_url"`
}

func (r dinnerRequest) input() dinner.CreateInput {
	return dinner.CreateInput{
		HostID:        r.HostID,
		MenuID:        r.MenuID,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Address:       r.Address,
		CuisineType:   r.CuisineType,
		MaxGuestCount: r.MaxGuestCount,
		ImageURL:      r.ImageURL,
	}
}

type dinnerResponse struct {
	ID            int64     `json:"id"`
	HostID        int64     `json:"host_id"`
	MenuID        int64     `json:"menu_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Address       string    `json:"address"`
	CuisineType   string    `json:"cuisine_type"`
	MaxGuestCount int       `json:"max_guest_count"`
	ImageURL      string    `json:"image_url,omitempty"`
	Status        string    `json:"status"`
	MeanRating    *float64  `json:"mean_rating,omitempty"`
}

func toDinnerResponse(d *dinner.Dinner) dinnerResponse {
	return dinnerResponse{
		ID:            d.ID,
		HostID:        d.HostID,
		MenuID:        d.MenuID,
		Name:          d.Name,
		Description:   d.Description,
		Price:         d.Price,
		StartTime:     d.TimeRange.Start,
		EndTime:       d.TimeRange.End,
		Address:       d.Address.Format(),
		CuisineType:   d.CuisineType,
		MaxGuestCount: d.MaxGuestCount,
		ImageURL:      d.ImageURL,
		Status:        string(d.Status),
	}
}

func (h *DinnerHandler) Create(c echo.Context) error {
	var req dinnerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	d, err := h.svc.Create(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toDinnerResponse(d))
}

func (h *DinnerHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req dinnerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	d, err := h.svc.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toDinnerResponse(d))
}

func (h *DinnerHandler) ByID(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	d, err := h.svc.ByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	resp := toDinnerResponse(d)
	if h.reviews != nil {
		// Best effort; the dinner itself is the payload.
		if mean, ok, err := h.reviews.MeanRating(c.Request().Context(), id); err == nil && ok {
			resp.MeanRating = &mean
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *DinnerHandler) All(c echo.Context) error {
	dinners, err := h.svc.All(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dinnerResponse, 0, len(dinners))
	for _, d := range dinners {
		out = append(out, toDinnerResponse(d))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DinnerHandler) ByHost(c echo.Context) error {
	hostID, err := pathID(c, "hostId")
	if err != nil {
		return writeError(c, err)
	}
	dinners, err := h.svc.ByHost(c.Request().Context(), hostID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dinnerResponse, 0, len(dinners))
	for _, d := range dinners {
		out = append(out, toDinnerResponse(d))
	}
	return c.JSON(http.StatusOK, out)
}

type rescheduleRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (h *DinnerHandler) Reschedule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.svc.Reschedule(c.Request().Context(), id, req.StartTime, req.EndTime); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DinnerHandler) Start(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Start(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DinnerHandler) Complete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Complete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DinnerHandler) StartAllInMenu(c echo.Context) error {
	menuID, err := pathID(c, "menuId")
	if err != nil {
		return writeError(c, err)
	}
	started, err := h.svc.StartAllInMenu(c.Request().Context(), menuID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"started": started})
}

type reviewResponse struct {
	ID        int64     `json:"id"`
	DinnerID  int64     `json:"dinner_id"`
	GuestID   int64     `json:"guest_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toReviewResponse(r *dinner.Review) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		DinnerID:  r.DinnerID,
		GuestID:   r.GuestID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func (h *DinnerHandler) AddReview(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req struct {
		GuestID int64  `json:"guest_id"`
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	rv, err := h.reviews.Add(c.Request().Context(), id, req.GuestID, req.Rating, req.Comment)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toReviewResponse(rv))
}

func (h *DinnerHandler) ReviewsByDinner(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	reviews, err := h.reviews.ByDinner(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]reviewResponse, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, toReviewResponse(r))
	}
	return c.JSON(http.StatusOK, out)
}
