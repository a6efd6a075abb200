package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
	"github.com/buberdinner/dinner-marketplace/internal/notification"
)

// NotificationHandler serves the notification API.
type NotificationHandler struct {
	engine *notification.Engine
}

// NewNotificationHandler builds the handler.
func NewNotificationHandler(engine *notification.Engine) *NotificationHandler {
	return &NotificationHandler{engine: engine}
}

type notificationResponse struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	UserType    string    `json:"user_type"`
	Email       string    `json:"email"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Channel     string    `json:"channel"`
	Status      string    `json:"status"`
}

func toNotificationResponse(n notification.Notification) notificationResponse {
	return notificationResponse{
		ID:          n.ID,
		UserID:      n.UserID,
		UserType:    string(n.UserType),
		Email:       n.Email,
		Subject:     n.Subject,
		Description: n.Description,
		CreatedAt:   n.CreatedAt,
		Channel:     string(n.Channel),
		Status:      string(n.Status),
	}
}

// Send creates a notification on demand and attempts immediate delivery.
func (h *NotificationHandler) Send(c echo.Context) error {
	var req struct {
		UserID      int64  `json:"user_id"`
		Email       string `json:"email"`
		Subject     string `json:"subject"`
		Description string `json:"description"`
		Channel     string `json:"channel"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	channel, ok := notification.ParseChannel(req.Channel)
	if !ok {
		return writeError(c, apperr.Newf(apperr.CodeInvalid, "unknown channel %q", req.Channel))
	}
	if req.UserID <= 0 || req.Subject == "" {
		return writeError(c, apperr.New(apperr.CodeInvalid, "user_id and subject are required"))
	}
	n, err := h.engine.SendImmediate(c.Request().Context(), req.UserID, req.Email,
		req.Subject, req.Description, channel)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toNotificationResponse(n))
}

func (h *NotificationHandler) ByUser(c echo.Context) error {
	userID, err := pathID(c, "userId")
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.engine.ByUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]notificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, toNotificationResponse(n))
	}
	return c.JSON(http.StatusOK, out)
}
