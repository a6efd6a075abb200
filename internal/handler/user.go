package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
	"github.com/buberdinner/dinner-marketplace/internal/user"
)

// UserHandler serves registration, login and the account lookups other
// services depend on.
type UserHandler struct {
	svc *user.Service
}

// NewUserHandler builds the handler.
func NewUserHandler(svc *user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

type authResponse struct {
	UserID   int64     `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	Token    string    `json:"token"`
	TokenExp time.Time `json:"token_exp"`
}

func toAuthResponse(res *user.AuthResult) authResponse {
	return authResponse{
		UserID:   res.User.ID,
		Name:     res.User.Name,
		Email:    res.User.Email,
		Role:     string(res.User.Role),
		Token:    res.Token.Token,
		TokenExp: res.Token.Exp,
	}
}

func (h *UserHandler) Register(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	role, ok := user.ParseRole(req.Role)
	if !ok {
		return writeError(c, apperr.Newf(apperr.CodeInvalid, "unknown role %q", req.Role))
	}
	res, err := h.svc.Register(c.Request().Context(), req.Name, req.Email, req.Password, role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toAuthResponse(res))
}

func (h *UserHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResponse(res))
}

// Exists answers the account-existence probe.
func (h *UserHandler) Exists(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ok, err := h.svc.Exists(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"exists": ok})
}

// IsHost answers the host check the dinner service makes before booking.
func (h *UserHandler) IsHost(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ok, err := h.svc.IsHost(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"is_host": ok})
}
