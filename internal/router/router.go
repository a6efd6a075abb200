// Package router wires each service's routes onto an Echo instance. Every
// binary mounts the health probe and its own API group; the Redis-backed
// cache and rate limiter sit on the public dinner read paths.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/buberdinner/dinner-marketplace/internal/handler"
	"github.com/buberdinner/dinner-marketplace/internal/middleware"
	"github.com/buberdinner/dinner-marketplace/internal/user"
)

// New builds an Echo instance with the baseline middleware every service
// shares.
func New() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.GET("/healthz", handler.Health)
	return e
}

// RegisterDinner mounts the dinner lifecycle API. Reads are cached and rate
// limited; mutations require a HOST token.
func RegisterDinner(e *echo.Echo, h *handler.DinnerHandler, rdb *redis.Client, jwtSecret string) {
	g := e.Group("/api/v1/dinners")

	reads := g.Group("")
	reads.Use(middleware.RateLimit(rdb, "dinner", 60, time.Minute))
	reads.Use(middleware.Cache(rdb, "dinner", 30*time.Second))
	reads.GET("", h.All)
	reads.GET("/:id", h.ByID)
	reads.GET("/host/:hostId", h.ByHost)
	reads.GET("/:id/reviews", h.ReviewsByDinner)

	writes := g.Group("")
	writes.Use(middleware.Auth(jwtSecret))
	writes.Use(middleware.RequireRole(string(user.RoleHost)))
	writes.POST("", h.Create)
	writes.PUT("/:id", h.Update)
	writes.POST("/:id/reschedule", h.Reschedule)
	writes.POST("/:id/start", h.Start)
	writes.POST("/:id/complete", h.Complete)

	guestWrites := g.Group("")
	guestWrites.Use(middleware.Auth(jwtSecret))
	guestWrites.POST("/:id/reviews", h.AddReview)

	menus := e.Group("/api/v1/menus")
	menus.Use(middleware.Auth(jwtSecret))
	menus.Use(middleware.RequireRole(string(user.RoleHost)))
	menus.POST("/:menuId/start-all", h.StartAllInMenu)
}

// RegisterReservation mounts the reservation API. The guest-list lookup is
// called service-to-service and stays unauthenticated.
func RegisterReservation(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/api/v1/reservations")
	g.GET("/dinner/:dinnerId/guests", h.GuestsByDinner)

	authed := g.Group("")
	authed.Use(middleware.Auth(jwtSecret))
	authed.POST("", h.Create)
	authed.DELETE("/:id", h.Cancel)
	authed.GET("/guest/:guestId", h.ByGuest)
}

// RegisterNotification mounts the notification API.
func RegisterNotification(e *echo.Echo, h *handler.NotificationHandler, jwtSecret string) {
	g := e.Group("/api/v1/notifications")
	g.Use(middleware.Auth(jwtSecret))
	g.POST("", h.Send)
	g.GET("/user/:userId", h.ByUser)
}

// RegisterUser mounts registration, login and the lookups other services
// call. The lookups are service-to-service and stay unauthenticated.
func RegisterUser(e *echo.Echo, h *handler.UserHandler) {
	auth := e.Group("/api/v1/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)

	users := e.Group("/api/v1/users")
	users.GET("/:id/exists", h.Exists)
	users.GET("/:id/is-host", h.IsHost)
}
