// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/rajuswesust/GetMyShow/internal/config"
	"github.com/rajuswesust/GetMyShow/internal/handler"
	"github.com/rajuswesust/GetMyShow/internal/middleware"
)

// RegisterRoutes wires every endpoint of the booking API.  Public routes
// (health check, seat map) require no token; everything that creates or
// mutates state lives under the JWT-protected group, with the token-bucket
// rate limiter applied on top.
func RegisterRoutes(e *echo.Echo, bookings *handler.BookingHandler, shows *handler.ShowHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Guests can browse seat availability before authenticating.
	e.GET("/v1/shows/:id/seats", shows.GetShowSeats)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.NewTokenBucket(rlCfg, rdb))

	auth.POST("/shows/:id/bookings", bookings.CreateBooking)
	auth.POST("/bookings/:reference/confirm", bookings.ConfirmBooking)
	auth.DELETE("/bookings/:reference", bookings.CancelBooking)
	auth.GET("/bookings/:reference", bookings.GetBooking)
	auth.GET("/my-bookings", bookings.ListMyBookings)

	// Scheduling-collaborator hook: seed the seat inventory of a new show.
	auth.POST("/shows/:id/inventory", shows.SeedInventory)
}
