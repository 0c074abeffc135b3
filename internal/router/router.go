package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/session-booking/internal/config"
	"github.com/iliyamo/session-booking/internal/handler"
	"github.com/iliyamo/session-booking/internal/middleware"
	"github.com/redis/go-redis/v9"
)

// Deps bundles everything the routes need.  The router only wires;
// construction happens in main.
type Deps struct {
	DB           *sql.DB
	Redis        *redis.Client
	JWTSecret    string
	RateLimit    config.RateLimitConfig
	Sessions     *handler.SessionHandler
	Reservations *handler.ReservationHandler
	Sales        *handler.SaleHandler
}

// Register wires all routes onto e.
//
// Booking traffic is identified by requester_id and carries no auth;
// the catalog-mutation and sales-ledger endpoints sit behind an admin
// JWT.  The reservation write path is rate limited per requester.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")

	// Public catalog.
	v1.GET("/sessions", d.Sessions.List)
	v1.GET("/sessions/:id", d.Sessions.Get)
	v1.GET("/sessions/:id/seats", d.Sessions.Seats)

	// Reservation lifecycle.  The limiter throttles the contended
	// write path only; reads stay unthrottled.
	limited := v1.Group("/reservations", middleware.NewTokenBucket(d.RateLimit, d.Redis))
	limited.POST("", d.Reservations.Create)
	limited.POST("/:id/seats", d.Reservations.AddSeats)
	limited.DELETE("/:id", d.Reservations.Cancel)
	v1.GET("/reservations", d.Reservations.List)
	v1.GET("/reservations/:id", d.Reservations.Get)
	v1.GET("/reservations/groups/:group_id", d.Reservations.Group)

	// Sales.
	v1.POST("/sales/confirm", d.Sales.Confirm)
	v1.GET("/sales", d.Sales.List)

	// Operator endpoints.
	admin := v1.Group("", middleware.JWTAuth(d.JWTSecret), middleware.RequireRole("ADMIN"))
	admin.POST("/sessions", d.Sessions.Create)
	admin.PATCH("/sessions/:id", d.Sessions.Update)
	admin.GET("/admin/sales", d.Sales.ListAll)
}
