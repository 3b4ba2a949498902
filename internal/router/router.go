package router // package router registers the HTTP routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/roommate-booking/internal/handler"
	"github.com/iliyamo/roommate-booking/internal/middleware"
	"github.com/iliyamo/roommate-booking/internal/model"
)

// Deps carries everything the routes need.
type Deps struct {
	JWTSecret  string
	Auth       *handler.AuthHandler
	Bookings   *handler.BookingHandler
	Properties *handler.PropertyHandler
	Health     echo.HandlerFunc
	RateLimit  echo.MiddlewareFunc // applied to booking writes
	Cache      echo.MiddlewareFunc // applied to availability reads
}

// RegisterRoutes mounts health, metrics, auth and the /api surface.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	registerAuth(e, d)
	registerProperties(e, d)
	registerBookings(e, d)
}

func registerAuth(e *echo.Echo, d Deps) {
	g := e.Group("/api/auth")
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)

	e.GET("/api/me", d.Auth.Me, middleware.JWTAuth(d.JWTSecret))
}

func registerProperties(e *echo.Echo, d Deps) {
	g := e.Group("/api/properties", middleware.JWTAuth(d.JWTSecret))
	landlord := middleware.RequireRole(model.RoleLandlord)

	g.POST("", d.Properties.Create, landlord)
	g.POST("/:id/seats", d.Properties.AddSeats, landlord)
	g.GET("/:id/seats", d.Properties.ListSeats)
	g.GET("/:id/availability", d.Properties.Availability, d.Cache)
}

// registerBookings mounts the booking state machine.  Both roles may book;
// who may drive a given transition is decided per booking by the service.
func registerBookings(e *echo.Echo, d Deps) {
	g := e.Group("/api/bookings",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleTenant, model.RoleLandlord),
	)
	g.POST("", d.Bookings.Create, d.RateLimit)
	g.GET("/sent", d.Bookings.ListSent)
	g.GET("/received", d.Bookings.ListReceived)
	g.GET("/:id", d.Bookings.Get)
	g.PATCH("/:id/status", d.Bookings.UpdateStatus, d.RateLimit)
	g.POST("/:id/check-in", d.Bookings.CheckIn, d.RateLimit)
	g.POST("/:id/check-out", d.Bookings.CheckOut, d.RateLimit)
	g.DELETE("/:id", d.Bookings.Delete, d.RateLimit)
}
