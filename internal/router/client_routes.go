package router

import (
	"github.com/labstack/echo/v4"

	"github.com/arvelin/class-booking/internal/handler"
	"github.com/arvelin/class-booking/internal/middleware"
)

// RegisterClient registers the booking endpoints under /v1. All routes
// require a valid JWT; admins are allowed through as well so staff can
// book on their own account and cancel on behalf of clients.
func RegisterClient(e *echo.Echo, h *handler.RegistrationHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CLIENT", "ADMIN"),
	)

	// Two-step flow: reserve a hold, then confirm it.
	g.POST("/registrations/reserve", h.Reserve)
	g.PATCH("/registrations/:id/confirm", h.Confirm)
	g.PATCH("/registrations/:id/cancel", h.Cancel)
	g.GET("/my-registrations", h.My)

	// One-step flow kept for existing clients.
	g.POST("/classes/:id/register", h.RegisterDirect)

	g.POST("/classes/:id/waitlist", h.JoinWaitlist)
}
