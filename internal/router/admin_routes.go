package router

import (
	"github.com/labstack/echo/v4"

	"github.com/arvelin/class-booking/internal/handler"
	"github.com/arvelin/class-booking/internal/middleware"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1. All routes
// require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, classes *handler.AdminClassHandler, regs *handler.AdminRegistrationHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	// ---- Class templates ----
	g.POST("/admin/templates", classes.CreateTemplate)
	g.GET("/admin/templates", classes.ListTemplates)
	g.PUT("/admin/templates/:id", classes.UpdateTemplate)
	g.PATCH("/admin/templates/:id", classes.UpdateTemplate)
	g.DELETE("/admin/templates/:id", classes.DeleteTemplate)

	// ---- Scheduled classes ----
	g.POST("/admin/classes", classes.CreateClass)
	g.PATCH("/admin/classes/:id/status", classes.UpdateClassStatus)
	g.DELETE("/admin/classes/:id", classes.DeleteClass)

	// ---- Registrations ----
	g.GET("/classes/:id/registrations", regs.Roster)
	g.DELETE("/registrations/:id", regs.Delete)
	g.PATCH("/registrations/:id/verify-payment", regs.VerifyPayment)
	g.PATCH("/registrations/:id/attended", regs.MarkAttended)

	// ---- Maintenance ----
	g.POST("/classes/fix-counters", regs.FixCounters)
}
