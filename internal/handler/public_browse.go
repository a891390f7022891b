package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arvelin/class-booking/internal/repository"
)

// PublicHandler serves the unauthenticated browse endpoints. Responses
// are cacheable; the router wraps them with the Redis cache middleware.
type PublicHandler struct {
	Classes   *repository.ClassRepo
	Templates *repository.TemplateRepo
}

func NewPublicHandler(classes *repository.ClassRepo, templates *repository.TemplateRepo) *PublicHandler {
	if classes == nil || templates == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Classes: classes, Templates: templates}
}

// ListClasses handles GET /v1/classes and returns upcoming classes with
// their effective price and remaining seats, soonest first.
func (h *PublicHandler) ListClasses(c echo.Context) error {
	classes, err := h.Classes.ListUpcoming(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"classes": classes})
}

// GetClass handles GET /v1/classes/:id with the full detail of one
// scheduled class, including the template description.
func (h *PublicHandler) GetClass(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	ci, err := h.Classes.GetByID(c.Request().Context(), id)
	if err != nil {
		return jsonError(c, err)
	}
	t, err := h.Templates.GetByID(c.Request().Context(), ci.TemplateID)
	if err != nil {
		return jsonError(c, err)
	}
	seatsAvailable := uint32(0)
	if ci.MaxCapacity > ci.CurrentBookings {
		seatsAvailable = ci.MaxCapacity - ci.CurrentBookings
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":               ci.ID,
		"name":             t.Name,
		"description":      t.Description,
		"starts_at":        ci.StartsAt,
		"duration_minutes": t.DurationMinutes,
		"location":         ci.Location,
		"price_cents":      ci.PriceCents(t.PriceCents),
		"max_capacity":     ci.MaxCapacity,
		"seats_available":  seatsAvailable,
		"status":           ci.Status,
	})
}
