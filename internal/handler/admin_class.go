package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arvelin/class-booking/internal/model"
	"github.com/arvelin/class-booking/internal/repository"
)

// AdminClassHandler manages the class catalogue: templates and their
// scheduled instances. Mounted behind the ADMIN role middleware.
type AdminClassHandler struct {
	Templates *repository.TemplateRepo
	Classes   *repository.ClassRepo
}

func NewAdminClassHandler(templates *repository.TemplateRepo, classes *repository.ClassRepo) *AdminClassHandler {
	if templates == nil || classes == nil {
		panic("nil repository passed to NewAdminClassHandler")
	}
	return &AdminClassHandler{Templates: templates, Classes: classes}
}

// ----- DTOs -----

type templateReq struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceCents      uint32 `json:"price_cents"`
	DurationMinutes uint32 `json:"duration_minutes"`
}

type templateResp struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	PriceCents      uint32    `json:"price_cents"`
	DurationMinutes uint32    `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
}

func toTemplateResp(t *model.ClassTemplate) templateResp {
	return templateResp{
		ID:              t.ID,
		Name:            t.Name,
		Description:     t.Description,
		PriceCents:      t.PriceCents,
		DurationMinutes: t.DurationMinutes,
		CreatedAt:       t.CreatedAt,
	}
}

type classInstanceReq struct {
	TemplateID       uint64  `json:"template_id"`
	StartsAt         string  `json:"starts_at"` // RFC 3339
	Location         string  `json:"location"`
	MaxCapacity      uint32  `json:"max_capacity"`
	CustomPriceCents *uint32 `json:"custom_price_cents"`
}

type classInstanceResp struct {
	ID               uint64    `json:"id"`
	TemplateID       uint64    `json:"template_id"`
	StartsAt         time.Time `json:"starts_at"`
	Location         string    `json:"location"`
	MaxCapacity      uint32    `json:"max_capacity"`
	CustomPriceCents *uint32   `json:"custom_price_cents,omitempty"`
	CurrentBookings  uint32    `json:"current_bookings"`
	Status           string    `json:"status"`
}

func toClassInstanceResp(ci *model.ClassInstance) classInstanceResp {
	return classInstanceResp{
		ID:               ci.ID,
		TemplateID:       ci.TemplateID,
		StartsAt:         ci.StartsAt,
		Location:         ci.Location,
		MaxCapacity:      ci.MaxCapacity,
		CustomPriceCents: ci.CustomPriceCents,
		CurrentBookings:  ci.CurrentBookings,
		Status:           ci.Status,
	}
}

// ----- Templates -----

// CreateTemplate handles POST /v1/admin/templates.
func (h *AdminClassHandler) CreateTemplate(c echo.Context) error {
	var req templateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.PriceCents == 0 || req.DurationMinutes == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, price_cents and duration_minutes required"})
	}
	t := &model.ClassTemplate{
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		DurationMinutes: req.DurationMinutes,
	}
	if err := h.Templates.Create(c.Request().Context(), t); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, toTemplateResp(t))
}

// ListTemplates handles GET /v1/admin/templates.
func (h *AdminClassHandler) ListTemplates(c echo.Context) error {
	ts, err := h.Templates.ListAll(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	out := make([]templateResp, 0, len(ts))
	for i := range ts {
		out = append(out, toTemplateResp(&ts[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"templates": out})
}

// UpdateTemplate handles PUT /v1/admin/templates/:id.
func (h *AdminClassHandler) UpdateTemplate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid template id"})
	}
	var req templateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.PriceCents == 0 || req.DurationMinutes == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, price_cents and duration_minutes required"})
	}
	t := &model.ClassTemplate{
		ID:              id,
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		DurationMinutes: req.DurationMinutes,
	}
	if err := h.Templates.Update(c.Request().Context(), t); err != nil {
		return jsonError(c, err)
	}
	fresh, err := h.Templates.GetByID(c.Request().Context(), id)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, toTemplateResp(fresh))
}

// DeleteTemplate handles DELETE /v1/admin/templates/:id.
func (h *AdminClassHandler) DeleteTemplate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid template id"})
	}
	if err := h.Templates.Delete(c.Request().Context(), id); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- Class instances -----

// CreateClass handles POST /v1/admin/classes. The template must exist and
// the start time must be RFC 3339.
func (h *AdminClassHandler) CreateClass(c echo.Context) error {
	var req classInstanceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TemplateID == 0 || req.MaxCapacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "template_id and max_capacity required"})
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC 3339"})
	}
	if _, err := h.Templates.GetByID(c.Request().Context(), req.TemplateID); err != nil {
		return jsonError(c, err)
	}
	ci := &model.ClassInstance{
		TemplateID:       req.TemplateID,
		StartsAt:         startsAt.UTC(),
		Location:         strings.TrimSpace(req.Location),
		MaxCapacity:      req.MaxCapacity,
		CustomPriceCents: req.CustomPriceCents,
	}
	if err := h.Classes.Create(c.Request().Context(), ci); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, toClassInstanceResp(ci))
}

// UpdateClassStatus handles PATCH /v1/admin/classes/:id/status, moving an
// instance between upcoming, completed and cancelled.
func (h *AdminClassHandler) UpdateClassStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := strings.ToLower(strings.TrimSpace(body.Status))
	switch status {
	case model.ClassUpcoming, model.ClassCompleted, model.ClassCancelled:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be upcoming, completed or cancelled"})
	}
	if err := h.Classes.UpdateStatus(c.Request().Context(), id, status); err != nil {
		return jsonError(c, err)
	}
	ci, err := h.Classes.GetByID(c.Request().Context(), id)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, toClassInstanceResp(ci))
}

// DeleteClass handles DELETE /v1/admin/classes/:id.
func (h *AdminClassHandler) DeleteClass(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	if err := h.Classes.Delete(c.Request().Context(), id); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
