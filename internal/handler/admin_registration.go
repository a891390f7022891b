package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arvelin/class-booking/internal/service"
)

// AdminRegistrationHandler covers the staff-side registration operations:
// class rosters, hard deletes, payment verification, attendance and the
// counter reconciliation job. Routes are mounted behind the ADMIN role
// middleware; the service re-checks the flag on every mutation anyway.
type AdminRegistrationHandler struct {
	Svc *service.RegistrationService
}

func NewAdminRegistrationHandler(svc *service.RegistrationService) *AdminRegistrationHandler {
	if svc == nil {
		panic("nil service passed to NewAdminRegistrationHandler")
	}
	return &AdminRegistrationHandler{Svc: svc}
}

// Roster handles GET /v1/classes/:id/registrations. Entries come back in
// creation order with the client's email attached.
func (h *AdminRegistrationHandler) Roster(c echo.Context) error {
	classID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	rows, err := h.Svc.RegistrationsForClass(c.Request().Context(), classID)
	if err != nil {
		return jsonError(c, err)
	}
	type rosterEntry struct {
		registrationResp
		ClientEmail string `json:"client_email"`
	}
	out := make([]rosterEntry, 0, len(rows))
	for i := range rows {
		out = append(out, rosterEntry{
			registrationResp: toRegistrationResp(&rows[i].Registration),
			ClientEmail:      rows[i].ClientEmail,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"class_id": classID, "registrations": out})
}

// Delete handles DELETE /v1/registrations/:id. The registration row is
// removed outright and its seat released if it was still live.
func (h *AdminRegistrationHandler) Delete(c echo.Context) error {
	regID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	if err := h.Svc.AdminDeleteRegistration(c.Request().Context(), regID, isAdmin(c)); err != nil {
		return jsonError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// FixCounters handles POST /v1/classes/fix-counters. It recomputes every
// booking counter from confirmed registrations and reports what changed.
func (h *AdminRegistrationHandler) FixCounters(c echo.Context) error {
	fixed, err := h.Svc.ReconcileCounters(c.Request().Context())
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"repaired": len(fixed),
		"fixes":    fixed,
	})
}

// VerifyPayment handles PATCH /v1/registrations/:id/verify-payment,
// recording that the transfer showed up on the bank statement.
func (h *AdminRegistrationHandler) VerifyPayment(c echo.Context) error {
	regID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	reg, err := h.Svc.VerifyPayment(c.Request().Context(), regID, isAdmin(c))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"registration": toRegistrationResp(reg)})
}

// MarkAttended handles PATCH /v1/registrations/:id/attended.
func (h *AdminRegistrationHandler) MarkAttended(c echo.Context) error {
	regID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	var body struct {
		Attended *bool `json:"attended"`
	}
	if err := c.Bind(&body); err != nil || body.Attended == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "attended required"})
	}
	reg, err := h.Svc.MarkAttended(c.Request().Context(), regID, *body.Attended, isAdmin(c))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"registration": toRegistrationResp(reg)})
}
