package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arvelin/class-booking/internal/model"
	"github.com/arvelin/class-booking/internal/service"
)

// RegistrationHandler exposes the booking flows to clients. All mutating
// routes sit behind JWT auth; the handler only translates HTTP in and out
// while the service owns every business rule.
type RegistrationHandler struct {
	Svc *service.RegistrationService
}

func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	if svc == nil {
		panic("nil service passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Svc: svc}
}

// ----- DTOs -----

type reserveReq struct {
	ClassID     uint64 `json:"class_id"`
	AmountCents uint32 `json:"amount_cents"`
	Method      string `json:"method"`
}

type registerReqBody struct {
	AmountCents uint32 `json:"amount_cents"`
	Method      string `json:"method"`
}

type registrationResp struct {
	ID                    uint64     `json:"id"`
	ClassID               uint64     `json:"class_id"`
	ClientID              uint64     `json:"client_id"`
	Status                string     `json:"status"`
	PaymentStatus         string     `json:"payment_status"`
	PaymentAmountCents    uint32     `json:"payment_amount_cents"`
	PaymentMethod         string     `json:"payment_method"`
	PaymentReference      string     `json:"payment_reference"`
	UserConfirmedTransfer bool       `json:"user_confirmed_transfer"`
	AdminVerifiedPayment  bool       `json:"admin_verified_payment"`
	PaymentDeadline       time.Time  `json:"payment_deadline"`
	ReservedUntil         *time.Time `json:"reserved_until,omitempty"`
	CancelReason          *string    `json:"cancel_reason,omitempty"`
	Attended              bool       `json:"attended"`
	CreatedAt             time.Time  `json:"created_at"`
}

func toRegistrationResp(r *model.Registration) registrationResp {
	return registrationResp{
		ID:                    r.ID,
		ClassID:               r.ClassID,
		ClientID:              r.ClientID,
		Status:                r.Status,
		PaymentStatus:         r.PaymentStatus,
		PaymentAmountCents:    r.PaymentAmountCents,
		PaymentMethod:         r.PaymentMethod,
		PaymentReference:      r.PaymentReference,
		UserConfirmedTransfer: r.UserConfirmedTransfer,
		AdminVerifiedPayment:  r.AdminVerifiedPayment,
		PaymentDeadline:       r.PaymentDeadline,
		ReservedUntil:         r.ReservedUntil,
		CancelReason:          r.CancelReason,
		Attended:              r.Attended,
		CreatedAt:             r.CreatedAt,
	}
}

// Reserve handles POST /v1/registrations/reserve. It places a short hold
// on one seat and returns the payment reference plus the bank details the
// client should transfer to before confirming.
func (h *RegistrationHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.ClassID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "class_id required"})
	}
	reg, err := h.Svc.ReserveSeat(c.Request().Context(), req.ClassID, userID, req.AmountCents, req.Method)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"registration": toRegistrationResp(reg),
		"bank_account": h.Svc.BankAccount(),
	})
}

// Confirm handles PATCH /v1/registrations/:id/confirm. Only the owning
// client can promote their hold; a lapsed hold comes back as 410 Gone.
func (h *RegistrationHandler) Confirm(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	reg, err := h.Svc.ConfirmReservation(c.Request().Context(), regID, userID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"registration": toRegistrationResp(reg)})
}

// Cancel handles PATCH /v1/registrations/:id/cancel for the owning client
// or an admin. When the freed class has a waitlist the next candidate is
// included so staff can reach out.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration id"})
	}
	res, err := h.Svc.CancelRegistration(c.Request().Context(), regID, userID, isAdmin(c))
	if err != nil {
		return jsonError(c, err)
	}
	resp := echo.Map{"registration": toRegistrationResp(res.Registration)}
	if res.NextWaitlisted != nil {
		resp["next_waitlisted"] = res.NextWaitlisted
	}
	return c.JSON(http.StatusOK, resp)
}

// RegisterDirect handles POST /v1/classes/:id/register, the one-step flow
// kept for existing clients. The registration is created already confirmed.
func (h *RegistrationHandler) RegisterDirect(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	classID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	var req registerReqBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	reg, err := h.Svc.RegisterDirect(c.Request().Context(), classID, userID, service.DirectRegistration{
		AmountCents: req.AmountCents,
		Method:      req.Method,
	})
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"registration": toRegistrationResp(reg),
		"bank_account": h.Svc.BankAccount(),
	})
}

// My handles GET /v1/my-registrations and returns the caller's bookings,
// newest first.
func (h *RegistrationHandler) My(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	regs, err := h.Svc.MyRegistrations(c.Request().Context(), userID)
	if err != nil {
		return jsonError(c, err)
	}
	out := make([]registrationResp, 0, len(regs))
	for i := range regs {
		out = append(out, toRegistrationResp(&regs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"registrations": out})
}

// JoinWaitlist handles POST /v1/classes/:id/waitlist. Only full classes
// accept waitlist entries.
func (h *RegistrationHandler) JoinWaitlist(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	classID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	entry, err := h.Svc.JoinWaitlist(c.Request().Context(), classID, userID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"class_id": entry.ClassID,
		"position": entry.Position,
	})
}
