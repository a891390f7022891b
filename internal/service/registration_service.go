package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/arvelin/class-booking/internal/model"
	"github.com/arvelin/class-booking/internal/queue"
	"github.com/arvelin/class-booking/internal/repository"
	"github.com/arvelin/class-booking/internal/utils"
)

// Store is the transactional persistence surface the orchestrator runs
// on. Every method is one atomic state-machine step; the production
// implementation is repository.Store backed by MySQL row locks. Business
// outcomes surface as the repository sentinel errors.
type Store interface {
	GetClass(ctx context.Context, classID uint64) (*model.ClassInstance, error)
	GetRegistration(ctx context.Context, id uint64) (*model.Registration, error)
	CreateRegistration(ctx context.Context, reg *model.Registration) error
	ConfirmRegistration(ctx context.Context, id uint64, now time.Time) (*model.Registration, error)
	CancelRegistration(ctx context.Context, id uint64, reason string) (*model.Registration, error)
	DeleteRegistration(ctx context.Context, id uint64) error
	ExpireHolds(ctx context.Context, now time.Time) (int, error)
	ExpirePaymentDeadlines(ctx context.Context, now time.Time) (int, error)
	ListRegistrationsByClass(ctx context.Context, classID uint64) ([]model.RegistrationWithClient, error)
	ListRegistrationsByClient(ctx context.Context, clientID uint64) ([]model.Registration, error)
	ReconcileAll(ctx context.Context) ([]model.CounterFix, error)
	NextWaitlisted(ctx context.Context, classID uint64) (*model.WaitlistCandidate, error)
	JoinWaitlist(ctx context.Context, classID, clientID uint64) (*model.WaitlistEntry, error)
	VerifyPayment(ctx context.Context, id uint64) error
	SetAttended(ctx context.Context, id uint64, attended bool) error
	ClientEmail(ctx context.Context, clientID uint64) (string, error)
	ClassName(ctx context.Context, classID uint64) (string, error)
}

// RegistrationService is the single orchestrator for the seat-reservation
// state machine. All entry points (HTTP handlers, the expiry reaper)
// route through it; transports differ only in wiring, never in business
// rules. The service checks authorization before any mutation and maps
// every guard failure to its own sentinel error. It keeps no mutable
// state of its own: capacity truth lives in the datastore.
type RegistrationService struct {
	store      Store
	notifier   Notifier         // nil disables confirmation events
	bank       BankInfoProvider // nil omits transfer instructions
	holdTTL    time.Duration    // hold window, normally 10 minutes
	paymentTTL time.Duration    // payment window, normally 24 hours
}

// NewRegistrationService wires the orchestrator. holdTTL and paymentTTL
// fall back to the product defaults when zero.
func NewRegistrationService(store Store, notifier Notifier, bank BankInfoProvider, holdTTL, paymentTTL time.Duration) *RegistrationService {
	if holdTTL <= 0 {
		holdTTL = 10 * time.Minute
	}
	if paymentTTL <= 0 {
		paymentTTL = 24 * time.Hour
	}
	return &RegistrationService{
		store:      store,
		notifier:   notifier,
		bank:       bank,
		holdTTL:    holdTTL,
		paymentTTL: paymentTTL,
	}
}

// BankAccount exposes the active transfer destination for handlers to
// embed in responses. Zero value when no provider is configured.
func (s *RegistrationService) BankAccount() model.BankAccount {
	if s.bank == nil {
		return model.BankAccount{}
	}
	return s.bank.ActiveAccount()
}

// ReserveSeat grants clientID a time-boxed hold on one seat in classID.
// The hold window is short on purpose: it only needs to cover the client
// reading the transfer instructions, and a squatted seat frees itself in
// minutes. The capacity check and the seat claim are one atomic store
// operation, so concurrent requests for the last seat resolve to exactly
// one winner; the rest get repository.ErrClassFull.
func (s *RegistrationService) ReserveSeat(ctx context.Context, classID, clientID uint64, amountCents uint32, method string) (*model.Registration, error) {
	if method == "" {
		method = model.MethodBankTransfer
	}
	if !model.ValidMethod(method) {
		return nil, ErrInvalidPaymentMethod
	}
	if amountCents == 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	reservedUntil := now.Add(s.holdTTL)
	reg := &model.Registration{
		ClassID:            classID,
		ClientID:           clientID,
		Status:             model.RegistrationReserved,
		PaymentStatus:      model.PaymentPending,
		PaymentAmountCents: amountCents,
		PaymentMethod:      method,
		PaymentReference:   utils.NewBookingReference(),
		PaymentDeadline:    now.Add(s.paymentTTL),
		ReservedUntil:      &reservedUntil,
	}
	if err := s.store.CreateRegistration(ctx, reg); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"class_id":        classID,
		"client_id":       clientID,
		"reserved_until":  reservedUntil,
	}).Info("seat reserved")
	return reg, nil
}

// DirectRegistration is the payload of the legacy one-step flow.
type DirectRegistration struct {
	AmountCents uint32
	Method      string
}

// RegisterDirect creates a registration already confirmed, with no hold
// window. Kept first-class for backward compatibility with the one-step
// flow; it still assigns a payment reference and the 24h deadline, and
// claims the seat under the same atomic capacity check as ReserveSeat.
func (s *RegistrationService) RegisterDirect(ctx context.Context, classID, clientID uint64, in DirectRegistration) (*model.Registration, error) {
	if in.Method == "" {
		in.Method = model.MethodBankTransfer
	}
	if !model.ValidMethod(in.Method) {
		return nil, ErrInvalidPaymentMethod
	}
	if in.AmountCents == 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	reg := &model.Registration{
		ClassID:            classID,
		ClientID:           clientID,
		Status:             model.RegistrationConfirmed,
		PaymentStatus:      model.PaymentPending,
		PaymentAmountCents: in.AmountCents,
		PaymentMethod:      in.Method,
		PaymentReference:   utils.NewBookingReference(),
		PaymentDeadline:    now.Add(s.paymentTTL),
	}
	if err := s.store.CreateRegistration(ctx, reg); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"class_id":        classID,
		"client_id":       clientID,
	}).Info("direct registration confirmed")
	s.notifyConfirmed(reg)
	return reg, nil
}

// ConfirmReservation converts clientID's hold into a confirmed booking.
// Only the owning client may confirm. Confirming after the hold lapsed
// returns repository.ErrReservationExpired and leaves the row reserved
// for the reaper; it never silently succeeds. On success a confirmation
// event is published fire-and-forget: delivery failure is logged, never
// surfaced, and never rolls back the confirmation.
func (s *RegistrationService) ConfirmReservation(ctx context.Context, regID, clientID uint64) (*model.Registration, error) {
	reg, err := s.store.GetRegistration(ctx, regID)
	if err != nil {
		return nil, err
	}
	if reg.ClientID != clientID {
		return nil, repository.ErrForbidden
	}
	confirmed, err := s.store.ConfirmRegistration(ctx, regID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"registration_id": regID,
		"client_id":       clientID,
	}).Info("reservation confirmed")
	s.notifyConfirmed(confirmed)
	return confirmed, nil
}

// CancelResult pairs the cancelled registration with the next waitlisted
// client for the class, if any. The candidate is surfaced for staff to
// notify; they are never auto-promoted into the freed seat.
type CancelResult struct {
	Registration   *model.Registration
	NextWaitlisted *model.WaitlistCandidate
}

// CancelRegistration cancels a live registration and releases its seat.
// Allowed for the owning client or an admin; anyone else gets
// repository.ErrForbidden with no state change. Cancelling an
// already-cancelled registration returns repository.ErrConflict.
func (s *RegistrationService) CancelRegistration(ctx context.Context, regID, actorID uint64, actorIsAdmin bool) (*CancelResult, error) {
	reg, err := s.store.GetRegistration(ctx, regID)
	if err != nil {
		return nil, err
	}
	if reg.ClientID != actorID && !actorIsAdmin {
		return nil, repository.ErrForbidden
	}
	reason := model.CancelByClient
	if actorIsAdmin && reg.ClientID != actorID {
		reason = model.CancelByAdmin
	}
	cancelled, err := s.store.CancelRegistration(ctx, regID, reason)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"registration_id": regID,
		"class_id":        cancelled.ClassID,
		"reason":          reason,
	}).Info("registration cancelled")
	result := &CancelResult{Registration: cancelled}
	// Best-effort lookup; a freed seat with an empty waitlist is normal.
	next, err := s.store.NextWaitlisted(ctx, cancelled.ClassID)
	if err != nil {
		logrus.WithError(err).WithField("class_id", cancelled.ClassID).
			Warn("waitlist lookup failed after cancellation")
	} else {
		result.NextWaitlisted = next
	}
	return result, nil
}

// AdminDeleteRegistration hard-deletes a registration, releasing the seat
// when the row was live. Admin only; the flag is checked here so every
// transport shares the rule.
func (s *RegistrationService) AdminDeleteRegistration(ctx context.Context, regID uint64, actorIsAdmin bool) error {
	if !actorIsAdmin {
		return repository.ErrForbidden
	}
	if err := s.store.DeleteRegistration(ctx, regID); err != nil {
		return err
	}
	logrus.WithField("registration_id", regID).Info("registration deleted by admin")
	return nil
}

// RegistrationsForClass returns the roster for a class, oldest-created
// first, with client details. Fails with repository.ErrClassNotFound for
// an unknown class rather than returning an empty roster.
func (s *RegistrationService) RegistrationsForClass(ctx context.Context, classID uint64) ([]model.RegistrationWithClient, error) {
	if _, err := s.store.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return s.store.ListRegistrationsByClass(ctx, classID)
}

// MyRegistrations returns the calling client's registrations.
func (s *RegistrationService) MyRegistrations(ctx context.Context, clientID uint64) ([]model.Registration, error) {
	return s.store.ListRegistrationsByClient(ctx, clientID)
}

// ReconcileCounters recomputes every class's capacity counter from its
// confirmed registrations and reports the repaired ones. Maintenance
// only; it compensates for historical drift and is never a substitute
// for the transactional guarantees on the reservation path.
func (s *RegistrationService) ReconcileCounters(ctx context.Context) ([]model.CounterFix, error) {
	fixed, err := s.store.ReconcileAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(fixed) > 0 {
		logrus.WithField("fixed", len(fixed)).Warn("capacity counters repaired")
	}
	return fixed, nil
}

// SweepExpiredHolds cancels reservations whose hold window lapsed and
// returns the number of seats reclaimed. Invoked by the reaper.
func (s *RegistrationService) SweepExpiredHolds(ctx context.Context) (int, error) {
	n, err := s.store.ExpireHolds(ctx, time.Now().UTC())
	if n > 0 {
		logrus.WithField("reclaimed", n).Info("expired holds swept")
	}
	return n, err
}

// SweepPaymentDeadlines cancels live registrations whose payment window
// closed without admin verification. Independent of the hold sweep.
func (s *RegistrationService) SweepPaymentDeadlines(ctx context.Context) (int, error) {
	n, err := s.store.ExpirePaymentDeadlines(ctx, time.Now().UTC())
	if n > 0 {
		logrus.WithField("reclaimed", n).Info("lapsed payment deadlines swept")
	}
	return n, err
}

// JoinWaitlist queues clientID for a seat in a full class. Joining a
// class with free seats is rejected with repository.ErrConflict; the
// client should just book.
func (s *RegistrationService) JoinWaitlist(ctx context.Context, classID, clientID uint64) (*model.WaitlistEntry, error) {
	ci, err := s.store.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if ci.Status != model.ClassUpcoming {
		return nil, repository.ErrClassNotBookable
	}
	if ci.CurrentBookings < ci.MaxCapacity {
		return nil, repository.ErrConflict
	}
	return s.store.JoinWaitlist(ctx, classID, clientID)
}

// VerifyPayment records an admin's confirmation that the bank transfer
// arrived. Admin only.
func (s *RegistrationService) VerifyPayment(ctx context.Context, regID uint64, actorIsAdmin bool) (*model.Registration, error) {
	if !actorIsAdmin {
		return nil, repository.ErrForbidden
	}
	if err := s.store.VerifyPayment(ctx, regID); err != nil {
		return nil, err
	}
	return s.store.GetRegistration(ctx, regID)
}

// MarkAttended flips the attendance flag on a registration. Admin only.
func (s *RegistrationService) MarkAttended(ctx context.Context, regID uint64, attended, actorIsAdmin bool) (*model.Registration, error) {
	if !actorIsAdmin {
		return nil, repository.ErrForbidden
	}
	if err := s.store.SetAttended(ctx, regID, attended); err != nil {
		return nil, err
	}
	return s.store.GetRegistration(ctx, regID)
}

// notifyConfirmed publishes the confirmation event in the background.
// The HTTP response never waits on the broker and a publish failure is
// only logged.
func (s *RegistrationService) notifyConfirmed(reg *model.Registration) {
	if s.notifier == nil {
		return
	}
	snapshot := *reg
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ev := s.buildConfirmedEvent(ctx, &snapshot)
		if err := s.notifier.RegistrationConfirmed(ctx, ev); err != nil {
			logrus.WithError(err).WithField("registration_id", snapshot.ID).
				Warn("confirmation notification failed")
		}
	}()
}

func (s *RegistrationService) buildConfirmedEvent(ctx context.Context, reg *model.Registration) queue.RegistrationConfirmedEvent {
	ev := queue.RegistrationConfirmedEvent{
		EventID:            uuid.NewString(),
		RegistrationID:     reg.ID,
		ClassID:            reg.ClassID,
		ClientID:           reg.ClientID,
		PaymentReference:   reg.PaymentReference,
		PaymentAmountCents: reg.PaymentAmountCents,
		PaymentMethod:      reg.PaymentMethod,
		ConfirmedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	if email, err := s.store.ClientEmail(ctx, reg.ClientID); err == nil {
		ev.ClientEmail = email
	}
	if ci, err := s.store.GetClass(ctx, reg.ClassID); err == nil {
		ev.StartsAt = ci.StartsAt.UTC().Format(time.RFC3339)
		ev.Location = ci.Location
	}
	if name, err := s.store.ClassName(ctx, reg.ClassID); err == nil {
		ev.ClassName = name
	}
	if s.bank != nil {
		acct := s.bank.ActiveAccount()
		ev.BankName = acct.BankName
		ev.BankAccountName = acct.AccountName
		ev.BankAccountNumber = acct.AccountNumber
	}
	return ev
}
