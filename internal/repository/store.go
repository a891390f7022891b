package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/arvelin/class-booking/internal/model"
)

// Store composes the repositories into the transactional units the
// registration service needs. Each method is one atomic state-machine
// step: the capacity check and the counter mutation it guards always
// commit or roll back together with the registration row change. The
// database row lock on the class instance is the only concurrency
// control; no capacity state is cached in process memory.
type Store struct {
	db            *sql.DB
	Classes       *ClassRepo
	Templates     *TemplateRepo
	Registrations *RegistrationRepo
	Waitlist      *WaitlistRepo
	Users         *UserRepo
}

// NewStore builds a Store and its repositories over one DB handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		Classes:       NewClassRepo(db),
		Templates:     NewTemplateRepo(db),
		Registrations: NewRegistrationRepo(db),
		Waitlist:      NewWaitlistRepo(db),
		Users:         NewUserRepo(db),
	}
}

// GetClass returns a class instance or ErrClassNotFound.
func (s *Store) GetClass(ctx context.Context, classID uint64) (*model.ClassInstance, error) {
	return s.Classes.GetByID(ctx, classID)
}

// GetRegistration returns a registration or ErrRegistrationNotFound.
func (s *Store) GetRegistration(ctx context.Context, id uint64) (*model.Registration, error) {
	return s.Registrations.GetByID(ctx, id)
}

// CreateRegistration inserts reg and claims its seat in one transaction.
// The class row is locked for the duration of the capacity check and the
// increment, so two requests racing for the last seat serialize on the
// row lock and exactly one wins; the loser gets ErrClassFull. Works for
// both the two-step flow (status reserved) and the legacy direct flow
// (status confirmed).
func (s *Store) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	ci, err := s.Classes.LockForBookingTx(ctx, tx, reg.ClassID)
	if err != nil {
		return err
	}
	if ci.Status != model.ClassUpcoming {
		return ErrClassNotBookable
	}
	if ci.CurrentBookings >= ci.MaxCapacity {
		return ErrClassFull
	}
	if err := s.Registrations.CreateTx(ctx, tx, reg); err != nil {
		return err
	}
	if err := s.Classes.IncrementBookingsTx(ctx, tx, reg.ClassID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	// A client who got a seat no longer needs their waitlist spot.
	_ = s.Waitlist.Remove(ctx, reg.ClassID, reg.ClientID)
	return nil
}

// ConfirmRegistration transitions a reserved registration to confirmed.
// The guard is re-checked on the locked row: only a registration still in
// the reserved state with an unlapsed hold can be confirmed. A lapsed
// hold yields ErrReservationExpired and the row is left reserved for the
// reaper to cancel. The ledger is untouched; the seat was already counted
// at reserve time.
func (s *Store) ConfirmRegistration(ctx context.Context, id uint64, now time.Time) (*model.Registration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	reg, err := s.Registrations.LockForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.RegistrationReserved {
		return nil, ErrConflict
	}
	if reg.ReservedUntil == nil || now.After(*reg.ReservedUntil) {
		return nil, ErrReservationExpired
	}
	if err := s.Registrations.ConfirmTx(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	reg.Status = model.RegistrationConfirmed
	reg.UserConfirmedTransfer = true
	return reg, nil
}

// CancelRegistration transitions a live registration to cancelled with an
// audit reason and releases its seat in the same transaction. Cancelling
// an already-cancelled registration returns ErrConflict without touching
// the ledger. Explicit cancel, admin delete and the expiry sweeps all
// release seats through the same DecrementBookingsTx path.
func (s *Store) CancelRegistration(ctx context.Context, id uint64, reason string) (*model.Registration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	reg, err := s.Registrations.LockForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !reg.Live() {
		return nil, ErrConflict
	}
	if err := s.Registrations.CancelTx(ctx, tx, id, reason); err != nil {
		return nil, err
	}
	if _, err := s.Classes.LockForBookingTx(ctx, tx, reg.ClassID); err != nil {
		return nil, err
	}
	if err := s.Classes.DecrementBookingsTx(ctx, tx, reg.ClassID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	reg.Status = model.RegistrationCancelled
	reg.CancelReason = &reason
	return reg, nil
}

// DeleteRegistration hard-deletes a registration, releasing its seat when
// the row was still live. Cancelled rows delete without a decrement since
// their seat was already released.
func (s *Store) DeleteRegistration(ctx context.Context, id uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	reg, err := s.Registrations.LockForUpdateTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := s.Registrations.DeleteTx(ctx, tx, id); err != nil {
		return err
	}
	if reg.Live() {
		if _, err := s.Classes.LockForBookingTx(ctx, tx, reg.ClassID); err != nil {
			return err
		}
		if err := s.Classes.DecrementBookingsTx(ctx, tx, reg.ClassID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ExpireHolds cancels every registration whose hold lapsed at or before
// now and releases its seat, one transaction per registration so a
// partial failure never leaves a decrement without the matching cancel.
// Each row's guard is re-checked under its lock: a registration confirmed
// between candidate selection and the per-row transaction is skipped, and
// a second sweep over the same rows finds them already cancelled, so the
// ledger is decremented exactly once per lapse. Returns the number of
// seats reclaimed.
func (s *Store) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.Registrations.ExpiredHoldIDs(ctx, now)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		ok, err := s.expireOne(ctx, id, now, model.CancelHoldExpired, func(reg *model.Registration) bool {
			return reg.Status == model.RegistrationReserved &&
				reg.ReservedUntil != nil && !now.Before(*reg.ReservedUntil)
		})
		if err != nil {
			return count, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// ExpirePaymentDeadlines cancels live registrations whose 24h payment
// window closed without an admin verifying the transfer. Independent of
// the hold sweep; same per-registration atomicity.
func (s *Store) ExpirePaymentDeadlines(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.Registrations.ExpiredDeadlineIDs(ctx, now)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		ok, err := s.expireOne(ctx, id, now, model.CancelPaymentDeadline, func(reg *model.Registration) bool {
			return reg.Live() && !reg.AdminVerifiedPayment && !now.Before(reg.PaymentDeadline)
		})
		if err != nil {
			return count, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// expireOne cancels a single candidate when the guard still holds on the
// locked row. Returns false without error when the guard no longer
// applies (row confirmed, already cancelled, or deleted meanwhile).
func (s *Store) expireOne(ctx context.Context, id uint64, now time.Time, reason string, guard func(*model.Registration) bool) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	reg, err := s.Registrations.LockForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == ErrRegistrationNotFound {
			return false, nil
		}
		return false, err
	}
	if !guard(reg) {
		return false, nil
	}
	if err := s.Registrations.CancelTx(ctx, tx, id, reason); err != nil {
		return false, err
	}
	if _, err := s.Classes.LockForBookingTx(ctx, tx, reg.ClassID); err != nil {
		return false, err
	}
	if err := s.Classes.DecrementBookingsTx(ctx, tx, reg.ClassID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

// ListRegistrationsByClass returns the admin roster for a class, oldest
// first, with client details.
func (s *Store) ListRegistrationsByClass(ctx context.Context, classID uint64) ([]model.RegistrationWithClient, error) {
	return s.Registrations.ListByClass(ctx, classID)
}

// ListRegistrationsByClient returns a client's own registrations.
func (s *Store) ListRegistrationsByClient(ctx context.Context, clientID uint64) ([]model.Registration, error) {
	return s.Registrations.ListByClient(ctx, clientID)
}

// ReconcileAll repairs every capacity counter.
func (s *Store) ReconcileAll(ctx context.Context) ([]model.CounterFix, error) {
	return s.Classes.ReconcileAll(ctx)
}

// NextWaitlisted surfaces the head of a class's waitlist, or nil.
func (s *Store) NextWaitlisted(ctx context.Context, classID uint64) (*model.WaitlistCandidate, error) {
	return s.Waitlist.NextForClass(ctx, classID)
}

// JoinWaitlist queues a client for a seat in the class.
func (s *Store) JoinWaitlist(ctx context.Context, classID, clientID uint64) (*model.WaitlistEntry, error) {
	return s.Waitlist.Join(ctx, classID, clientID)
}

// VerifyPayment marks a registration's transfer admin-verified.
func (s *Store) VerifyPayment(ctx context.Context, id uint64) error {
	return s.Registrations.VerifyPayment(ctx, id)
}

// SetAttended flips the attendance flag.
func (s *Store) SetAttended(ctx context.Context, id uint64, attended bool) error {
	return s.Registrations.SetAttended(ctx, id, attended)
}

// ClassName resolves the display name of a class instance via its
// template, for notification payloads.
func (s *Store) ClassName(ctx context.Context, classID uint64) (string, error) {
	const q = `SELECT t.name FROM class_instances ci
	           JOIN class_templates t ON t.id = ci.template_id
	           WHERE ci.id = ?`
	var name string
	if err := s.db.QueryRowContext(ctx, q, classID).Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrClassNotFound
		}
		return "", err
	}
	return name, nil
}

// ClientEmail resolves a client's email for notification payloads.
func (s *Store) ClientEmail(ctx context.Context, clientID uint64) (string, error) {
	u, err := s.Users.GetByID(ctx, clientID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}
