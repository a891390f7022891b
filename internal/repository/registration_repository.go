// Package repository: data access for registrations. Registrations move
// through the reserved -> confirmed | cancelled lifecycle; every state
// transition that affects the capacity ledger happens through the ...Tx
// methods here, inside the same transaction that locks the class row and
// adjusts its counter.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/arvelin/class-booking/internal/model"
)

// RegistrationRepo provides CRUD and lifecycle operations for the
// registrations table. All timestamp fields are stored in UTC.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `id, class_id, client_id, status, payment_status,
       payment_amount_cents, payment_method, payment_reference,
       user_confirmed_transfer, admin_verified_payment, payment_deadline,
       reserved_until, cancel_reason, attended, created_at, updated_at`

func scanRegistration(row interface {
	Scan(dest ...interface{}) error
}) (*model.Registration, error) {
	var reg model.Registration
	var reservedUntil sql.NullTime
	var cancelReason sql.NullString
	err := row.Scan(
		&reg.ID, &reg.ClassID, &reg.ClientID, &reg.Status, &reg.PaymentStatus,
		&reg.PaymentAmountCents, &reg.PaymentMethod, &reg.PaymentReference,
		&reg.UserConfirmedTransfer, &reg.AdminVerifiedPayment, &reg.PaymentDeadline,
		&reservedUntil, &cancelReason, &reg.Attended, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reservedUntil.Valid {
		t := reservedUntil.Time
		reg.ReservedUntil = &t
	}
	if cancelReason.Valid {
		s := cancelReason.String
		reg.CancelReason = &s
	}
	return &reg, nil
}

// CreateTx inserts a new registration within the scope of an existing
// transaction and queries the row back to populate the generated ID and
// default fields. The caller must commit or roll back; the same
// transaction must carry the class row lock and counter increment.
func (r *RegistrationRepo) CreateTx(ctx context.Context, tx *sql.Tx, reg *model.Registration) error {
	const q = `INSERT INTO registrations
	           (class_id, client_id, status, payment_status, payment_amount_cents,
	            payment_method, payment_reference, payment_deadline, reserved_until)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var reservedUntil interface{}
	if reg.ReservedUntil != nil {
		reservedUntil = reg.ReservedUntil.UTC().Format("2006-01-02 15:04:05")
	}
	res, err := tx.ExecContext(ctx, q,
		reg.ClassID, reg.ClientID, reg.Status, reg.PaymentStatus,
		reg.PaymentAmountCents, reg.PaymentMethod, reg.PaymentReference,
		reg.PaymentDeadline.UTC().Format("2006-01-02 15:04:05"), reservedUntil)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = uint64(id)
	const sel = `SELECT ` + registrationColumns + ` FROM registrations WHERE id = ?`
	fresh, err := scanRegistration(tx.QueryRowContext(ctx, sel, reg.ID))
	if err != nil {
		return err
	}
	*reg = *fresh
	return nil
}

// GetByID returns a single registration or ErrRegistrationNotFound.
func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations WHERE id = ?`
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrRegistrationNotFound
	}
	return reg, err
}

// LockForUpdateTx loads a registration under a row lock held until the
// transaction commits. State transitions re-check their guard on this
// locked row, so a registration confirmed the instant before a sweep
// examines it cannot also be expired.
func (r *RegistrationRepo) LockForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations WHERE id = ? FOR UPDATE`
	reg, err := scanRegistration(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrRegistrationNotFound
	}
	return reg, err
}

// ConfirmTx marks a reserved registration confirmed and records the
// client's transfer self-report. The caller must have verified the guard
// (status reserved, hold not lapsed) on the locked row.
func (r *RegistrationRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE registrations
	           SET status = ?, user_confirmed_transfer = 1
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, model.RegistrationConfirmed, id)
	return err
}

// CancelTx marks a registration cancelled with an audit reason. Cancelled
// rows are immutable afterwards except for audit fields.
func (r *RegistrationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, reason string) error {
	const q = `UPDATE registrations SET status = ?, cancel_reason = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, model.RegistrationCancelled, reason, id)
	return err
}

// DeleteTx hard-deletes a registration row. Used only by the admin delete
// path; the enclosing transaction releases the seat when the row was live.
func (r *RegistrationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, id)
	return err
}

// ExpiredHoldIDs returns registrations still reserved whose hold lapsed at
// or before now. Candidates only: the sweep re-checks each row under a
// lock before acting, so a concurrent confirm wins.
func (r *RegistrationRepo) ExpiredHoldIDs(ctx context.Context, now time.Time) ([]uint64, error) {
	const q = `SELECT id FROM registrations
	           WHERE status = ? AND reserved_until IS NOT NULL AND reserved_until <= ?`
	return r.queryIDs(ctx, q, model.RegistrationReserved, now.UTC().Format("2006-01-02 15:04:05"))
}

// ExpiredDeadlineIDs returns live registrations whose payment deadline
// passed without an admin verifying the transfer.
func (r *RegistrationRepo) ExpiredDeadlineIDs(ctx context.Context, now time.Time) ([]uint64, error) {
	const q = `SELECT id FROM registrations
	           WHERE status IN (?, ?, ?) AND admin_verified_payment = 0 AND payment_deadline <= ?`
	return r.queryIDs(ctx, q,
		model.RegistrationReserved, model.RegistrationConfirmed, model.RegistrationPending,
		now.UTC().Format("2006-01-02 15:04:05"))
}

func (r *RegistrationRepo) queryIDs(ctx context.Context, q string, args ...interface{}) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListByClass returns every registration for a class joined with the
// owning client's email, oldest-created first. Used by the admin roster
// view.
func (r *RegistrationRepo) ListByClass(ctx context.Context, classID uint64) ([]model.RegistrationWithClient, error) {
	const q = `SELECT r.id, r.class_id, r.client_id, r.status, r.payment_status,
	                  r.payment_amount_cents, r.payment_method, r.payment_reference,
	                  r.user_confirmed_transfer, r.admin_verified_payment, r.payment_deadline,
	                  r.reserved_until, r.cancel_reason, r.attended, r.created_at, r.updated_at,
	                  u.email
	           FROM registrations r
	           JOIN users u ON u.id = r.client_id
	           WHERE r.class_id = ?
	           ORDER BY r.created_at ASC, r.id ASC`
	rows, err := r.db.QueryContext(ctx, q, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.RegistrationWithClient, 0)
	for rows.Next() {
		var rc model.RegistrationWithClient
		var reservedUntil sql.NullTime
		var cancelReason sql.NullString
		if err := rows.Scan(
			&rc.ID, &rc.ClassID, &rc.ClientID, &rc.Status, &rc.PaymentStatus,
			&rc.PaymentAmountCents, &rc.PaymentMethod, &rc.PaymentReference,
			&rc.UserConfirmedTransfer, &rc.AdminVerifiedPayment, &rc.PaymentDeadline,
			&reservedUntil, &cancelReason, &rc.Attended, &rc.CreatedAt, &rc.UpdatedAt,
			&rc.ClientEmail,
		); err != nil {
			return nil, err
		}
		if reservedUntil.Valid {
			t := reservedUntil.Time
			rc.ReservedUntil = &t
		}
		if cancelReason.Valid {
			s := cancelReason.String
			rc.CancelReason = &s
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByClient returns a client's registrations, newest first.
func (r *RegistrationRepo) ListByClient(ctx context.Context, clientID uint64) ([]model.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations
	           WHERE client_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyPayment records that an admin matched the transfer on the bank
// statement; the payment-deadline sweep skips verified rows from then on.
func (r *RegistrationRepo) VerifyPayment(ctx context.Context, id uint64) error {
	const q = `UPDATE registrations
	           SET admin_verified_payment = 1, payment_status = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, model.PaymentPaid, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SetAttended flips the attendance flag on a registration.
func (r *RegistrationRepo) SetAttended(ctx context.Context, id uint64, attended bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET attended = ? WHERE id = ?`, attended, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
