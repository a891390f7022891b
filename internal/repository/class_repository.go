// Package repository contains data access for class templates and class
// instances. The class_instances table carries the capacity ledger:
// max_capacity and current_bookings. Every mutation of current_bookings
// happens through the ...Tx methods in this file while the class row is
// held under a SELECT ... FOR UPDATE lock, so a capacity check and the
// increment it guards are atomic with respect to concurrent bookings on
// the same class. Different classes lock different rows and never block
// each other.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arvelin/class-booking/internal/model"
)

// ClassRepo manages persistence for class instances and the capacity
// counter on each row. All timestamps are stored in UTC.
type ClassRepo struct {
	db *sql.DB
}

// NewClassRepo constructs a ClassRepo with the given DB handle.
func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{db: db} }

const classColumns = `id, template_id, starts_at, location, max_capacity,
       custom_price_cents, current_bookings, status, created_at, updated_at`

func scanClass(row interface {
	Scan(dest ...interface{}) error
}) (*model.ClassInstance, error) {
	var ci model.ClassInstance
	var custom sql.NullInt64
	err := row.Scan(
		&ci.ID, &ci.TemplateID, &ci.StartsAt, &ci.Location, &ci.MaxCapacity,
		&custom, &ci.CurrentBookings, &ci.Status, &ci.CreatedAt, &ci.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if custom.Valid {
		v := uint32(custom.Int64)
		ci.CustomPriceCents = &v
	}
	return &ci, nil
}

// GetByID returns a single class instance. ErrClassNotFound is returned
// when no row exists.
func (r *ClassRepo) GetByID(ctx context.Context, id uint64) (*model.ClassInstance, error) {
	const q = `SELECT ` + classColumns + ` FROM class_instances WHERE id = ?`
	ci, err := scanClass(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrClassNotFound
	}
	return ci, err
}

// LockForBookingTx loads a class instance inside the caller's transaction
// while taking a row-level lock that is held until commit. Every path that
// reads current_bookings and then writes it (reserve, direct register,
// cancel, expiry) must go through this lock so the read-then-write is
// serialized per class. Returns ErrClassNotFound when the row is absent.
func (r *ClassRepo) LockForBookingTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.ClassInstance, error) {
	const q = `SELECT ` + classColumns + ` FROM class_instances WHERE id = ? FOR UPDATE`
	ci, err := scanClass(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrClassNotFound
	}
	return ci, err
}

// IncrementBookingsTx adds one seat to the ledger. The caller must hold
// the row lock via LockForBookingTx in the same transaction and must have
// verified current_bookings < max_capacity before calling.
func (r *ClassRepo) IncrementBookingsTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE class_instances SET current_bookings = current_bookings + 1 WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

// DecrementBookingsTx releases one seat from the ledger. The guard in the
// WHERE clause keeps the counter from going below zero; when it fires the
// ledger had already drifted, which is a consistency bug worth logging
// loudly rather than clamping silently.
func (r *ClassRepo) DecrementBookingsTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE class_instances SET current_bookings = current_bookings - 1
	           WHERE id = ? AND current_bookings > 0`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		logrus.WithField("class_id", id).
			Error("capacity ledger underflow: decrement skipped, counter was already zero")
	}
	return nil
}

// Reconcile recomputes current_bookings for one class from the
// authoritative count of its confirmed registrations and overwrites the
// stored counter. It is a maintenance operation for repairing historical
// drift, safe to run at any time; it may transiently undercount while
// holds are in flight and is never part of the hot reservation path.
// Returns the old and new counter values for audit.
func (r *ClassRepo) Reconcile(ctx context.Context, id uint64) (*model.CounterFix, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	ci, err := r.LockForBookingTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	const countQ = `SELECT COUNT(*) FROM registrations WHERE class_id = ? AND status = ?`
	var actual uint32
	if err := tx.QueryRowContext(ctx, countQ, id, model.RegistrationConfirmed).Scan(&actual); err != nil {
		return nil, err
	}
	fix := &model.CounterFix{ClassID: id, OldCount: ci.CurrentBookings, NewCount: actual}
	if actual != ci.CurrentBookings {
		const upd = `UPDATE class_instances SET current_bookings = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, upd, actual, id); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return fix, nil
}

// ReconcileAll applies Reconcile to every class instance and returns only
// the counters that were actually repaired.
func (r *ClassRepo) ReconcileAll(ctx context.Context) ([]model.CounterFix, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM class_instances ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	fixed := make([]model.CounterFix, 0)
	for _, id := range ids {
		fix, err := r.Reconcile(ctx, id)
		if err != nil {
			return nil, err
		}
		if fix.OldCount != fix.NewCount {
			fixed = append(fixed, *fix)
		}
	}
	return fixed, nil
}

// Create inserts a new class instance and populates generated fields on
// the provided struct.
func (r *ClassRepo) Create(ctx context.Context, ci *model.ClassInstance) error {
	const q = `INSERT INTO class_instances
	           (template_id, starts_at, location, max_capacity, custom_price_cents)
	           VALUES (?, ?, ?, ?, ?)`
	var custom interface{}
	if ci.CustomPriceCents != nil {
		custom = *ci.CustomPriceCents
	}
	res, err := r.db.ExecContext(ctx, q,
		ci.TemplateID, ci.StartsAt.UTC().Format("2006-01-02 15:04:05"),
		ci.Location, ci.MaxCapacity, custom)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	// Query back the full row to populate status and timestamps.
	const sel = `SELECT ` + classColumns + ` FROM class_instances WHERE id = ?`
	fresh, err := scanClass(r.db.QueryRowContext(ctx, sel, uint64(id)))
	if err != nil {
		return err
	}
	*ci = *fresh
	return nil
}

// UpdateStatus moves an instance between upcoming, completed and
// cancelled. Returns ErrClassNotFound when the row is absent.
func (r *ClassRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE class_instances SET status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, id)
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

// Delete removes a class instance. Registrations and waitlist entries
// cascade via foreign keys.
func (r *ClassRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_instances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrClassNotFound
	}
	return nil
}

// UpcomingClass is the public listing shape for a scheduled class,
// joined with its template for display.
type UpcomingClass struct {
	ID             uint64    `json:"id"`
	TemplateID     uint64    `json:"template_id"`
	Name           string    `json:"name"`
	StartsAt       time.Time `json:"starts_at"`
	Location       string    `json:"location"`
	PriceCents     uint32    `json:"price_cents"`
	MaxCapacity    uint32    `json:"max_capacity"`
	SeatsAvailable uint32    `json:"seats_available"`
}

// ListUpcoming returns upcoming class instances ordered by start time,
// joined with template names and the effective seat price.
func (r *ClassRepo) ListUpcoming(ctx context.Context) ([]UpcomingClass, error) {
	const q = `SELECT ci.id, ci.template_id, t.name, ci.starts_at, ci.location,
	                  COALESCE(ci.custom_price_cents, t.price_cents),
	                  ci.max_capacity, ci.current_bookings
	           FROM class_instances ci
	           JOIN class_templates t ON t.id = ci.template_id
	           WHERE ci.status = ? AND ci.starts_at > UTC_TIMESTAMP()
	           ORDER BY ci.starts_at`
	rows, err := r.db.QueryContext(ctx, q, model.ClassUpcoming)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]UpcomingClass, 0)
	for rows.Next() {
		var uc UpcomingClass
		var booked uint32
		if err := rows.Scan(&uc.ID, &uc.TemplateID, &uc.Name, &uc.StartsAt,
			&uc.Location, &uc.PriceCents, &uc.MaxCapacity, &booked); err != nil {
			return nil, err
		}
		if booked < uc.MaxCapacity {
			uc.SeatsAvailable = uc.MaxCapacity - booked
		}
		out = append(out, uc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
