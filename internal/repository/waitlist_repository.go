package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/arvelin/class-booking/internal/model"
)

// WaitlistRepo manages the per-class waiting queue. Position is assigned
// from a monotonically increasing counter per class at insertion time, so
// the queue order always reflects insertion order.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// Join appends a client to the class's waitlist and returns the created
// entry. The position is computed and inserted in one transaction while
// the existing tail rows are locked, so concurrent joins get distinct,
// ordered positions. Returns ErrAlreadyWaitlisted on a duplicate join.
func (r *WaitlistRepo) Join(ctx context.Context, classID, clientID uint64) (*model.WaitlistEntry, error) {
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
	const maxQ = `SELECT COALESCE(MAX(position), 0) FROM waitlist_entries
	              WHERE class_id = ? FOR UPDATE`
	var last uint32
	if err := tx.QueryRowContext(ctx, maxQ, classID).Scan(&last); err != nil {
		return nil, err
	}
	const ins = `INSERT INTO waitlist_entries (class_id, client_id, position) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, classID, clientID, last+1)
	if err != nil {
		// unique key on (class_id, client_id)
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return nil, ErrAlreadyWaitlisted
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	entry := &model.WaitlistEntry{}
	const sel = `SELECT id, class_id, client_id, position, created_at
	             FROM waitlist_entries WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, uint64(id)).Scan(
		&entry.ID, &entry.ClassID, &entry.ClientID, &entry.Position, &entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return entry, nil
}

// NextForClass returns the head of the class's waitlist with the client's
// email, or nil when the waitlist is empty. The entry is not removed or
// promoted; staff notify the client out of band.
func (r *WaitlistRepo) NextForClass(ctx context.Context, classID uint64) (*model.WaitlistCandidate, error) {
	const q = `SELECT w.client_id, u.email, w.position
	           FROM waitlist_entries w
	           JOIN users u ON u.id = w.client_id
	           WHERE w.class_id = ?
	           ORDER BY w.position ASC
	           LIMIT 1`
	var cand model.WaitlistCandidate
	err := r.db.QueryRowContext(ctx, q, classID).Scan(&cand.ClientID, &cand.Email, &cand.Position)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cand, nil
}

// Remove deletes a client's waitlist entry for a class. Positions of the
// remaining entries are left untouched; the counter only ever grows.
func (r *WaitlistRepo) Remove(ctx context.Context, classID, clientID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM waitlist_entries WHERE class_id = ? AND client_id = ?`,
		classID, clientID)
	return err
}
