package repository

import (
	"context"
	"database/sql"

	"github.com/arvelin/class-booking/internal/model"
)

// TemplateRepo manages persistence for class templates.
type TemplateRepo struct {
	db *sql.DB
}

// NewTemplateRepo constructs a TemplateRepo with the given DB handle.
func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

const templateColumns = `id, name, description, price_cents, duration_minutes, created_at, updated_at`

// Create inserts a template and populates generated fields.
func (r *TemplateRepo) Create(ctx context.Context, t *model.ClassTemplate) error {
	const q = `INSERT INTO class_templates (name, description, price_cents, duration_minutes)
	           VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.Name, t.Description, t.PriceCents, t.DurationMinutes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	const sel = `SELECT ` + templateColumns + ` FROM class_templates WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, t.ID).Scan(
		&t.ID, &t.Name, &t.Description, &t.PriceCents, &t.DurationMinutes,
		&t.CreatedAt, &t.UpdatedAt,
	)
}

// GetByID returns one template or ErrTemplateNotFound.
func (r *TemplateRepo) GetByID(ctx context.Context, id uint64) (*model.ClassTemplate, error) {
	const q = `SELECT ` + templateColumns + ` FROM class_templates WHERE id = ?`
	var t model.ClassTemplate
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.Name, &t.Description, &t.PriceCents, &t.DurationMinutes,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListAll returns all templates ordered by name.
func (r *TemplateRepo) ListAll(ctx context.Context) ([]model.ClassTemplate, error) {
	const q = `SELECT ` + templateColumns + ` FROM class_templates ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ClassTemplate, 0)
	for rows.Next() {
		var t model.ClassTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.PriceCents,
			&t.DurationMinutes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites mutable template fields. Returns ErrTemplateNotFound
// when the row is absent.
func (r *TemplateRepo) Update(ctx context.Context, t *model.ClassTemplate) error {
	const q = `UPDATE class_templates SET name = ?, description = ?, price_cents = ?, duration_minutes = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, t.Name, t.Description, t.PriceCents, t.DurationMinutes, t.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a template. Scheduled instances cascade via foreign keys.
func (r *TemplateRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
