package model

import "time"

// Class instance status values.  An instance is bookable only while it is
// upcoming; completed and cancelled instances reject new registrations.
const (
	ClassUpcoming  = "upcoming"
	ClassCompleted = "completed"
	ClassCancelled = "cancelled"
)

// ClassTemplate describes a recurring class offering (e.g. "Yoga Basics").
// Scheduled occurrences are ClassInstance rows referencing a template.
//
// Fields:
//  ID              – primary key identifier.
//  Name            – display name of the class.
//  Description     – free-text description shown to clients.
//  PriceCents      – default price per seat in cents; instances may override.
//  DurationMinutes – scheduled length of a single occurrence.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type ClassTemplate struct {
	ID              uint64    // class_templates.id
	Name            string    // class_templates.name
	Description     string    // class_templates.description
	PriceCents      uint32    // class_templates.price_cents
	DurationMinutes uint32    // class_templates.duration_minutes
	CreatedAt       time.Time // class_templates.created_at
	UpdatedAt       time.Time // class_templates.updated_at
}

// ClassInstance is one scheduled occurrence of a template.  CurrentBookings
// is the capacity ledger: it must equal the number of registrations in
// status reserved or confirmed referencing this instance, and is mutated
// only inside the same transaction that creates or releases a registration.
//
// Fields:
//  ID               – primary key identifier.
//  TemplateID       – template this occurrence was scheduled from.
//  StartsAt         – scheduled start time (UTC).
//  Location         – room or venue label.
//  MaxCapacity      – number of seats, always >= 1.
//  CustomPriceCents – optional per-instance override of the template price.
//  CurrentBookings  – seats currently taken by live registrations.
//  Status           – upcoming, completed or cancelled.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type ClassInstance struct {
	ID               uint64    // class_instances.id
	TemplateID       uint64    // class_instances.template_id
	StartsAt         time.Time // class_instances.starts_at
	Location         string    // class_instances.location
	MaxCapacity      uint32    // class_instances.max_capacity
	CustomPriceCents *uint32   // class_instances.custom_price_cents (nullable)
	CurrentBookings  uint32    // class_instances.current_bookings
	Status           string    // class_instances.status
	CreatedAt        time.Time // class_instances.created_at
	UpdatedAt        time.Time // class_instances.updated_at
}

// PriceCents returns the effective seat price for the instance given its
// template price, honouring a custom override when present.
func (ci *ClassInstance) PriceCents(templatePrice uint32) uint32 {
	if ci.CustomPriceCents != nil {
		return *ci.CustomPriceCents
	}
	return templatePrice
}

// CounterFix reports one repaired capacity counter.  Returned by the
// reconcile maintenance operations so admins can audit drift.
type CounterFix struct {
	ClassID  uint64 `json:"class_id"`
	OldCount uint32 `json:"old_count"`
	NewCount uint32 `json:"new_count"`
}
