// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// registration service and handlers to distinguish between different
// failure scenarios with errors.Is instead of matching on message text.
// Every guard in the reservation state machine maps to its own sentinel
// so callers can produce distinct, actionable responses.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of the
// current state of the row, such as cancelling an already-cancelled
// registration or confirming one that is not in the reserved state.
// Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrClassNotFound indicates the referenced class instance does not exist.
var ErrClassNotFound = errors.New("class not found")

// ErrTemplateNotFound indicates the referenced class template does not exist.
var ErrTemplateNotFound = errors.New("class template not found")

// ErrClassNotBookable indicates the class instance exists but is completed
// or cancelled and therefore rejects new registrations.
var ErrClassNotBookable = errors.New("class not open for booking")

// ErrClassFull is the business outcome of losing the race for the last
// seat: current_bookings has reached max_capacity. It is an expected
// result, not a system error, and must never be retried automatically.
var ErrClassFull = errors.New("class is full")

// ErrRegistrationNotFound indicates the referenced registration does not exist.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrReservationExpired is returned when a confirm arrives after the
// reserved_until hold has lapsed. The row stays reserved; the reaper
// cancels it on its next pass.
var ErrReservationExpired = errors.New("reservation expired")

// ErrAlreadyWaitlisted indicates the client already holds a waitlist spot
// for the class instance.
var ErrAlreadyWaitlisted = errors.New("already on waitlist")

// ErrEmailExists indicates a user registration with a duplicate email.
var ErrEmailExists = errors.New("email already exists")
