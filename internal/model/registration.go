package model

import "time"

// Registration status values.  "reserved" is the provisional hold created by
// the two-step flow; "confirmed" is the terminal success state; "cancelled"
// is terminal failure.  "pending" exists only for rows imported from the
// legacy system and is treated like confirmed for capacity purposes.
const (
	RegistrationReserved  = "reserved"
	RegistrationConfirmed = "confirmed"
	RegistrationCancelled = "cancelled"
	RegistrationPending   = "pending"
)

// Payment status values.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// Payment method values.  Payment is out-of-band; bank_transfer is the
// default and pay_on_arrival skips the transfer confirmation step.
const (
	MethodBankTransfer = "bank_transfer"
	MethodPayOnArrival = "pay_on_arrival"
)

// Cancellation reasons recorded for audit.  "expired" maps to the short
// hold window sweep; "payment_deadline" to the 24h verification sweep.
const (
	CancelByClient        = "client_cancelled"
	CancelByAdmin         = "admin_cancelled"
	CancelHoldExpired     = "hold_expired"
	CancelPaymentDeadline = "payment_deadline_expired"
)

// Registration is one client's claim on a seat in a class instance.
//
// A registration created by the two-step flow starts as reserved with a
// ReservedUntil hold; the legacy one-step flow creates it directly as
// confirmed with no hold.  PaymentDeadline is always 24 hours after
// creation and bounds how long an unverified bank transfer is tolerated.
//
// Fields:
//  ID                    – primary key identifier.
//  ClassID               – class instance being booked.
//  ClientID              – user who owns the registration.
//  Status                – reserved, confirmed, cancelled or pending.
//  PaymentStatus         – pending, paid or refunded.
//  PaymentAmountCents    – amount owed in cents.
//  PaymentMethod         – bank_transfer or pay_on_arrival.
//  PaymentReference      – human-facing booking code quoted on the transfer.
//  UserConfirmedTransfer – client ticked "I transferred".
//  AdminVerifiedPayment  – admin matched the transfer on the bank statement.
//  PaymentDeadline       – when an unverified payment lapses.
//  ReservedUntil         – hold expiry; nil for direct registrations.
//  CancelReason          – audit reason, set only once cancelled.
//  Attended              – admin-marked attendance flag.
//  CreatedAt             – creation timestamp.
//  UpdatedAt             – last update timestamp.
type Registration struct {
	ID                    uint64     // registrations.id
	ClassID               uint64     // registrations.class_id
	ClientID              uint64     // registrations.client_id
	Status                string     // registrations.status
	PaymentStatus         string     // registrations.payment_status
	PaymentAmountCents    uint32     // registrations.payment_amount_cents
	PaymentMethod         string     // registrations.payment_method
	PaymentReference      string     // registrations.payment_reference
	UserConfirmedTransfer bool       // registrations.user_confirmed_transfer
	AdminVerifiedPayment  bool       // registrations.admin_verified_payment
	PaymentDeadline       time.Time  // registrations.payment_deadline
	ReservedUntil         *time.Time // registrations.reserved_until (nullable)
	CancelReason          *string    // registrations.cancel_reason (nullable)
	Attended              bool       // registrations.attended
	CreatedAt             time.Time  // registrations.created_at
	UpdatedAt             time.Time  // registrations.updated_at
}

// Live reports whether the registration currently occupies a seat in the
// capacity ledger.
func (r *Registration) Live() bool {
	return r.Status == RegistrationReserved ||
		r.Status == RegistrationConfirmed ||
		r.Status == RegistrationPending
}

// ValidMethod reports whether m is an accepted payment method.
func ValidMethod(m string) bool {
	return m == MethodBankTransfer || m == MethodPayOnArrival
}

// RegistrationWithClient pairs a registration with the client details an
// admin needs when viewing a class roster.
type RegistrationWithClient struct {
	Registration
	ClientEmail string // users.email
}
