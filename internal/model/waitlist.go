package model

import "time"

// WaitlistEntry is a client queued for a seat in a full class instance.
// Position is a monotonically increasing counter per instance assigned at
// insertion time, so the queue reflects insertion order.  Entries are never
// auto-promoted; freeing a seat only surfaces the head of the queue to the
// caller so staff can notify the client.
type WaitlistEntry struct {
	ID        uint64    // waitlist_entries.id
	ClassID   uint64    // waitlist_entries.class_id
	ClientID  uint64    // waitlist_entries.client_id
	Position  uint32    // waitlist_entries.position
	CreatedAt time.Time // waitlist_entries.created_at
}

// WaitlistCandidate is the next-in-line client surfaced when a seat frees.
type WaitlistCandidate struct {
	ClientID uint64 `json:"client_id"`
	Email    string `json:"email"`
	Position uint32 `json:"position"`
}

// BankAccount holds the active transfer destination embedded in booking
// confirmations.  Read-only; sourced from configuration.
type BankAccount struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
}
