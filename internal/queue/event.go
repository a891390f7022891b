// Package queue defines message payloads exchanged over the message broker.
package queue

// RegistrationConfirmedEvent is published when a registration reaches the
// confirmed state. It carries enough information for downstream consumers
// to send the confirmation email with transfer instructions without
// querying the primary database.
type RegistrationConfirmedEvent struct {
	EventID            string `json:"event_id"`
	RegistrationID     uint64 `json:"registration_id"`
	ClassID            uint64 `json:"class_id"`
	ClientID           uint64 `json:"client_id"`
	ClientEmail        string `json:"client_email"`
	ClassName          string `json:"class_name,omitempty"`
	StartsAt           string `json:"starts_at"`
	Location           string `json:"location,omitempty"`
	PaymentReference   string `json:"payment_reference"`
	PaymentAmountCents uint32 `json:"payment_amount_cents"`
	PaymentMethod      string `json:"payment_method"`
	BankName           string `json:"bank_name,omitempty"`
	BankAccountName    string `json:"bank_account_name,omitempty"`
	BankAccountNumber  string `json:"bank_account_number,omitempty"`
	ConfirmedAt        string `json:"confirmed_at"`
}
