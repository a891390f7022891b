package service

import "github.com/arvelin/class-booking/internal/model"

// BankInfoProvider supplies the active bank account embedded in transfer
// instructions. Read-only; no core logic depends on it.
type BankInfoProvider interface {
	ActiveAccount() model.BankAccount
}

// StaticBankInfo serves one account from configuration.
type StaticBankInfo struct {
	Account model.BankAccount
}

// ActiveAccount returns the configured account.
func (s *StaticBankInfo) ActiveAccount() model.BankAccount { return s.Account }
