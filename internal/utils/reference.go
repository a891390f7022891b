package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewBookingReference returns a short human-facing booking code such as
// "BK-9F3A27C1". Clients quote it as the bank transfer reference so staff
// can match incoming transfers to registrations. Uniqueness is enforced
// by the database; collisions on the 8-hex prefix are astronomically
// unlikely at this system's volume but would surface as an insert error.
func NewBookingReference() string {
	id := uuid.New()
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return "BK-" + hex[:8]
}
