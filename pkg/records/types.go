package records

import (
	"fmt"
	"strings"
	"time"
)

// TerminalEntitlement is the sentinel entitlement a record is reset to when
// access is revoked. A record holding only this entitlement is fully revoked
// and must never be revoked again.
const TerminalEntitlement = "Leads"

// Record represents one paying customer in the external record store.
// JSON field names follow the clientes table columns.
type Record struct {
	ID   int64  `json:"id"`
	Name string `json:"nome"`

	// Entitlements lists the group-access tiers the subscription grants.
	// Reset to {TerminalEntitlement} on revocation.
	Entitlements []string `json:"carteiras"`

	// SubscriptionEnd is externally set and read-only to this service.
	SubscriptionEnd Date `json:"data_expiracao"`

	// TelegramUserID is nil until first successful activation, immutable after.
	TelegramUserID    *int64 `json:"telegram_user_id"`
	TelegramUsername  string `json:"telegram_username,omitempty"`
	TelegramFirstName string `json:"telegram_first_name,omitempty"`

	Connected bool       `json:"conectado"`
	LastSync  *time.Time `json:"ultimo_sync,omitempty"`
	RemovedAt *time.Time `json:"removido_em,omitempty"`
}

// Revoked reports whether the record is in the terminal revoked state
// (entitlements reduced to exactly the sentinel)
func (r *Record) Revoked() bool {
	return len(r.Entitlements) == 1 && r.Entitlements[0] == TerminalEntitlement
}

// Expired reports whether the subscription has ended as of the given date.
// A subscription ending exactly on asOf is already expired.
func (r *Record) Expired(asOf Date) bool {
	return !asOf.Before(r.SubscriptionEnd)
}

// Date is a calendar date without a time component, serialized as
// "2006-01-02" the way the record store's date columns are.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate creates a Date from its components
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the UTC calendar date of the given instant
func DateOf(t time.Time) Date {
	year, month, day := t.UTC().Date()
	return Date{Year: year, Month: month, Day: day}
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns the date as a UTC midnight instant
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as "2006-01-02"
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON serializes the date as a quoted "2006-01-02" string
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses a quoted date, accepting a bare date or a full
// timestamp (the store may return either depending on column type)
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}

	// Bare dates parse directly; timestamps are truncated to their date part
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}

	*d = DateOf(t)
	return nil
}
