// Package lifecycle derives a client's expiry stage from its expiration date.
//
// Nothing here reads the wall clock: every function takes the reference instant
// explicitly, so results depend only on the arguments.
package lifecycle

import (
	"strings"
	"time"
)

// Status is the derived lifecycle stage of a client. It is never persisted.
type Status string

const (
	StatusUnknown  Status = "indefinido"
	StatusExpired  Status = "vencido"
	StatusDueToday Status = "vence_hoje"
	StatusExpiring Status = "vencendo"
	StatusUpcoming Status = "proximo_vencimento"
	StatusActive   Status = "ativo"
)

const day = 24 * time.Hour

// All lists every status from most to least urgent.
var All = []Status{
	StatusExpired,
	StatusDueToday,
	StatusExpiring,
	StatusUpcoming,
	StatusActive,
	StatusUnknown,
}

var labels = map[Status]string{
	StatusUnknown:  "Indefinido",
	StatusExpired:  "Vencido",
	StatusDueToday: "Vence hoje",
	StatusExpiring: "Vencendo",
	StatusUpcoming: "Próximo do vencimento",
	StatusActive:   "Ativo",
}

// Label returns the display text for the status.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStatus validates a status selector coming from filters or query strings.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := labels[s]; !ok {
		return "", false
	}
	return s, true
}

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date or timestamp. Values without an offset are
// read in loc; a bare date resolves to local midnight.
func ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysUntil returns ceil((expiration - now) / 24h).
func DaysUntil(expiration, now time.Time) int {
	diff := expiration.Sub(now)
	days := int(diff / day)
	// Integer division truncates toward zero, which is already the ceiling
	// for negative differences.
	if diff%day > 0 {
		days++
	}
	return days
}

// DaysRemaining parses expiration and returns the days left relative to now.
// The second result is false when the date is missing or malformed.
func DaysRemaining(expiration string, now time.Time) (int, bool) {
	t, ok := ParseDate(expiration, now.Location())
	if !ok {
		return 0, false
	}
	return DaysUntil(t, now), true
}

// FromDays maps a day count to a status. The first matching rule wins.
func FromDays(days int, ok bool) Status {
	switch {
	case !ok:
		return StatusUnknown
	case days < 0:
		return StatusExpired
	case days == 0:
		return StatusDueToday
	case days <= 3:
		return StatusExpiring
	case days <= 7:
		return StatusUpcoming
	default:
		return StatusActive
	}
}

// StatusOf derives the lifecycle status of an expiration date at now.
func StatusOf(expiration string, now time.Time) Status {
	return FromDays(DaysRemaining(expiration, now))
}
