package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saoPaulo = time.FixedZone("BRT", -3*60*60)

func refNow() time.Time {
	return time.Date(2025, time.March, 10, 14, 30, 0, 0, saoPaulo)
}

func TestFromDaysBoundaries(t *testing.T) {
	cases := []struct {
		days int
		ok   bool
		want Status
	}{
		{0, false, StatusUnknown},
		{-30, true, StatusExpired},
		{-1, true, StatusExpired},
		{0, true, StatusDueToday},
		{1, true, StatusExpiring},
		{2, true, StatusExpiring},
		{3, true, StatusExpiring},
		{4, true, StatusUpcoming},
		{7, true, StatusUpcoming},
		{8, true, StatusActive},
		{365, true, StatusActive},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FromDays(tc.days, tc.ok), "days=%d ok=%v", tc.days, tc.ok)
	}
}

func TestDaysUntilRoundsUp(t *testing.T) {
	now := refNow()

	assert.Equal(t, 1, DaysUntil(now.Add(time.Minute), now))
	assert.Equal(t, 1, DaysUntil(now.Add(24*time.Hour), now))
	assert.Equal(t, 2, DaysUntil(now.Add(24*time.Hour+time.Second), now))
	assert.Equal(t, 0, DaysUntil(now, now))
	assert.Equal(t, 0, DaysUntil(now.Add(-23*time.Hour), now))
	assert.Equal(t, -1, DaysUntil(now.Add(-24*time.Hour), now))
}

func TestStatusOfPastDatesIsExpired(t *testing.T) {
	now := refNow()
	for _, raw := range []string{"2025-03-08", "2024-12-31", "2025-03-09T10:00:00", "2020-01-01T00:00:00Z"} {
		assert.Equal(t, StatusExpired, StatusOf(raw, now), raw)
	}
}

func TestStatusOfStartOfTodayIsDueToday(t *testing.T) {
	now := refNow()
	assert.Equal(t, StatusDueToday, StatusOf("2025-03-10", now))

	days, ok := DaysRemaining("2025-03-10", now)
	require.True(t, ok)
	assert.Equal(t, 0, days)
}

func TestStatusOfFutureDates(t *testing.T) {
	now := refNow()

	// Bare dates resolve to local midnight, so "tomorrow" is less than a full
	// day away at 14:30 and still counts as one day.
	assert.Equal(t, StatusExpiring, StatusOf("2025-03-11", now))
	assert.Equal(t, StatusExpiring, StatusOf("2025-03-13", now))
	assert.Equal(t, StatusUpcoming, StatusOf("2025-03-14", now))
	assert.Equal(t, StatusUpcoming, StatusOf("2025-03-17", now))
	assert.Equal(t, StatusActive, StatusOf("2025-03-18", now))
}

func TestStatusOfMissingOrMalformedIsUnknown(t *testing.T) {
	now := refNow()
	for _, raw := range []string{"", "   ", "not-a-date", "2025-13-45", "10/03/2025"} {
		assert.Equal(t, StatusUnknown, StatusOf(raw, now), raw)
		_, ok := DaysRemaining(raw, now)
		assert.False(t, ok, raw)
	}
}

func TestStatusOfIsIdempotent(t *testing.T) {
	now := refNow()
	first := StatusOf("2025-03-12", now)
	second := StatusOf("2025-03-12", now)
	assert.Equal(t, first, second)
	assert.Equal(t, StatusExpiring, first)
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" Vencido ")
	require.True(t, ok)
	assert.Equal(t, StatusExpired, s)

	_, ok = ParseStatus("all")
	assert.False(t, ok)

	assert.Equal(t, "Vence hoje", StatusDueToday.Label())
	assert.Equal(t, "whatever", Status("whatever").Label())
}
