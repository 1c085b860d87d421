package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(items []Notification) []string {
	out := make([]string, 0, len(items))
	for _, n := range items {
		out = append(out, n.ID)
	}
	return out
}

func TestAddAppliesDefaults(t *testing.T) {
	sched := &manualScheduler{}
	s := NewNotifications(sched, 0, nil)

	id := s.Add("Cliente salvo")
	require.NotEmpty(t, id)

	items := s.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, KindInfo, items[0].Kind)
	assert.Equal(t, DefaultLifetime, items[0].Lifetime)
	assert.Equal(t, 1, sched.active())
}

func TestAddKeepsInsertionOrderAndDistinctIDs(t *testing.T) {
	s := NewNotifications(&manualScheduler{}, time.Second, nil)

	a := s.Add("a")
	b := s.Add("b", WithKind(KindError), WithTitle("Erro"))
	c := s.Add("c")

	assert.Equal(t, []string{a, b, c}, ids(s.Snapshot()))
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, b, c)
	assert.Equal(t, KindError, s.Snapshot()[1].Kind)
	assert.Equal(t, "Erro", s.Snapshot()[1].Title)
}

func TestStickyNotificationNeverExpires(t *testing.T) {
	sched := &manualScheduler{}
	s := NewNotifications(sched, time.Second, nil)

	id := s.Add("persistente", Sticky())
	assert.Equal(t, 0, sched.active())

	sched.Advance(24 * time.Hour)
	sched.Advance(365 * 24 * time.Hour)

	assert.Equal(t, []string{id}, ids(s.Snapshot()))
}

func TestExpiryRemovesOnlyThatNotification(t *testing.T) {
	sched := &manualScheduler{}
	s := NewNotifications(sched, 10*time.Second, nil)

	short := s.Add("short", WithLifetime(2*time.Second))
	long := s.Add("long")
	sticky := s.Add("sticky", Sticky())

	sched.Advance(time.Second)
	assert.Equal(t, []string{short, long, sticky}, ids(s.Snapshot()))

	sched.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{long, sticky}, ids(s.Snapshot()))
	assert.Equal(t, 1, s.Pending())

	sched.Advance(10 * time.Second)
	assert.Equal(t, []string{sticky}, ids(s.Snapshot()))
	assert.Equal(t, 0, s.Pending())
}

func TestRemoveCancelsTimerAndIsIdempotent(t *testing.T) {
	sched := &manualScheduler{}
	s := NewNotifications(sched, time.Second, nil)

	id := s.Add("dismiss me")
	keep := s.Add("keep", Sticky())
	s.Remove(id)
	s.Remove(id)
	s.Remove("unknown")

	assert.Equal(t, []string{keep}, ids(s.Snapshot()))
	assert.Equal(t, 0, sched.active())
	assert.Equal(t, 0, s.Pending())
}

func TestLateTimerAfterManualRemovalIsNoop(t *testing.T) {
	sched := &manualScheduler{}
	s := NewNotifications(sched, time.Second, nil)

	id := s.Add("racing")
	timer := sched.last()
	other := s.Add("other", Sticky())

	s.Remove(id)
	// The runtime may already have dequeued the timer when Remove stopped it.
	timer.f()

	assert.Equal(t, []string{other}, ids(s.Snapshot()))
}

func TestClearDropsEverything(t *testing.T) {
	sched := &manualScheduler{}
	s := NewNotifications(sched, time.Second, nil)

	s.Add("a")
	s.Add("b", Sticky())
	s.Clear()

	assert.Empty(t, s.Snapshot())
	assert.Equal(t, 0, s.Pending())

	sched.Advance(time.Minute)
	assert.Empty(t, s.Snapshot())

	id := s.Add("after clear")
	assert.Equal(t, []string{id}, ids(s.Snapshot()))
}

func TestNegativeLifetimeIsSticky(t *testing.T) {
	sched := &manualScheduler{}
	s := NewNotifications(sched, time.Second, nil)

	s.Add("x", WithLifetime(-time.Second))
	assert.Equal(t, 0, sched.active())
	assert.Equal(t, time.Duration(0), s.Snapshot()[0].Lifetime)
}
