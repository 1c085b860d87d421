package store

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"renewdesk/internal/metrics"
)

// Kind is the severity of a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// DefaultLifetime is how long a notification stays visible unless overridden.
const DefaultLifetime = 5 * time.Second

// Notification is a transient UI message. A zero Lifetime keeps it until dismissed.
type Notification struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	Title     string        `json:"title,omitempty"`
	Message   string        `json:"message"`
	Lifetime  time.Duration `json:"lifetime"`
	CreatedAt time.Time     `json:"createdAt"`
}

// NotifyOption customises a notification before it is queued.
type NotifyOption func(*Notification)

// WithKind sets the severity.
func WithKind(k Kind) NotifyOption {
	return func(n *Notification) { n.Kind = k }
}

// WithTitle sets a heading.
func WithTitle(title string) NotifyOption {
	return func(n *Notification) { n.Title = title }
}

// WithLifetime overrides the default lifetime. Zero or less makes it sticky.
func WithLifetime(d time.Duration) NotifyOption {
	return func(n *Notification) {
		if d < 0 {
			d = 0
		}
		n.Lifetime = d
	}
}

// Sticky keeps the notification until it is removed explicitly.
func Sticky() NotifyOption {
	return WithLifetime(0)
}

// Notifications is an ordered queue of self-expiring notifications.
type Notifications struct {
	mu       sync.Mutex
	items    []Notification
	timers   map[string]Timer
	sched    Scheduler
	lifetime time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
}

// NewNotifications creates an empty queue. A nil scheduler uses real timers;
// a non-positive lifetime falls back to DefaultLifetime.
func NewNotifications(sched Scheduler, lifetime time.Duration, m *metrics.Metrics) *Notifications {
	if sched == nil {
		sched = RealScheduler{}
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Notifications{
		timers:   make(map[string]Timer),
		sched:    sched,
		lifetime: lifetime,
		now:      time.Now,
		metrics:  m,
	}
}

// Add queues a notification and returns its id. Unless the lifetime is zero,
// exactly one removal is scheduled for when it elapses.
func (s *Notifications) Add(message string, opts ...NotifyOption) string {
	n := Notification{
		ID:       newNotificationID(),
		Kind:     KindInfo,
		Message:  message,
		Lifetime: s.lifetime,
	}
	for _, opt := range opts {
		opt(&n)
	}
	n.CreatedAt = s.now()

	s.mu.Lock()
	next := make([]Notification, len(s.items), len(s.items)+1)
	copy(next, s.items)
	s.items = append(next, n)
	if n.Lifetime > 0 {
		id := n.ID
		s.timers[id] = s.sched.AfterFunc(n.Lifetime, func() { s.expire(id) })
	}
	s.mu.Unlock()

	s.count("added")
	return n.ID
}

// Remove dismisses a notification. Removing an unknown id is a no-op.
func (s *Notifications) Remove(id string) {
	if s.remove(id) {
		s.count("dismissed")
	}
}

// Clear dismisses every notification and cancels their timers.
func (s *Notifications) Clear() {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.items = nil
	s.mu.Unlock()
	s.count("cleared")
}

// Snapshot returns the live notifications in insertion order.
func (s *Notifications) Snapshot() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Pending returns how many expiry timers are outstanding.
func (s *Notifications) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Notifications) expire(id string) {
	if s.remove(id) {
		s.count("expired")
	}
}

// remove drops id and its timer. A timer that already fired is harmless to stop.
func (s *Notifications) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	idx := slices.IndexFunc(s.items, func(n Notification) bool { return n.ID == id })
	if idx < 0 {
		return false
	}
	next := make([]Notification, 0, len(s.items)-1)
	next = append(next, s.items[:idx]...)
	s.items = append(next, s.items[idx+1:]...)
	return true
}

func (s *Notifications) count(event string) {
	if s.metrics != nil {
		s.metrics.Notifications.WithLabelValues(event).Inc()
	}
}

// newNotificationID returns a time-ordered UUIDv7 so ids sort by creation.
func newNotificationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
