package store

import (
	"sync"
	"time"

	"renewdesk/internal/lifecycle"
	"renewdesk/internal/metrics"
	"renewdesk/internal/model"
)

const (
	// FilterAll disables a selector.
	FilterAll = "all"

	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Filters is the active selection shared by every client view.
type Filters struct {
	ProductType string     `json:"productType"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// DefaultFilters returns the selection used after ClearFilters.
func DefaultFilters() Filters {
	return Filters{ProductType: FilterAll, Status: FilterAll}
}

// FilterOption changes one filter field; fields without an option stay as they are.
type FilterOption func(*Filters)

// WithProductType selects a product type, or FilterAll.
func WithProductType(p string) FilterOption {
	return func(f *Filters) { f.ProductType = p }
}

// WithStatus selects a lifecycle status, or FilterAll.
func WithStatus(s string) FilterOption {
	return func(f *Filters) { f.Status = s }
}

// WithStartDate sets the lower expiration bound. Nil clears it.
func WithStartDate(t *time.Time) FilterOption {
	return func(f *Filters) { f.StartDate = cloneTime(t) }
}

// WithEndDate sets the upper expiration bound. Nil clears it.
func WithEndDate(t *time.Time) FilterOption {
	return func(f *Filters) { f.EndDate = cloneTime(t) }
}

// WithDateRange sets both bounds.
func WithDateRange(start, end *time.Time) FilterOption {
	return func(f *Filters) {
		f.StartDate = cloneTime(start)
		f.EndDate = cloneTime(end)
	}
}

// ClientView pairs a client with its derived lifecycle data.
type ClientView struct {
	Client        model.Client     `json:"cliente"`
	DaysRemaining *int             `json:"dias_restantes"`
	Status        lifecycle.Status `json:"status_vencimento"`
}

// NewClientView derives the lifecycle fields of c at now.
func NewClientView(c model.Client, now time.Time) ClientView {
	v := ClientView{Client: c}
	days, ok := lifecycle.DaysRemaining(c.ExpiresOn, now)
	if ok {
		v.DaysRemaining = &days
	}
	v.Status = lifecycle.FromDays(days, ok)
	return v
}

// Matches reports whether the view passes every active selector. Date bounds
// are inclusive and compare calendar days; clients without a parseable
// expiration never match a date bound.
func (f Filters) Matches(v ClientView, loc *time.Location) bool {
	if f.ProductType != "" && f.ProductType != FilterAll && string(v.Client.ProductType) != f.ProductType {
		return false
	}
	if f.Status != "" && f.Status != FilterAll && string(v.Status) != f.Status {
		return false
	}
	if f.StartDate == nil && f.EndDate == nil {
		return true
	}
	exp, ok := lifecycle.ParseDate(v.Client.ExpiresOn, loc)
	if !ok {
		return false
	}
	exp = startOfDay(exp.In(loc))
	if f.StartDate != nil && exp.Before(startOfDay(f.StartDate.In(loc))) {
		return false
	}
	if f.EndDate != nil && exp.After(startOfDay(f.EndDate.In(loc))) {
		return false
	}
	return true
}

// Query projects the filters onto the remote client listing parameters.
func (f Filters) Query() map[string]string {
	q := map[string]string{}
	if f.ProductType != "" && f.ProductType != FilterAll {
		q["tipo_produto"] = f.ProductType
	}
	if f.EndDate != nil {
		q["vencimento_ate"] = f.EndDate.Format("2006-01-02")
	}
	return q
}

// Prefs is the persisted subset of UI state.
type Prefs struct {
	Theme       string  `json:"theme"`
	SidebarOpen bool    `json:"sidebarOpen"`
	Filters     Filters `json:"filters"`
}

// DefaultPrefs returns the preferences of a fresh install.
func DefaultPrefs() Prefs {
	return Prefs{Theme: ThemeDark, SidebarOpen: true, Filters: DefaultFilters()}
}

// UIState is the snapshot of scalar UI state.
type UIState struct {
	Prefs
	Loading  bool                 `json:"loading"`
	WhatsApp model.WhatsAppStatus `json:"whatsapp"`
}

// WhatsAppPatch overwrites the channel status fields that are set.
type WhatsAppPatch struct {
	Running     *bool
	Connected   *bool
	QRAvailable *bool
}

// UI holds theme, sidebar, loading, channel status and filter state.
// Every change to the persisted subset is published to the persist hook.
type UI struct {
	mu      sync.Mutex
	state   UIState
	persist func(Prefs)
	metrics *metrics.Metrics
}

// NewUI creates the UI store seeded with prefs.
func NewUI(prefs Prefs, m *metrics.Metrics) *UI {
	prefs.Filters = normaliseFilters(prefs.Filters)
	if prefs.Theme != ThemeLight {
		prefs.Theme = ThemeDark
	}
	return &UI{state: UIState{Prefs: prefs}, metrics: m}
}

// OnPersist registers the hook that receives the persisted subset after every
// change to it.
func (u *UI) OnPersist(fn func(Prefs)) {
	u.mu.Lock()
	u.persist = fn
	u.mu.Unlock()
}

// Snapshot returns the current UI state.
func (u *UI) Snapshot() UIState {
	u.mu.Lock()
	defer u.mu.Unlock()
	s := u.state
	s.Filters = copyFilters(s.Filters)
	return s
}

// Filters returns the active filters.
func (u *UI) Filters() Filters {
	return u.Snapshot().Filters
}

// SetTheme switches between light and dark. Unknown themes are ignored.
func (u *UI) SetTheme(theme string) {
	if theme != ThemeDark && theme != ThemeLight {
		return
	}
	u.mutate("set_theme", true, func(s *UIState) { s.Theme = theme })
}

// ToggleTheme flips the theme.
func (u *UI) ToggleTheme() {
	u.mutate("toggle_theme", true, func(s *UIState) {
		if s.Theme == ThemeDark {
			s.Theme = ThemeLight
		} else {
			s.Theme = ThemeDark
		}
	})
}

// ToggleSidebar flips the sidebar flag.
func (u *UI) ToggleSidebar() {
	u.mutate("toggle_sidebar", true, func(s *UIState) { s.SidebarOpen = !s.SidebarOpen })
}

// SetSidebarOpen sets the sidebar flag.
func (u *UI) SetSidebarOpen(open bool) {
	u.mutate("set_sidebar", true, func(s *UIState) { s.SidebarOpen = open })
}

// SetLoading sets the volatile loading flag.
func (u *UI) SetLoading(loading bool) {
	u.mutate("set_loading", false, func(s *UIState) { s.Loading = loading })
}

// SetWhatsAppStatus merges the set fields into the channel status.
func (u *UI) SetWhatsAppStatus(p WhatsAppPatch) {
	u.mutate("set_whatsapp", false, func(s *UIState) {
		if p.Running != nil {
			s.WhatsApp.Running = *p.Running
		}
		if p.Connected != nil {
			s.WhatsApp.Connected = *p.Connected
		}
		if p.QRAvailable != nil {
			s.WhatsApp.QRAvailable = *p.QRAvailable
		}
	})
}

// ReplaceWhatsAppStatus overwrites the channel status with a fresh remote reading.
func (u *UI) ReplaceWhatsAppStatus(st model.WhatsAppStatus) {
	u.mutate("set_whatsapp", false, func(s *UIState) { s.WhatsApp = st })
}

// SetFilters merges opts into the active filters.
func (u *UI) SetFilters(opts ...FilterOption) {
	u.mutate("set_filters", true, func(s *UIState) {
		next := copyFilters(s.Filters)
		for _, opt := range opts {
			opt(&next)
		}
		s.Filters = normaliseFilters(next)
	})
}

// ClearFilters resets the filters to DefaultFilters.
func (u *UI) ClearFilters() {
	u.mutate("clear_filters", true, func(s *UIState) { s.Filters = DefaultFilters() })
}

// mutate applies fn and, for persisted fields, hands the new prefs to the hook
// while still holding the lock so the hook sees changes in order. The hook must
// not block or call back into the store.
func (u *UI) mutate(op string, persisted bool, fn func(*UIState)) {
	u.mu.Lock()
	fn(&u.state)
	if persisted && u.persist != nil {
		prefs := u.state.Prefs
		prefs.Filters = copyFilters(prefs.Filters)
		u.persist(prefs)
	}
	u.mu.Unlock()

	if u.metrics != nil {
		u.metrics.StoreMutations.WithLabelValues("ui", op).Inc()
	}
}

func normaliseFilters(f Filters) Filters {
	if f.ProductType == "" {
		f.ProductType = FilterAll
	}
	if f.Status == "" {
		f.Status = FilterAll
	}
	return f
}

func copyFilters(f Filters) Filters {
	f.StartDate = cloneTime(f.StartDate)
	f.EndDate = cloneTime(f.EndDate)
	return f
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
