package store

import (
	"renewdesk/internal/metrics"
	"renewdesk/internal/model"
)

// Cache is the local replica of remote-owned entities.
type Cache struct {
	Clients   *Collection[int64, model.Client]
	Templates *Collection[int64, model.Template]
	Configs   *Collection[string, model.ConfigEntry]
}

// NewCache builds empty collections. m may be nil.
func NewCache(m *metrics.Metrics) *Cache {
	c := &Cache{
		Clients:   NewCollection(func(c model.Client) int64 { return c.ID }),
		Templates: NewCollection(func(t model.Template) int64 { return t.ID }),
		Configs:   NewCollection(func(e model.ConfigEntry) string { return e.Key }),
	}
	if m != nil {
		c.Clients.onApply = mutationCounter(m, "clients")
		c.Templates.onApply = mutationCounter(m, "templates")
		c.Configs.onApply = mutationCounter(m, "configs")
	}
	return c
}

func mutationCounter(m *metrics.Metrics, name string) func(string) {
	return func(op string) {
		m.StoreMutations.WithLabelValues(name, op).Inc()
	}
}

// ClientPatch lists client fields to overwrite. Nil fields are left untouched.
type ClientPatch struct {
	FullName          *string
	Phone             *string
	ProductType       *model.ProductType
	Plan              *string
	PlanValue         *float64
	ExpiresOn         *string
	SendTime          *string
	TemplateID        *int64
	CustomMessage     *string
	NoticeEnabled     *bool
	NoticeDaysAhead   *int
	NoticeTime        *string
	Comment           *string
	LastCommentAt     *string
	ClearComment      bool
	Active            *bool
	LastMessageSentAt *string
	UpdatedAt         *string
}

// Apply returns c with the patch merged in. c itself is not modified.
func (p ClientPatch) Apply(c model.Client) model.Client {
	setString(&c.FullName, p.FullName)
	setString(&c.Phone, p.Phone)
	if p.ProductType != nil {
		c.ProductType = *p.ProductType
	}
	setString(&c.Plan, p.Plan)
	if p.PlanValue != nil {
		c.PlanValue = *p.PlanValue
	}
	setString(&c.ExpiresOn, p.ExpiresOn)
	setString(&c.SendTime, p.SendTime)
	if p.TemplateID != nil {
		c.TemplateID = ptr(*p.TemplateID)
	}
	setOptional(&c.CustomMessage, p.CustomMessage)
	if p.NoticeEnabled != nil {
		c.NoticeEnabled = *p.NoticeEnabled
	}
	if p.NoticeDaysAhead != nil {
		c.NoticeDaysAhead = *p.NoticeDaysAhead
	}
	setOptional(&c.NoticeTime, p.NoticeTime)
	if p.ClearComment {
		c.Comment = nil
		c.LastCommentAt = nil
	}
	setOptional(&c.Comment, p.Comment)
	setOptional(&c.LastCommentAt, p.LastCommentAt)
	if p.Active != nil {
		c.Active = *p.Active
	}
	setOptional(&c.LastMessageSentAt, p.LastMessageSentAt)
	setOptional(&c.UpdatedAt, p.UpdatedAt)
	return c
}

// TemplatePatch lists template fields to overwrite.
type TemplatePatch struct {
	Name        *string
	ProductType *model.ProductType
	Kind        *model.TemplateKind
	Content     *string
	Variables   *string
	Active      *bool
	Default     *bool
}

// Apply returns t with the patch merged in.
func (p TemplatePatch) Apply(t model.Template) model.Template {
	setString(&t.Name, p.Name)
	if p.ProductType != nil {
		t.ProductType = *p.ProductType
	}
	if p.Kind != nil {
		t.Kind = *p.Kind
	}
	setString(&t.Content, p.Content)
	setOptional(&t.Variables, p.Variables)
	if p.Active != nil {
		t.Active = *p.Active
	}
	if p.Default != nil {
		t.Default = *p.Default
	}
	return t
}

// ConfigPatch overwrites a configuration value and optionally its description.
type ConfigPatch struct {
	Value       any
	Description *string
}

// Apply returns e with the patch merged in.
func (p ConfigPatch) Apply(e model.ConfigEntry) model.ConfigEntry {
	if p.Value != nil {
		e.Value = p.Value
	}
	setOptional(&e.Description, p.Description)
	return e
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// setOptional copies the pointee so the patched entity never aliases patch memory.
func setOptional(dst **string, src *string) {
	if src != nil {
		*dst = ptr(*src)
	}
}

func ptr[T any](v T) *T {
	return &v
}
