// Package dashboard turns operator intents into store mutations and remote calls.
//
// Writes to existing entities are applied to the local cache first. When the
// remote rejects them the affected entity is reloaded from the remote, or
// restored from its previous value when the reload fails too. Every remote
// failure becomes an error notification.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"renewdesk/internal/api"
	"renewdesk/internal/lifecycle"
	"renewdesk/internal/model"
	"renewdesk/internal/store"
)

// Remote is the subset of the API client the session calls.
type Remote interface {
	ListClients(ctx context.Context, q api.ClientQuery) ([]model.Client, error)
	GetClient(ctx context.Context, id int64) (*model.Client, error)
	CreateClient(ctx context.Context, in api.NewClient) (*model.Client, error)
	UpdateClient(ctx context.Context, id int64, in api.ClientUpdate) (*model.Client, error)
	DeleteClient(ctx context.Context, id int64) error
	RenewClient(ctx context.Context, id int64, in api.RenewRequest) (*api.RenewResult, error)
	UpdateComment(ctx context.Context, id int64, comment string) (*api.CommentResult, error)
	DeleteComment(ctx context.Context, id int64) error
	Dashboard(ctx context.Context, product model.ProductType, forceRefresh bool) (*model.DashboardSummary, error)
	InvalidateDashboards(ctx context.Context) error

	ListTemplates(ctx context.Context, q api.TemplateQuery) ([]model.Template, error)
	CreateTemplate(ctx context.Context, in api.NewTemplate) (*model.Template, error)
	UpdateTemplate(ctx context.Context, id int64, in api.TemplateUpdate) (*model.Template, error)
	DeleteTemplate(ctx context.Context, id int64) error

	ListConfigs(ctx context.Context, category string) ([]model.ConfigEntry, error)
	UpdateConfig(ctx context.Context, key string, in api.ConfigUpdate) (*model.ConfigEntry, error)

	WhatsAppStatus(ctx context.Context) (model.WhatsAppStatus, error)
	StartWhatsApp(ctx context.Context) (string, error)
	StopWhatsApp(ctx context.Context) (string, error)
	SendTestMessage(ctx context.Context, in api.TestMessage) error
}

// Stores groups the local state a session drives.
type Stores struct {
	Cache         *store.Cache
	UI            *store.UI
	Notifications *store.Notifications
	Modals        *store.Modals
}

// Session is one operator's view of the dashboard.
type Session struct {
	remote Remote
	stores Stores
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

// New creates a session. A nil loc uses the local zone.
func New(remote Remote, stores Stores, loc *time.Location, logger *slog.Logger) *Session {
	if loc == nil {
		loc = time.Local
	}
	return &Session{
		remote: remote,
		stores: stores,
		logger: logger.With("component", "dashboard"),
		loc:    loc,
		now:    time.Now,
	}
}

// Stores returns the stores driven by the session.
func (s *Session) Stores() Stores {
	return s.stores
}

// Refresh reloads every cached collection and the channel status. Collections
// that load are replaced even when others fail.
func (s *Session) Refresh(ctx context.Context) error {
	s.stores.UI.SetLoading(true)
	defer s.stores.UI.SetLoading(false)

	var errs []error
	if clients, err := s.remote.ListClients(ctx, clientQuery(s.stores.UI.Filters())); err != nil {
		errs = append(errs, fmt.Errorf("list clients: %w", err))
	} else {
		s.stores.Cache.Clients.Set(clients)
	}
	if templates, err := s.remote.ListTemplates(ctx, api.TemplateQuery{}); err != nil {
		errs = append(errs, fmt.Errorf("list templates: %w", err))
	} else {
		s.stores.Cache.Templates.Set(templates)
	}
	if configs, err := s.remote.ListConfigs(ctx, ""); err != nil {
		errs = append(errs, fmt.Errorf("list configs: %w", err))
	} else {
		s.stores.Cache.Configs.Set(configs)
	}
	if st, err := s.remote.WhatsAppStatus(ctx); err != nil {
		s.logger.Warn("read whatsapp status failed", "error", err)
	} else {
		s.stores.UI.ReplaceWhatsAppStatus(st)
	}

	if len(errs) > 0 {
		s.failAll(errs)
		return errors.Join(errs...)
	}
	return nil
}

// Location returns the zone calendar dates are read in.
func (s *Session) Location() *time.Location {
	return s.loc
}

// clientQuery narrows the remote listing to the filters the remote understands.
// The remaining selectors are applied locally by ClientViews.
func clientQuery(f store.Filters) api.ClientQuery {
	q := f.Query()
	return api.ClientQuery{
		ProductType:  q["tipo_produto"],
		ExpiresUntil: q["vencimento_ate"],
	}
}

// ClientViews returns the cached clients that pass the active filters, with
// their lifecycle status derived at now.
func (s *Session) ClientViews(now time.Time) []store.ClientView {
	filters := s.stores.UI.Filters()
	clients := s.stores.Cache.Clients.Snapshot()
	out := make([]store.ClientView, 0, len(clients))
	for _, c := range clients {
		v := store.NewClientView(c, now.In(s.loc))
		if filters.Matches(v, s.loc) {
			out = append(out, v)
		}
	}
	return out
}

// StatusCounts tallies every cached client by lifecycle status at now,
// ignoring the local filters.
func (s *Session) StatusCounts(now time.Time) map[lifecycle.Status]int {
	counts := make(map[lifecycle.Status]int, len(lifecycle.All))
	for _, st := range lifecycle.All {
		counts[st] = 0
	}
	for _, c := range s.stores.Cache.Clients.Snapshot() {
		counts[lifecycle.StatusOf(c.ExpiresOn, now.In(s.loc))]++
	}
	return counts
}

// Summaries fetches the dashboard aggregates of every product type. Products
// that fail are left out and reported in the error.
func (s *Session) Summaries(ctx context.Context, forceRefresh bool) (map[model.ProductType]model.DashboardSummary, error) {
	out := make(map[model.ProductType]model.DashboardSummary, len(model.ProductTypes))
	var errs []error
	for _, p := range model.ProductTypes {
		sum, err := s.remote.Dashboard(ctx, p, forceRefresh)
		if err != nil {
			errs = append(errs, fmt.Errorf("dashboard %s: %w", p, err))
			continue
		}
		out[p] = *sum
	}
	if len(errs) > 0 {
		s.failAll(errs)
	}
	return out, errors.Join(errs...)
}

func (s *Session) succeed(msg string) {
	s.stores.Notifications.Add(msg, store.WithKind(store.KindSuccess))
}

// fail reports err to the operator. It returns err unchanged.
func (s *Session) fail(err error) error {
	s.stores.Notifications.Add(api.UserMessage(err), store.WithKind(store.KindError))
	return err
}

// failAll posts one error notification per distinct user message in errs.
func (s *Session) failAll(errs []error) {
	seen := make(map[string]bool, len(errs))
	for _, err := range errs {
		msg := api.UserMessage(err)
		if seen[msg] {
			continue
		}
		seen[msg] = true
		s.stores.Notifications.Add(msg, store.WithKind(store.KindError))
	}
}

func (s *Session) invalidate(ctx context.Context) {
	if err := s.remote.InvalidateDashboards(ctx); err != nil {
		s.logger.Warn("invalidate dashboard cache failed", "error", err)
	}
}
