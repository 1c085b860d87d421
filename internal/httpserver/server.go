package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"renewdesk/internal/api"
	"renewdesk/internal/dashboard"
	"renewdesk/internal/lifecycle"
	"renewdesk/internal/metrics"
	"renewdesk/internal/model"
	"renewdesk/internal/notice"
	"renewdesk/internal/repo"
	"renewdesk/internal/store"
)

// Session is the dashboard state served over HTTP and the operator intents
// dispatched into it.
type Session interface {
	Stores() dashboard.Stores
	Location() *time.Location
	ClientViews(now time.Time) []store.ClientView
	StatusCounts(now time.Time) map[lifecycle.Status]int
	Summaries(ctx context.Context, forceRefresh bool) (map[model.ProductType]model.DashboardSummary, error)
	Refresh(ctx context.Context) error

	CreateClient(ctx context.Context, in api.NewClient) (*model.Client, error)
	UpdateClient(ctx context.Context, id int64, in api.ClientUpdate) (*model.Client, error)
	DeleteClient(ctx context.Context, id int64) error
	RenewClient(ctx context.Context, id int64, in api.RenewRequest) (*api.RenewResult, error)
	UpdateComment(ctx context.Context, id int64, comment string) error
	DeleteComment(ctx context.Context, id int64) error

	CreateTemplate(ctx context.Context, in api.NewTemplate) (*model.Template, error)
	UpdateTemplate(ctx context.Context, id int64, in api.TemplateUpdate) (*model.Template, error)
	DeleteTemplate(ctx context.Context, id int64) error
	UpdateConfig(ctx context.Context, key string, value any) (*model.ConfigEntry, error)

	StartWhatsApp(ctx context.Context) error
	StopWhatsApp(ctx context.Context) error
	SendTestMessage(ctx context.Context, number, text string) error
}

// NoticeRunner triggers a notice dispatch run.
type NoticeRunner interface {
	Run(ctx context.Context) (notice.Report, error)
}

// DispatchLister reads the local dispatch log.
type DispatchLister interface {
	ListDispatches(ctx context.Context, limit int) ([]repo.DispatchRecord, error)
}

// Dependencies exposes core dependencies to handlers that need them. Nil
// optional fields disable their routes with 503.
type Dependencies struct {
	Session    Session
	Notices    NoticeRunner
	Dispatches DispatchLister
}

// Server wraps an http.Server with predefined routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deps       Dependencies
	basePath   string
	now        func() time.Time
}

// New creates a new HTTP server listening on addr with health, metrics and
// dashboard snapshot endpoints.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, deps Dependencies, basePath string) *Server {
	server := &Server{
		logger:   logger.With("component", "http"),
		metrics:  metricRegistry,
		deps:     deps,
		basePath: normaliseBasePath(basePath),
		now:      time.Now,
	}

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mountWithBasePath(server.basePath, server.routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if server.basePath != "" {
		server.logger.Info("http server configured with base path", "base_path", server.basePath)
	}

	return server
}

// Handler returns the root handler, including the base path.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /clients", s.handleClients)
	mux.HandleFunc("GET /summaries", s.handleSummaries)
	mux.HandleFunc("GET /notifications", s.handleNotifications)
	mux.HandleFunc("DELETE /notifications/{id}", s.handleDismiss)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("POST /notices/run", s.handleRunNotices)
	mux.HandleFunc("GET /dispatches", s.handleDispatches)
	s.actionRoutes(mux)
	return mux
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

type stateResponse struct {
	UI       store.UIState            `json:"ui"`
	Modals   map[string]store.Modal   `json:"modals"`
	Counts   map[lifecycle.Status]int `json:"counts"`
	Clients  int                      `json:"clients"`
	Notices  int                      `json:"notifications"`
	Expiring int                      `json:"pendingExpiries"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	stores := s.deps.Session.Stores()
	writeJSON(w, stateResponse{
		UI:       stores.UI.Snapshot(),
		Modals:   stores.Modals.Snapshot(),
		Counts:   s.deps.Session.StatusCounts(s.now()),
		Clients:  stores.Cache.Clients.Len(),
		Notices:  len(stores.Notifications.Snapshot()),
		Expiring: stores.Notifications.Pending(),
	})
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	writeJSON(w, map[string]any{"clientes": s.deps.Session.ClientViews(s.now())})
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	sums, err := s.deps.Session.Summaries(r.Context(), force)
	if err != nil && len(sums) == 0 {
		s.logger.Error("load dashboard summaries failed", "error", err)
		writeError(w, http.StatusBadGateway, api.UserMessage(err))
		return
	}
	writeJSON(w, sums)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	writeJSON(w, s.deps.Session.Stores().Notifications.Snapshot())
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	s.deps.Session.Stores().Notifications.Remove(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	if err := s.deps.Session.Refresh(r.Context()); err != nil {
		s.logger.Error("refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, api.UserMessage(err))
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleRunNotices(w http.ResponseWriter, r *http.Request) {
	if s.deps.Notices == nil {
		writeError(w, http.StatusServiceUnavailable, "notice dispatch disabled")
		return
	}
	report, err := s.deps.Notices.Run(r.Context())
	switch {
	case errors.Is(err, notice.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.logger.Error("notice run failed", "error", err)
		writeError(w, http.StatusBadGateway, api.UserMessage(err))
	default:
		writeJSON(w, report)
	}
}

func (s *Server) handleDispatches(w http.ResponseWriter, r *http.Request) {
	if s.deps.Dispatches == nil {
		writeError(w, http.StatusServiceUnavailable, "dispatch log unavailable")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.deps.Dispatches.ListDispatches(r.Context(), limit)
	if err != nil {
		s.logger.Error("list dispatches failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed listing dispatches")
		return
	}
	if records == nil {
		records = []repo.DispatchRecord{}
	}
	writeJSON(w, records)
}

func (s *Server) sessionReady(w http.ResponseWriter) bool {
	if s.deps.Session == nil {
		writeError(w, http.StatusServiceUnavailable, "session unavailable")
		return false
	}
	return true
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"erro": msg})
}

func mountWithBasePath(basePath string, handler http.Handler) http.Handler {
	if basePath == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, basePath) {
			http.NotFound(w, r)
			return
		}
		if len(r.URL.Path) > len(basePath) && r.URL.Path[len(basePath)] != '/' {
			http.NotFound(w, r)
			return
		}
		trimmed := strings.TrimPrefix(r.URL.Path, basePath)
		if trimmed == "" {
			trimmed = "/"
		}
		r.URL.Path = trimmed
		if r.URL.RawPath != "" {
			rawTrimmed := strings.TrimPrefix(r.URL.RawPath, basePath)
			if rawTrimmed == "" {
				rawTrimmed = "/"
			}
			r.URL.RawPath = rawTrimmed
		}
		handler.ServeHTTP(w, r)
	})
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}
