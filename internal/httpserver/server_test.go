package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renewdesk/internal/api"
	"renewdesk/internal/dashboard"
	"renewdesk/internal/lifecycle"
	"renewdesk/internal/model"
	"renewdesk/internal/notice"
	"renewdesk/internal/repo"
	"renewdesk/internal/store"
)

type fakeSession struct {
	stores     dashboard.Stores
	refreshErr error
	refreshed  int

	actionErr   error
	calls       []string
	lastID      int64
	lastClient  api.NewClient
	lastUpdate  api.ClientUpdate
	lastRenew   api.RenewRequest
	lastComment string
	lastKey     string
	lastValue   any
}

func newFakeSession() *fakeSession {
	return &fakeSession{stores: dashboard.Stores{
		Cache:         store.NewCache(nil),
		UI:            store.NewUI(store.DefaultPrefs(), nil),
		Notifications: store.NewNotifications(nil, time.Hour, nil),
		Modals:        store.NewModals(),
	}}
}

func (f *fakeSession) Stores() dashboard.Stores { return f.stores }

func (f *fakeSession) Location() *time.Location { return time.UTC }

func (f *fakeSession) record(call string, id int64) error {
	f.calls = append(f.calls, call)
	f.lastID = id
	return f.actionErr
}

func (f *fakeSession) CreateClient(_ context.Context, in api.NewClient) (*model.Client, error) {
	f.lastClient = in
	if err := f.record("CreateClient", 0); err != nil {
		return nil, err
	}
	return &model.Client{ID: 99, FullName: in.FullName}, nil
}

func (f *fakeSession) UpdateClient(_ context.Context, id int64, in api.ClientUpdate) (*model.Client, error) {
	f.lastUpdate = in
	if err := f.record("UpdateClient", id); err != nil {
		return nil, err
	}
	return &model.Client{ID: id}, nil
}

func (f *fakeSession) DeleteClient(_ context.Context, id int64) error {
	return f.record("DeleteClient", id)
}

func (f *fakeSession) RenewClient(_ context.Context, id int64, in api.RenewRequest) (*api.RenewResult, error) {
	f.lastRenew = in
	if err := f.record("RenewClient", id); err != nil {
		return nil, err
	}
	return &api.RenewResult{Client: model.Client{ID: id}}, nil
}

func (f *fakeSession) UpdateComment(_ context.Context, id int64, comment string) error {
	f.lastComment = comment
	return f.record("UpdateComment", id)
}

func (f *fakeSession) DeleteComment(_ context.Context, id int64) error {
	return f.record("DeleteComment", id)
}

func (f *fakeSession) CreateTemplate(_ context.Context, in api.NewTemplate) (*model.Template, error) {
	if err := f.record("CreateTemplate", 0); err != nil {
		return nil, err
	}
	return &model.Template{ID: 5, Name: in.Name}, nil
}

func (f *fakeSession) UpdateTemplate(_ context.Context, id int64, _ api.TemplateUpdate) (*model.Template, error) {
	if err := f.record("UpdateTemplate", id); err != nil {
		return nil, err
	}
	return &model.Template{ID: id}, nil
}

func (f *fakeSession) DeleteTemplate(_ context.Context, id int64) error {
	return f.record("DeleteTemplate", id)
}

func (f *fakeSession) UpdateConfig(_ context.Context, key string, value any) (*model.ConfigEntry, error) {
	f.lastKey, f.lastValue = key, value
	if err := f.record("UpdateConfig", 0); err != nil {
		return nil, err
	}
	return &model.ConfigEntry{Key: key, Value: value}, nil
}

func (f *fakeSession) StartWhatsApp(context.Context) error { return f.record("StartWhatsApp", 0) }

func (f *fakeSession) StopWhatsApp(context.Context) error { return f.record("StopWhatsApp", 0) }

func (f *fakeSession) SendTestMessage(_ context.Context, number, _ string) error {
	f.lastKey = number
	return f.record("SendTestMessage", 0)
}

func (f *fakeSession) ClientViews(now time.Time) []store.ClientView {
	var out []store.ClientView
	for _, c := range f.stores.Cache.Clients.Snapshot() {
		out = append(out, store.NewClientView(c, now))
	}
	return out
}

func (f *fakeSession) StatusCounts(now time.Time) map[lifecycle.Status]int {
	counts := map[lifecycle.Status]int{}
	for _, v := range f.ClientViews(now) {
		counts[v.Status]++
	}
	return counts
}

func (f *fakeSession) Summaries(context.Context, bool) (map[model.ProductType]model.DashboardSummary, error) {
	return map[model.ProductType]model.DashboardSummary{
		model.ProductIPTV: {ProductType: model.ProductIPTV, ActiveClients: 2},
	}, nil
}

func (f *fakeSession) Refresh(context.Context) error {
	f.refreshed++
	return f.refreshErr
}

type fakeRunner struct {
	report notice.Report
	err    error
}

func (f fakeRunner) Run(context.Context) (notice.Report, error) { return f.report, f.err }

type fakeDispatches struct {
	limit int
}

func (f *fakeDispatches) ListDispatches(_ context.Context, limit int) ([]repo.DispatchRecord, error) {
	f.limit = limit
	return nil, nil
}

func newTestServer(deps Dependencies, basePath string) *Server {
	s := New(":0", slog.New(slog.NewTextHandler(io.Discard, nil)), nil, deps, basePath)
	s.now = func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	return doBody(t, s, method, path, "")
}

func doBody(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(Dependencies{}, "")
	rec := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/healthz")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStateAndClients(t *testing.T) {
	sess := newFakeSession()
	sess.stores.Cache.Clients.Set([]model.Client{
		{ID: 1, FullName: "Ana", ExpiresOn: "2025-03-10"},
		{ID: 2, FullName: "Bruno", ExpiresOn: "2025-01-01"},
	})
	sess.stores.Modals.Open("renovar", map[string]any{"cliente_id": 1})
	s := newTestServer(Dependencies{Session: sess}, "")

	rec := do(t, s, http.MethodGet, "/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		UI     store.UIState          `json:"ui"`
		Modals map[string]store.Modal `json:"modals"`
		Counts map[string]int         `json:"counts"`
		Total  int                    `json:"clients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, store.ThemeDark, state.UI.Theme)
	assert.True(t, state.Modals["renovar"].Open)
	assert.Equal(t, 2, state.Total)
	assert.Equal(t, 1, state.Counts["vencido"])

	rec = do(t, s, http.MethodGet, "/clients")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Clients []store.ClientView `json:"clientes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Clients, 2)
	assert.Equal(t, lifecycle.StatusDueToday, body.Clients[0].Status)
	assert.Equal(t, lifecycle.StatusExpired, body.Clients[1].Status)
}

func TestNotificationsDismiss(t *testing.T) {
	sess := newFakeSession()
	t.Cleanup(sess.stores.Notifications.Clear)
	id := sess.stores.Notifications.Add("Cliente criado com sucesso")
	s := newTestServer(Dependencies{Session: sess}, "")

	rec := do(t, s, http.MethodGet, "/notifications")
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []store.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, id, notes[0].ID)

	rec = do(t, s, http.MethodDelete, "/notifications/"+id)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, sess.stores.Notifications.Snapshot())
}

func TestRefresh(t *testing.T) {
	sess := newFakeSession()
	s := newTestServer(Dependencies{Session: sess}, "")

	rec := do(t, s, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sess.refreshed)

	sess.refreshErr = &api.Error{Op: "clients.list", Kind: api.ErrConnection}
	rec = do(t, s, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"erro":"Erro de conexão com o servidor"}`, rec.Body.String())
}

func TestSummaries(t *testing.T) {
	s := newTestServer(Dependencies{Session: newFakeSession()}, "")
	rec := do(t, s, http.MethodGet, "/summaries?refresh=true")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]model.DashboardSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got["IPTV"].ActiveClients)
}

func TestRunNotices(t *testing.T) {
	s := newTestServer(Dependencies{}, "")
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodPost, "/notices/run").Code)

	s = newTestServer(Dependencies{Notices: fakeRunner{report: notice.Report{Sent: 2}}}, "")
	rec := do(t, s, http.MethodPost, "/notices/run")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sent":2,"failed":0,"skipped":0}`, rec.Body.String())

	s = newTestServer(Dependencies{Notices: fakeRunner{err: notice.ErrBusy}}, "")
	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/notices/run").Code)

	s = newTestServer(Dependencies{Notices: fakeRunner{err: errors.New("boom")}}, "")
	assert.Equal(t, http.StatusBadGateway, do(t, s, http.MethodPost, "/notices/run").Code)
}

func TestDispatches(t *testing.T) {
	lister := &fakeDispatches{}
	s := newTestServer(Dependencies{Dispatches: lister}, "")
	rec := do(t, s, http.MethodGet, "/dispatches?limit=10")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, 10, lister.limit)
}

func TestSessionRoutesWithoutSession(t *testing.T) {
	s := newTestServer(Dependencies{}, "")
	for _, path := range []string{"/state", "/clients", "/notifications"} {
		assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, path).Code, path)
	}
	assert.Equal(t, http.StatusServiceUnavailable, doBody(t, s, http.MethodPatch, "/filters", `{}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodDelete, "/clients/7").Code)
}

func TestBasePath(t *testing.T) {
	s := newTestServer(Dependencies{}, "painel/")
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/painel/healthz").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/painelx/healthz").Code)
}

func TestFilterChangesReachPersistHook(t *testing.T) {
	sess := newFakeSession()
	var persisted []store.Prefs
	sess.stores.UI.OnPersist(func(p store.Prefs) { persisted = append(persisted, p) })
	s := newTestServer(Dependencies{Session: sess}, "")

	rec := doBody(t, s, http.MethodPatch, "/filters", `{"productType":"vpn","status":"vencido","endDate":"2025-03-31"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, persisted, 1)
	got := persisted[0].Filters
	assert.Equal(t, "VPN", got.ProductType)
	assert.Equal(t, "vencido", got.Status)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, "2025-03-31", got.EndDate.Format("2006-01-02"))
	assert.Nil(t, got.StartDate)

	rec = doBody(t, s, http.MethodPatch, "/filters", `{"endDate":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, persisted, 2)
	assert.Nil(t, persisted[1].Filters.EndDate)
	assert.Equal(t, "VPN", persisted[1].Filters.ProductType)

	rec = do(t, s, http.MethodDelete, "/filters")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, persisted, 3)
	assert.Equal(t, store.DefaultFilters(), persisted[2].Filters)
}

func TestFilterRejectsUnknownSelectors(t *testing.T) {
	sess := newFakeSession()
	s := newTestServer(Dependencies{Session: sess}, "")

	for _, body := range []string{
		`{"status":"atrasado"}`,
		`{"productType":"SMS"}`,
		`{"startDate":"31/03/2025"}`,
		`{"cor":"azul"}`,
		`{"status":`,
	} {
		rec := doBody(t, s, http.MethodPatch, "/filters", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, store.DefaultFilters(), sess.stores.UI.Filters())
}

func TestThemeAndSidebar(t *testing.T) {
	sess := newFakeSession()
	var persisted []store.Prefs
	sess.stores.UI.OnPersist(func(p store.Prefs) { persisted = append(persisted, p) })
	s := newTestServer(Dependencies{Session: sess}, "")

	require.Equal(t, http.StatusOK, doBody(t, s, http.MethodPut, "/ui/theme", `{"theme":"light"}`).Code)
	assert.Equal(t, store.ThemeLight, sess.stores.UI.Snapshot().Theme)
	assert.Equal(t, http.StatusBadRequest, doBody(t, s, http.MethodPut, "/ui/theme", `{"theme":"sepia"}`).Code)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/ui/theme/toggle").Code)
	assert.Equal(t, store.ThemeDark, sess.stores.UI.Snapshot().Theme)

	require.Equal(t, http.StatusOK, doBody(t, s, http.MethodPut, "/ui/sidebar", `{"open":false}`).Code)
	assert.False(t, sess.stores.UI.Snapshot().SidebarOpen)
	assert.Equal(t, http.StatusBadRequest, doBody(t, s, http.MethodPut, "/ui/sidebar", `{}`).Code)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/ui/sidebar/toggle").Code)
	assert.True(t, sess.stores.UI.Snapshot().SidebarOpen)
	assert.Len(t, persisted, 4)
}

func TestModalRoutes(t *testing.T) {
	sess := newFakeSession()
	s := newTestServer(Dependencies{Session: sess}, "")

	rec := doBody(t, s, http.MethodPut, "/modals/renovar", `{"cliente_id":7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sess.stores.Modals.IsOpen("renovar"))
	assert.Equal(t, float64(7), sess.stores.Modals.Payload("renovar")["cliente_id"])

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPut, "/modals/novo").Code)
	assert.True(t, sess.stores.Modals.IsOpen("novo"))

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/modals/renovar").Code)
	assert.False(t, sess.stores.Modals.IsOpen("renovar"))
	assert.Empty(t, sess.stores.Modals.Payload("renovar"))
}

func TestClientIntents(t *testing.T) {
	sess := newFakeSession()
	s := newTestServer(Dependencies{Session: sess}, "")

	rec := doBody(t, s, http.MethodPost, "/clients", `{"nome_completo":"Ana","telefone":"11987654321","tipo_produto":"IPTV"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Ana", sess.lastClient.FullName)
	assert.Equal(t, model.ProductIPTV, sess.lastClient.ProductType)

	rec = doBody(t, s, http.MethodPatch, "/clients/7", `{"plano_contratado":"Anual"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), sess.lastID)
	require.NotNil(t, sess.lastUpdate.Plan)
	assert.Equal(t, "Anual", *sess.lastUpdate.Plan)

	rec = doBody(t, s, http.MethodPost, "/clients/7/renew", `{"dias_renovacao":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, sess.lastRenew.Days)

	rec = doBody(t, s, http.MethodPut, "/clients/7/comment", `{"comentarios":"pagou"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "pagou", sess.lastComment)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/clients/7/comment").Code)
	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/clients/7").Code)

	assert.Equal(t, []string{
		"CreateClient", "UpdateClient", "RenewClient", "UpdateComment", "DeleteComment", "DeleteClient",
	}, sess.calls)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodDelete, "/clients/abc").Code)
	assert.Equal(t, http.StatusBadRequest, doBody(t, s, http.MethodPatch, "/clients/7", `{"plano_contratado":`).Code)
}

func TestIntentErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&api.Error{Op: "clients.delete", Status: 404, Kind: api.ErrNotFound}, http.StatusNotFound},
		{&api.Error{Op: "clients.delete", Status: 400, Kind: api.ErrValidation, Message: "Dados inválidos"}, http.StatusBadRequest},
		{&api.Error{Op: "clients.delete", Status: 500, Kind: api.ErrServer}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		sess := newFakeSession()
		sess.actionErr = tc.err
		s := newTestServer(Dependencies{Session: sess}, "")
		rec := do(t, s, http.MethodDelete, "/clients/7")
		assert.Equal(t, tc.want, rec.Code)
		assert.JSONEq(t, `{"erro":"`+api.UserMessage(tc.err)+`"}`, rec.Body.String())
	}
}

func TestTemplateAndConfigIntents(t *testing.T) {
	sess := newFakeSession()
	s := newTestServer(Dependencies{Session: sess}, "")

	assert.Equal(t, http.StatusCreated, doBody(t, s, http.MethodPost, "/templates", `{"nome":"Aviso"}`).Code)
	assert.Equal(t, http.StatusOK, doBody(t, s, http.MethodPatch, "/templates/5", `{"ativo":false}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/templates/5").Code)

	assert.Equal(t, http.StatusBadRequest, doBody(t, s, http.MethodPatch, "/configs/whatsapp_horario_inicio", `{}`).Code)
	rec := doBody(t, s, http.MethodPatch, "/configs/whatsapp_horario_inicio", `{"valor":"08:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "whatsapp_horario_inicio", sess.lastKey)
	assert.Equal(t, "08:00", sess.lastValue)

	assert.Equal(t, []string{"CreateTemplate", "UpdateTemplate", "DeleteTemplate", "UpdateConfig"}, sess.calls)
}

func TestWhatsAppIntents(t *testing.T) {
	sess := newFakeSession()
	s := newTestServer(Dependencies{Session: sess}, "")

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/whatsapp/start").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/whatsapp/stop").Code)
	rec := doBody(t, s, http.MethodPost, "/whatsapp/test", `{"numero":"5511987654321","mensagem":"oi"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "5511987654321", sess.lastKey)
	assert.Equal(t, []string{"StartWhatsApp", "StopWhatsApp", "SendTestMessage"}, sess.calls)
}

func TestStateReportsPendingExpiries(t *testing.T) {
	sess := newFakeSession()
	t.Cleanup(sess.stores.Notifications.Clear)
	sess.stores.Notifications.Add("Cliente criado com sucesso")
	sess.stores.Notifications.Add("Erro", store.Sticky())
	s := newTestServer(Dependencies{Session: sess}, "")

	rec := do(t, s, http.MethodGet, "/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var state struct {
		Notices  int `json:"notifications"`
		Expiring int `json:"pendingExpiries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 2, state.Notices)
	assert.Equal(t, 1, state.Expiring)
}
