package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"renewdesk/internal/api"
	"renewdesk/internal/lifecycle"
	"renewdesk/internal/model"
	"renewdesk/internal/store"
)

const maxBodyBytes = 1 << 20

func (s *Server) actionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("PATCH /filters", s.handleSetFilters)
	mux.HandleFunc("DELETE /filters", s.handleClearFilters)
	mux.HandleFunc("PUT /ui/theme", s.handleSetTheme)
	mux.HandleFunc("POST /ui/theme/toggle", s.handleToggleTheme)
	mux.HandleFunc("PUT /ui/sidebar", s.handleSetSidebar)
	mux.HandleFunc("POST /ui/sidebar/toggle", s.handleToggleSidebar)
	mux.HandleFunc("PUT /modals/{name}", s.handleOpenModal)
	mux.HandleFunc("DELETE /modals/{name}", s.handleCloseModal)

	mux.HandleFunc("POST /clients", s.handleCreateClient)
	mux.HandleFunc("PATCH /clients/{id}", s.handleUpdateClient)
	mux.HandleFunc("DELETE /clients/{id}", s.handleDeleteClient)
	mux.HandleFunc("POST /clients/{id}/renew", s.handleRenewClient)
	mux.HandleFunc("PUT /clients/{id}/comment", s.handleUpdateComment)
	mux.HandleFunc("DELETE /clients/{id}/comment", s.handleDeleteComment)

	mux.HandleFunc("POST /templates", s.handleCreateTemplate)
	mux.HandleFunc("PATCH /templates/{id}", s.handleUpdateTemplate)
	mux.HandleFunc("DELETE /templates/{id}", s.handleDeleteTemplate)

	mux.HandleFunc("PATCH /configs/{key}", s.handleUpdateConfig)

	mux.HandleFunc("POST /whatsapp/start", s.handleStartWhatsApp)
	mux.HandleFunc("POST /whatsapp/stop", s.handleStopWhatsApp)
	mux.HandleFunc("POST /whatsapp/test", s.handleTestMessage)
}

func (s *Server) handleSetFilters(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	var body map[string]json.RawMessage
	if !s.decode(w, r, &body) {
		return
	}
	opts, err := filterOptions(body, s.deps.Session.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ui := s.deps.Session.Stores().UI
	ui.SetFilters(opts...)
	writeJSON(w, ui.Filters())
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	ui := s.deps.Session.Stores().UI
	ui.ClearFilters()
	writeJSON(w, ui.Filters())
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	var body struct {
		Theme string `json:"theme"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.Theme != store.ThemeDark && body.Theme != store.ThemeLight {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("theme %q is not supported", body.Theme))
		return
	}
	ui := s.deps.Session.Stores().UI
	ui.SetTheme(body.Theme)
	writeJSON(w, ui.Snapshot())
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	ui := s.deps.Session.Stores().UI
	ui.ToggleTheme()
	writeJSON(w, ui.Snapshot())
}

func (s *Server) handleSetSidebar(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	var body struct {
		Open *bool `json:"open"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.Open == nil {
		writeError(w, http.StatusBadRequest, "open is required")
		return
	}
	ui := s.deps.Session.Stores().UI
	ui.SetSidebarOpen(*body.Open)
	writeJSON(w, ui.Snapshot())
}

func (s *Server) handleToggleSidebar(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	ui := s.deps.Session.Stores().UI
	ui.ToggleSidebar()
	writeJSON(w, ui.Snapshot())
}

func (s *Server) handleOpenModal(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	var payload map[string]any
	if !s.decode(w, r, &payload) {
		return
	}
	modals := s.deps.Session.Stores().Modals
	name := r.PathValue("name")
	modals.Open(name, payload)
	writeJSON(w, store.Modal{Open: true, Payload: modals.Payload(name)})
}

func (s *Server) handleCloseModal(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	s.deps.Session.Stores().Modals.Close(r.PathValue("name"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	var in api.NewClient
	if !s.decode(w, r, &in) {
		return
	}
	c, err := s.deps.Session.CreateClient(r.Context(), in)
	if err != nil {
		s.writeActionError(w, "create client", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{"cliente": c})
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var in api.ClientUpdate
	if !s.decode(w, r, &in) {
		return
	}
	c, err := s.deps.Session.UpdateClient(r.Context(), id, in)
	if err != nil {
		s.writeActionError(w, "update client", err)
		return
	}
	writeJSON(w, map[string]any{"cliente": c})
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Session.DeleteClient(r.Context(), id); err != nil {
		s.writeActionError(w, "delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenewClient(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var in api.RenewRequest
	if !s.decode(w, r, &in) {
		return
	}
	res, err := s.deps.Session.RenewClient(r.Context(), id, in)
	if err != nil {
		s.writeActionError(w, "renew client", err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Comment string `json:"comentarios"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.deps.Session.UpdateComment(r.Context(), id, body.Comment); err != nil {
		s.writeActionError(w, "update comment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Session.DeleteComment(r.Context(), id); err != nil {
		s.writeActionError(w, "delete comment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	var in api.NewTemplate
	if !s.decode(w, r, &in) {
		return
	}
	t, err := s.deps.Session.CreateTemplate(r.Context(), in)
	if err != nil {
		s.writeActionError(w, "create template", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{"template": t})
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var in api.TemplateUpdate
	if !s.decode(w, r, &in) {
		return
	}
	t, err := s.deps.Session.UpdateTemplate(r.Context(), id, in)
	if err != nil {
		s.writeActionError(w, "update template", err)
		return
	}
	writeJSON(w, map[string]any{"template": t})
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Session.DeleteTemplate(r.Context(), id); err != nil {
		s.writeActionError(w, "delete template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	var body map[string]json.RawMessage
	if !s.decode(w, r, &body) {
		return
	}
	raw, ok := body["valor"]
	if !ok {
		writeError(w, http.StatusBadRequest, "valor is required")
		return
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid valor")
		return
	}
	e, err := s.deps.Session.UpdateConfig(r.Context(), r.PathValue("key"), value)
	if err != nil {
		s.writeActionError(w, "update config", err)
		return
	}
	writeJSON(w, map[string]any{"configuracao": e})
}

func (s *Server) handleStartWhatsApp(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	if err := s.deps.Session.StartWhatsApp(r.Context()); err != nil {
		s.writeActionError(w, "start whatsapp", err)
		return
	}
	writeJSON(w, s.deps.Session.Stores().UI.Snapshot().WhatsApp)
}

func (s *Server) handleStopWhatsApp(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	if err := s.deps.Session.StopWhatsApp(r.Context()); err != nil {
		s.writeActionError(w, "stop whatsapp", err)
		return
	}
	writeJSON(w, s.deps.Session.Stores().UI.Snapshot().WhatsApp)
}

func (s *Server) handleTestMessage(w http.ResponseWriter, r *http.Request) {
	if !s.sessionReady(w) {
		return
	}
	var in api.TestMessage
	if !s.decode(w, r, &in) {
		return
	}
	if err := s.deps.Session.SendTestMessage(r.Context(), in.Number, in.Message); err != nil {
		s.writeActionError(w, "send test message", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// filterOptions turns a partial filter document into store options. Keys that
// are absent keep their value; a null or empty date clears its bound.
func filterOptions(body map[string]json.RawMessage, loc *time.Location) ([]store.FilterOption, error) {
	var opts []store.FilterOption
	for key, raw := range body {
		switch key {
		case "productType":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("invalid productType: %w", err)
			}
			if v != store.FilterAll {
				p, ok := model.ParseProductType(v)
				if !ok {
					return nil, fmt.Errorf("productType %q is not supported", v)
				}
				v = string(p)
			}
			opts = append(opts, store.WithProductType(v))
		case "status":
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("invalid status: %w", err)
			}
			if v != store.FilterAll {
				st, ok := lifecycle.ParseStatus(v)
				if !ok {
					return nil, fmt.Errorf("status %q is not supported", v)
				}
				v = string(st)
			}
			opts = append(opts, store.WithStatus(v))
		case "startDate", "endDate":
			t, err := filterDate(raw, loc)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			if key == "startDate" {
				opts = append(opts, store.WithStartDate(t))
			} else {
				opts = append(opts, store.WithEndDate(t))
			}
		default:
			return nil, fmt.Errorf("unknown filter %q", key)
		}
	}
	return opts, nil
}

func filterDate(raw json.RawMessage, loc *time.Location) (*time.Time, error) {
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if v == nil || *v == "" {
		return nil, nil
	}
	t, ok := lifecycle.ParseDate(*v, loc)
	if !ok {
		return nil, fmt.Errorf("unparseable date %q", *v)
	}
	return &t, nil
}

// decode reads a JSON body into dest. An empty body leaves dest untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dest)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if !s.sessionReady(w) {
		return 0, false
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// writeActionError reports a failed intent. The session has already posted the
// operator notification.
func (s *Server) writeActionError(w http.ResponseWriter, action string, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, api.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, api.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, api.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, api.ErrForbidden):
		status = http.StatusForbidden
	}
	s.logger.Warn(action+" failed", "status", status, "error", err)
	writeError(w, status, api.UserMessage(err))
}
