package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renewdesk/internal/model"
)

func TestDefaultTemplatePath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/templates/padrao/{product}/{kind}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "IPTV", r.PathValue("product"))
		assert.Equal(t, "vencimento", r.PathValue("kind"))
		writeJSON(w, http.StatusOK, map[string]any{
			"template": map[string]any{"id": 3, "nome": "Padrão IPTV", "conteudo": "Olá {nome}", "padrao": true},
		})
	})
	c := newTestClient(t, mux, nil)

	tmpl, err := c.DefaultTemplate(context.Background(), model.ProductIPTV, model.TemplateExpiry)
	require.NoError(t, err)
	assert.Equal(t, int64(3), tmpl.ID)
	assert.True(t, tmpl.Default)
}

func TestPreviewTemplate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/templates/3/preview", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ana", body["nome"])
		assert.NotContains(t, body, "plano")
		writeJSON(w, http.StatusOK, map[string]any{
			"template_original":   "Olá {nome}",
			"mensagem_processada": "Olá Ana",
			"variaveis_usadas":    map[string]string{"nome": "Ana"},
		})
	})
	c := newTestClient(t, mux, nil)

	p, err := c.PreviewTemplate(context.Background(), 3, PreviewRequest{Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Olá Ana", p.Rendered)
	assert.Equal(t, "Ana", p.Variables["nome"])
}

func TestCreateTemplateValidatesKind(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), nil)
	_, err := c.CreateTemplate(context.Background(), NewTemplate{
		Name: "x", ProductType: model.ProductGeneral, Kind: "lembrete", Content: "oi",
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, UserMessage(err), "tipo_template")
}

func TestListLogsPaging(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/logs", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "7", q.Get("cliente_id"))
		assert.Equal(t, "falha", q.Get("status"))
		assert.Equal(t, "2", q.Get("page"))
		writeJSON(w, http.StatusOK, map[string]any{
			"logs": []map[string]any{
				{"id": 11, "cliente_id": 7, "status": "falha", "mensagem": "oi", "cliente_nome": "Ana"},
			},
			"total": 21, "pages": 2, "current_page": 2, "per_page": 20, "has_next": false, "has_prev": true,
		})
	})
	c := newTestClient(t, mux, nil)

	page, err := c.ListLogs(context.Background(), LogQuery{ClientID: 7, Status: "falha", Page: 2})
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)
	assert.Equal(t, model.MessageFailed, page.Logs[0].Status)
	assert.Equal(t, "Ana", page.Logs[0].ClientName)
	assert.Equal(t, 21, page.Total)
	assert.True(t, page.HasPrev)
}

func TestClientRenewalHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/renovacoes/cliente/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"cliente": map[string]any{"id": 7, "nome_completo": "Ana"},
			"renovacoes": []map[string]any{
				{"id": 1, "cliente_id": 7, "dias_renovados": 30, "valor_pago": 35.0},
			},
			"estatisticas": map[string]any{"total_renovacoes": 1, "valor_total_pago": 35.0},
		})
	})
	c := newTestClient(t, mux, nil)

	h, err := c.ClientRenewalHistory(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Ana", h.Client.FullName)
	require.Len(t, h.Renewals, 1)
	assert.Equal(t, 30, h.Renewals[0].DaysRenewed)
	assert.Equal(t, float64(1), h.Stats["total_renovacoes"])
}

func TestListRenewalsRejectsUnknownPeriod(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), nil)
	_, err := c.ListRenewals(context.Background(), RenewalQuery{Days: 45})
	require.ErrorIs(t, err, ErrValidation)
}

func TestMarkMessageSent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/clientes/marcar-mensagem-enviada/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"mensagem":                "Mensagem marcada como enviada",
			"ultima_mensagem_enviada": "2025-03-10T12:00:00",
		})
	})
	c := newTestClient(t, mux, nil)

	at, err := c.MarkMessageSent(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10T12:00:00", at)
}

func TestCommentEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/clientes/7/comentarios", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]any{
			"comentarios":            body["comentarios"],
			"data_ultimo_comentario": "2025-03-10T12:00:00",
		})
	})
	mux.HandleFunc("DELETE /api/clientes/7/comentarios", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"mensagem": "Comentário removido"})
	})
	c := newTestClient(t, mux, nil)

	res, err := c.UpdateComment(context.Background(), 7, "pagou")
	require.NoError(t, err)
	require.NotNil(t, res.Comment)
	assert.Equal(t, "pagou", *res.Comment)
	require.NoError(t, c.DeleteComment(context.Background(), 7))
}
