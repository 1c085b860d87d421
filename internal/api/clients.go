package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"renewdesk/internal/model"
)

// ClientQuery filters the client listing. Zero fields are not sent.
type ClientQuery struct {
	ProductType  string
	Active       *bool
	ExpiresUntil string `validate:"omitempty,len=10"`
}

// NewClient is the payload for creating a client.
type NewClient struct {
	FullName        string            `json:"nome_completo" validate:"required"`
	Phone           string            `json:"telefone" validate:"required,min=10"`
	ProductType     model.ProductType `json:"tipo_produto" validate:"required,oneof=IPTV VPN OUTROS"`
	Plan            string            `json:"plano_contratado" validate:"required"`
	PlanValue       float64           `json:"valor_plano" validate:"gt=0"`
	ExpiresOn       string            `json:"data_vencimento" validate:"required,len=10"`
	SendTime        string            `json:"horario_envio" validate:"required,len=5"`
	TemplateID      *int64            `json:"template_mensagem_id,omitempty"`
	CustomMessage   *string           `json:"mensagem_personalizada,omitempty"`
	NoticeEnabled   *bool             `json:"aviso_ativo,omitempty"`
	NoticeDaysAhead *int              `json:"dias_aviso_antecedencia,omitempty" validate:"omitempty,min=0,max=30"`
	NoticeTime      *string           `json:"horario_aviso,omitempty"`
	Comment         *string           `json:"comentarios,omitempty"`
}

// ClientUpdate lists the client fields to change. Nil fields are not sent.
type ClientUpdate struct {
	FullName        *string            `json:"nome_completo,omitempty" validate:"omitempty,min=1"`
	Phone           *string            `json:"telefone,omitempty" validate:"omitempty,min=10"`
	ProductType     *model.ProductType `json:"tipo_produto,omitempty" validate:"omitempty,oneof=IPTV VPN OUTROS"`
	Plan            *string            `json:"plano_contratado,omitempty"`
	PlanValue       *float64           `json:"valor_plano,omitempty" validate:"omitempty,gt=0"`
	ExpiresOn       *string            `json:"data_vencimento,omitempty" validate:"omitempty,len=10"`
	SendTime        *string            `json:"horario_envio,omitempty" validate:"omitempty,len=5"`
	TemplateID      *int64             `json:"template_mensagem_id,omitempty"`
	CustomMessage   *string            `json:"mensagem_personalizada,omitempty"`
	NoticeEnabled   *bool              `json:"aviso_ativo,omitempty"`
	NoticeDaysAhead *int               `json:"dias_aviso_antecedencia,omitempty" validate:"omitempty,min=0,max=30"`
	NoticeTime      *string            `json:"horario_aviso,omitempty"`
	Active          *bool              `json:"ativo,omitempty"`
}

// RenewalDays are the accepted renewal periods.
var RenewalDays = []int{30, 60, 90, 180, 365}

// RenewRequest extends a client's expiration date.
type RenewRequest struct {
	Days       int      `json:"dias_renovacao" validate:"oneof=30 60 90 180 365"`
	AmountPaid *float64 `json:"valor_pago,omitempty" validate:"omitempty,gte=0"`
	Notes      string   `json:"observacoes,omitempty"`
}

// RenewResult is the renewed client and the renewal record.
type RenewResult struct {
	Client  model.Client  `json:"cliente"`
	Renewal model.Renewal `json:"renovacao"`
}

// CommentResult is the stored comment after an update.
type CommentResult struct {
	Comment       *string `json:"comentarios"`
	LastCommentAt *string `json:"data_ultimo_comentario"`
}

type clientEnvelope struct {
	Client model.Client `json:"cliente"`
}

// ListClients returns the clients matching q ordered by expiration.
func (c *Client) ListClients(ctx context.Context, q ClientQuery) ([]model.Client, error) {
	const op = "clients.list"
	if err := c.check(op, q); err != nil {
		return nil, err
	}
	query := url.Values{}
	setIf(query, "tipo_produto", q.ProductType)
	setBool(query, "ativo", q.Active)
	setIf(query, "vencimento_ate", q.ExpiresUntil)

	var res struct {
		Clients []model.Client `json:"clientes"`
		Total   int            `json:"total"`
	}
	if err := c.get(ctx, op, "/clientes", query, &res); err != nil {
		return nil, err
	}
	if res.Clients == nil {
		res.Clients = []model.Client{}
	}
	return res.Clients, nil
}

// CreateClient registers a new client.
func (c *Client) CreateClient(ctx context.Context, in NewClient) (*model.Client, error) {
	const op = "clients.create"
	if err := c.check(op, in); err != nil {
		return nil, err
	}
	var res clientEnvelope
	if err := c.send(ctx, op, http.MethodPost, "/clientes", in, &res); err != nil {
		return nil, err
	}
	return &res.Client, nil
}

// GetClient fetches one client.
func (c *Client) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	var res clientEnvelope
	if err := c.get(ctx, "clients.get", idPath("/clientes/%d", id), nil, &res); err != nil {
		return nil, err
	}
	return &res.Client, nil
}

// UpdateClient changes the given fields and returns the stored client.
func (c *Client) UpdateClient(ctx context.Context, id int64, in ClientUpdate) (*model.Client, error) {
	const op = "clients.update"
	if err := c.check(op, in); err != nil {
		return nil, err
	}
	var res clientEnvelope
	if err := c.send(ctx, op, http.MethodPut, idPath("/clientes/%d", id), in, &res); err != nil {
		return nil, err
	}
	return &res.Client, nil
}

// DeleteClient removes a client.
func (c *Client) DeleteClient(ctx context.Context, id int64) error {
	return c.send(ctx, "clients.delete", http.MethodDelete, idPath("/clientes/%d", id), nil, nil)
}

// RenewClient extends the client's expiration by in.Days.
func (c *Client) RenewClient(ctx context.Context, id int64, in RenewRequest) (*RenewResult, error) {
	const op = "clients.renew"
	if err := c.check(op, in); err != nil {
		return nil, err
	}
	var res RenewResult
	if err := c.send(ctx, op, http.MethodPost, idPath("/clientes/%d/renovar", id), in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Dashboard returns the aggregates of one product type, served from redis when
// cached and forceRefresh is false.
func (c *Client) Dashboard(ctx context.Context, product model.ProductType, forceRefresh bool) (*model.DashboardSummary, error) {
	const op = "clients.dashboard"
	p, ok := model.ParseProductType(string(product))
	if !ok {
		return nil, validationError(op, "Tipo de produto inválido", nil)
	}
	cacheKey := dashboardCacheKey(p)
	if c.cache != nil && !forceRefresh {
		var cached model.DashboardSummary
		found, err := c.cache.GetJSON(ctx, cacheKey, &cached)
		switch {
		case err != nil:
			c.logger.Warn("read dashboard cache failed", "error", err)
			c.cacheLookup("error")
		case found:
			c.cacheLookup("hit")
			return &cached, nil
		default:
			c.cacheLookup("miss")
		}
	}

	var res model.DashboardSummary
	if err := c.get(ctx, op, "/clientes/dashboard/"+url.PathEscape(string(p)), nil, &res); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, cacheKey, res, c.dashboardTTL); err != nil {
			c.logger.Warn("set dashboard cache failed", "error", err)
		}
	}
	return &res, nil
}

// InvalidateDashboards drops every cached dashboard summary.
func (c *Client) InvalidateDashboards(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	keys := make([]string, 0, len(model.ProductTypes))
	for _, p := range model.ProductTypes {
		keys = append(keys, dashboardCacheKey(p))
	}
	return c.cache.Delete(ctx, keys...)
}

func dashboardCacheKey(p model.ProductType) string {
	return "renewdesk:dashboard:" + strings.ToLower(string(p))
}

func (c *Client) cacheLookup(result string) {
	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(result).Inc()
	}
}

// PendingNotices lists the clients due a notice today.
func (c *Client) PendingNotices(ctx context.Context) ([]model.PendingNotice, error) {
	var res struct {
		Notices []model.PendingNotice `json:"clientes_para_aviso"`
		Total   int                   `json:"total"`
	}
	if err := c.get(ctx, "clients.pending_notices", "/clientes/avisos-pendentes", nil, &res); err != nil {
		return nil, err
	}
	return res.Notices, nil
}

// MarkMessageSent records that a notice went out and returns the stored instant.
func (c *Client) MarkMessageSent(ctx context.Context, id int64) (string, error) {
	var res struct {
		SentAt string `json:"ultima_mensagem_enviada"`
	}
	if err := c.send(ctx, "clients.mark_sent", http.MethodPost, idPath("/clientes/marcar-mensagem-enviada/%d", id), nil, &res); err != nil {
		return "", err
	}
	return res.SentAt, nil
}

// UpdateComment replaces the client's comment.
func (c *Client) UpdateComment(ctx context.Context, id int64, comment string) (*CommentResult, error) {
	const op = "clients.update_comment"
	body := struct {
		Comment string `json:"comentarios"`
	}{Comment: comment}
	var res CommentResult
	if err := c.send(ctx, op, http.MethodPut, idPath("/clientes/%d/comentarios", id), body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteComment clears the client's comment.
func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	return c.send(ctx, "clients.delete_comment", http.MethodDelete, idPath("/clientes/%d/comentarios", id), nil, nil)
}
