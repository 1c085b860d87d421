package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"renewdesk/internal/model"
)

// Page is the pagination block of list responses.
type Page struct {
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	Current int  `json:"current_page"`
	PerPage int  `json:"per_page"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// LogQuery filters the message log listing.
type LogQuery struct {
	ClientID int64
	Status   string
	Kind     string
	From     string `validate:"omitempty,len=10"`
	To       string `validate:"omitempty,len=10"`
	Page     int    `validate:"gte=0"`
	PerPage  int    `validate:"gte=0,lte=500"`
}

// LogPage is one page of message logs.
type LogPage struct {
	Page
	Logs []model.MessageLog `json:"logs"`
}

// NewLog records an outbound message.
type NewLog struct {
	ClientID    int64               `json:"cliente_id" validate:"required"`
	Phone       string              `json:"telefone_destino" validate:"required"`
	Message     string              `json:"mensagem" validate:"required"`
	Status      model.MessageStatus `json:"status,omitempty" validate:"omitempty,oneof=enviada falha pendente"`
	Kind        string              `json:"tipo_notificacao" validate:"required"`
	ScheduledAt *string             `json:"data_agendamento,omitempty"`
}

// LogUpdate changes delivery fields of a log.
type LogUpdate struct {
	Status       *model.MessageStatus `json:"status,omitempty" validate:"omitempty,oneof=enviada falha pendente"`
	SentAt       *string              `json:"data_envio,omitempty"`
	ErrorDetails *string              `json:"erro_detalhes,omitempty"`
	Attempts     *int                 `json:"tentativas,omitempty" validate:"omitempty,gte=0"`
}

// StatsQuery bounds a statistics request.
type StatsQuery struct {
	From        string `validate:"omitempty,len=10"`
	To          string `validate:"omitempty,len=10"`
	ProductType string
}

func (q StatsQuery) values() url.Values {
	query := url.Values{}
	setIf(query, "data_inicio", q.From)
	setIf(query, "data_fim", q.To)
	setIf(query, "tipo_produto", q.ProductType)
	return query
}

type logEnvelope struct {
	Log model.MessageLog `json:"log"`
}

// ListLogs returns one page of message logs, newest first.
func (c *Client) ListLogs(ctx context.Context, q LogQuery) (*LogPage, error) {
	const op = "logs.list"
	if err := c.check(op, q); err != nil {
		return nil, err
	}
	query := url.Values{}
	setInt(query, "cliente_id", q.ClientID)
	setIf(query, "status", q.Status)
	setIf(query, "tipo_notificacao", q.Kind)
	setIf(query, "data_inicio", q.From)
	setIf(query, "data_fim", q.To)
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(q.PerPage))
	}

	var res LogPage
	if err := c.get(ctx, op, "/logs", query, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateLog records an outbound message.
func (c *Client) CreateLog(ctx context.Context, in NewLog) (*model.MessageLog, error) {
	const op = "logs.create"
	if err := c.check(op, in); err != nil {
		return nil, err
	}
	var res logEnvelope
	if err := c.send(ctx, op, http.MethodPost, "/logs", in, &res); err != nil {
		return nil, err
	}
	return &res.Log, nil
}

// GetLog fetches one log.
func (c *Client) GetLog(ctx context.Context, id int64) (*model.MessageLog, error) {
	var res logEnvelope
	if err := c.get(ctx, "logs.get", idPath("/logs/%d", id), nil, &res); err != nil {
		return nil, err
	}
	return &res.Log, nil
}

// UpdateLog changes delivery fields of a log.
func (c *Client) UpdateLog(ctx context.Context, id int64, in LogUpdate) (*model.MessageLog, error) {
	const op = "logs.update"
	if err := c.check(op, in); err != nil {
		return nil, err
	}
	var res logEnvelope
	if err := c.send(ctx, op, http.MethodPut, idPath("/logs/%d", id), in, &res); err != nil {
		return nil, err
	}
	return &res.Log, nil
}

// LogStatistics returns delivery aggregates.
func (c *Client) LogStatistics(ctx context.Context, q StatsQuery) (model.Statistics, error) {
	const op = "logs.statistics"
	if err := c.check(op, q); err != nil {
		return nil, err
	}
	var res model.Statistics
	if err := c.get(ctx, op, "/logs/estatisticas", q.values(), &res); err != nil {
		return nil, err
	}
	return res, nil
}

// ResendLog puts a failed message back in the queue.
func (c *Client) ResendLog(ctx context.Context, id int64) (*model.MessageLog, error) {
	var res logEnvelope
	if err := c.send(ctx, "logs.resend", http.MethodPost, idPath("/logs/reenviar/%d", id), nil, &res); err != nil {
		return nil, err
	}
	return &res.Log, nil
}
