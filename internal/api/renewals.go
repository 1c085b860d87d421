package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"renewdesk/internal/model"
)

// RenewalQuery filters the renewal listing.
type RenewalQuery struct {
	ClientID int64
	From     string `validate:"omitempty,len=10"`
	To       string `validate:"omitempty,len=10"`
	Days     int    `validate:"omitempty,oneof=30 60 90 180 365"`
	Page     int    `validate:"gte=0"`
	PerPage  int    `validate:"gte=0,lte=500"`
}

// RenewalPage is one page of renewals.
type RenewalPage struct {
	Page
	Renewals []model.Renewal `json:"renovacoes"`
}

// RenewalUpdate changes the payment data of a renewal.
type RenewalUpdate struct {
	AmountPaid *float64 `json:"valor_pago,omitempty" validate:"omitempty,gte=0"`
	Notes      *string  `json:"observacoes,omitempty"`
}

// RenewalHistory is a client's renewals with per-client aggregates.
type RenewalHistory struct {
	Client   model.Client     `json:"cliente"`
	Renewals []model.Renewal  `json:"renovacoes"`
	Stats    model.Statistics `json:"estatisticas"`
}

type renewalEnvelope struct {
	Renewal model.Renewal `json:"renovacao"`
}

// ListRenewals returns one page of renewals, newest first.
func (c *Client) ListRenewals(ctx context.Context, q RenewalQuery) (*RenewalPage, error) {
	const op = "renewals.list"
	if err := c.check(op, q); err != nil {
		return nil, err
	}
	query := url.Values{}
	setInt(query, "cliente_id", q.ClientID)
	setIf(query, "data_inicio", q.From)
	setIf(query, "data_fim", q.To)
	setInt(query, "dias_renovados", int64(q.Days))
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(q.PerPage))
	}

	var res RenewalPage
	if err := c.get(ctx, op, "/renovacoes", query, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetRenewal fetches one renewal.
func (c *Client) GetRenewal(ctx context.Context, id int64) (*model.Renewal, error) {
	var res renewalEnvelope
	if err := c.get(ctx, "renewals.get", idPath("/renovacoes/%d", id), nil, &res); err != nil {
		return nil, err
	}
	return &res.Renewal, nil
}

// UpdateRenewal changes the payment data of a renewal.
func (c *Client) UpdateRenewal(ctx context.Context, id int64, in RenewalUpdate) (*model.Renewal, error) {
	const op = "renewals.update"
	if err := c.check(op, in); err != nil {
		return nil, err
	}
	var res renewalEnvelope
	if err := c.send(ctx, op, http.MethodPut, idPath("/renovacoes/%d", id), in, &res); err != nil {
		return nil, err
	}
	return &res.Renewal, nil
}

// DeleteRenewal removes a renewal record.
func (c *Client) DeleteRenewal(ctx context.Context, id int64) error {
	return c.send(ctx, "renewals.delete", http.MethodDelete, idPath("/renovacoes/%d", id), nil, nil)
}

// RenewalStatistics returns renewal aggregates.
func (c *Client) RenewalStatistics(ctx context.Context, q StatsQuery) (model.Statistics, error) {
	const op = "renewals.statistics"
	if err := c.check(op, q); err != nil {
		return nil, err
	}
	var res model.Statistics
	if err := c.get(ctx, op, "/renovacoes/estatisticas", q.values(), &res); err != nil {
		return nil, err
	}
	return res, nil
}

// ClientRenewalHistory returns every renewal of one client.
func (c *Client) ClientRenewalHistory(ctx context.Context, clientID int64) (*RenewalHistory, error) {
	var res RenewalHistory
	if err := c.get(ctx, "renewals.history", idPath("/renovacoes/cliente/%d", clientID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
