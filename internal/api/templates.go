package api

import (
	"context"
	"net/http"
	"net/url"

	"renewdesk/internal/model"
)

// TemplateQuery filters the template listing.
type TemplateQuery struct {
	ProductType string
	Kind        string
	Active      *bool
}

// NewTemplate is the payload for creating a template.
type NewTemplate struct {
	Name        string             `json:"nome" validate:"required"`
	ProductType model.ProductType  `json:"tipo_produto" validate:"required,oneof=IPTV VPN OUTROS GERAL"`
	Kind        model.TemplateKind `json:"tipo_template" validate:"required,oneof=vencimento renovacao personalizada"`
	Content     string             `json:"conteudo" validate:"required"`
	Variables   *string            `json:"variaveis_disponiveis,omitempty"`
	Active      *bool              `json:"ativo,omitempty"`
	Default     *bool              `json:"padrao,omitempty"`
}

// TemplateUpdate lists the template fields to change.
type TemplateUpdate struct {
	Name        *string             `json:"nome,omitempty" validate:"omitempty,min=1"`
	ProductType *model.ProductType  `json:"tipo_produto,omitempty" validate:"omitempty,oneof=IPTV VPN OUTROS GERAL"`
	Kind        *model.TemplateKind `json:"tipo_template,omitempty" validate:"omitempty,oneof=vencimento renovacao personalizada"`
	Content     *string             `json:"conteudo,omitempty" validate:"omitempty,min=1"`
	Variables   *string             `json:"variaveis_disponiveis,omitempty"`
	Active      *bool               `json:"ativo,omitempty"`
	Default     *bool               `json:"padrao,omitempty"`
}

// PreviewRequest carries sample values for a template preview. Unset fields
// fall back to the remote's sample data.
type PreviewRequest struct {
	Name  string   `json:"nome,omitempty"`
	Plan  string   `json:"plano,omitempty"`
	Value *float64 `json:"valor,omitempty"`
	Days  *int     `json:"dias,omitempty"`
}

// Preview is a rendered template.
type Preview struct {
	Original  string            `json:"template_original"`
	Rendered  string            `json:"mensagem_processada"`
	Variables map[string]string `json:"variaveis_usadas"`
}

type templateEnvelope struct {
	Template model.Template `json:"template"`
}

// ListTemplates returns the templates matching q ordered by name.
func (c *Client) ListTemplates(ctx context.Context, q TemplateQuery) ([]model.Template, error) {
	query := url.Values{}
	setIf(query, "tipo_produto", q.ProductType)
	setIf(query, "tipo_template", q.Kind)
	setBool(query, "ativo", q.Active)

	var res struct {
		Templates []model.Template `json:"templates"`
	}
	if err := c.get(ctx, "templates.list", "/templates", query, &res); err != nil {
		return nil, err
	}
	if res.Templates == nil {
		res.Templates = []model.Template{}
	}
	return res.Templates, nil
}

// CreateTemplate stores a new template.
func (c *Client) CreateTemplate(ctx context.Context, in NewTemplate) (*model.Template, error) {
	const op = "templates.create"
	if err := c.check(op, in); err != nil {
		return nil, err
	}
	var res templateEnvelope
	if err := c.send(ctx, op, http.MethodPost, "/templates", in, &res); err != nil {
		return nil, err
	}
	return &res.Template, nil
}

// GetTemplate fetches one template.
func (c *Client) GetTemplate(ctx context.Context, id int64) (*model.Template, error) {
	var res templateEnvelope
	if err := c.get(ctx, "templates.get", idPath("/templates/%d", id), nil, &res); err != nil {
		return nil, err
	}
	return &res.Template, nil
}

// UpdateTemplate changes the given fields.
func (c *Client) UpdateTemplate(ctx context.Context, id int64, in TemplateUpdate) (*model.Template, error) {
	const op = "templates.update"
	if err := c.check(op, in); err != nil {
		return nil, err
	}
	var res templateEnvelope
	if err := c.send(ctx, op, http.MethodPut, idPath("/templates/%d", id), in, &res); err != nil {
		return nil, err
	}
	return &res.Template, nil
}

// DeleteTemplate removes a template. The remote refuses while clients use it.
func (c *Client) DeleteTemplate(ctx context.Context, id int64) error {
	return c.send(ctx, "templates.delete", http.MethodDelete, idPath("/templates/%d", id), nil, nil)
}

// PreviewTemplate renders a template with sample values.
func (c *Client) PreviewTemplate(ctx context.Context, id int64, in PreviewRequest) (*Preview, error) {
	var res Preview
	if err := c.send(ctx, "templates.preview", http.MethodPost, idPath("/templates/%d/preview", id), in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DefaultTemplate returns the default template for a product and kind.
func (c *Client) DefaultTemplate(ctx context.Context, product model.ProductType, kind model.TemplateKind) (*model.Template, error) {
	var res templateEnvelope
	endpoint := "/templates/padrao/" + url.PathEscape(string(product)) + "/" + url.PathEscape(string(kind))
	if err := c.get(ctx, "templates.default", endpoint, nil, &res); err != nil {
		return nil, err
	}
	return &res.Template, nil
}
