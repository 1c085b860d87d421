package api

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"renewdesk/internal/model"
)

// ConfigInput creates or replaces a configuration entry.
type ConfigInput struct {
	Key         string  `json:"chave" validate:"required"`
	Value       any     `json:"valor"`
	Type        string  `json:"tipo,omitempty" validate:"omitempty,oneof=string integer boolean json"`
	Category    string  `json:"categoria,omitempty"`
	Description *string `json:"descricao,omitempty"`
}

// ConfigUpdate changes the value and optionally the description of an entry.
type ConfigUpdate struct {
	Value       any     `json:"valor,omitempty"`
	Description *string `json:"descricao,omitempty"`
}

type configEnvelope struct {
	Config model.ConfigEntry `json:"configuracao"`
}

// ListConfigs returns every entry, optionally limited to one category, ordered
// by category then key.
func (c *Client) ListConfigs(ctx context.Context, category string) ([]model.ConfigEntry, error) {
	query := url.Values{}
	setIf(query, "categoria", category)

	var res struct {
		Grouped map[string][]model.ConfigEntry `json:"configuracoes"`
	}
	if err := c.get(ctx, "configs.list", "/configuracoes", query, &res); err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(res.Grouped))
	for cat := range res.Grouped {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	out := []model.ConfigEntry{}
	for _, cat := range categories {
		for _, entry := range res.Grouped[cat] {
			if entry.Category == "" {
				entry.Category = cat
			}
			out = append(out, entry)
		}
	}
	return out, nil
}

// CreateConfig stores a new entry.
func (c *Client) CreateConfig(ctx context.Context, in ConfigInput) (*model.ConfigEntry, error) {
	const op = "configs.create"
	if err := c.check(op, in); err != nil {
		return nil, err
	}
	var res configEnvelope
	if err := c.send(ctx, op, http.MethodPost, "/configuracoes", in, &res); err != nil {
		return nil, err
	}
	return &res.Config, nil
}

// GetConfig fetches one entry by key.
func (c *Client) GetConfig(ctx context.Context, key string) (*model.ConfigEntry, error) {
	var res configEnvelope
	if err := c.get(ctx, "configs.get", "/configuracoes/"+url.PathEscape(key), nil, &res); err != nil {
		return nil, err
	}
	return &res.Config, nil
}

// UpdateConfig changes one entry.
func (c *Client) UpdateConfig(ctx context.Context, key string, in ConfigUpdate) (*model.ConfigEntry, error) {
	var res configEnvelope
	if err := c.send(ctx, "configs.update", http.MethodPut, "/configuracoes/"+url.PathEscape(key), in, &res); err != nil {
		return nil, err
	}
	return &res.Config, nil
}

// DeleteConfig removes one entry.
func (c *Client) DeleteConfig(ctx context.Context, key string) error {
	return c.send(ctx, "configs.delete", http.MethodDelete, "/configuracoes/"+url.PathEscape(key), nil, nil)
}

// BatchUpdateConfigs upserts several entries at once.
func (c *Client) BatchUpdateConfigs(ctx context.Context, entries []ConfigInput) ([]model.ConfigEntry, error) {
	const op = "configs.batch"
	for _, e := range entries {
		if err := c.check(op, e); err != nil {
			return nil, err
		}
	}
	body := struct {
		Configs []ConfigInput `json:"configuracoes"`
	}{Configs: entries}
	var res struct {
		Configs []model.ConfigEntry `json:"configuracoes"`
	}
	if err := c.send(ctx, op, http.MethodPut, "/configuracoes/batch", body, &res); err != nil {
		return nil, err
	}
	return res.Configs, nil
}

// InitConfigs asks the remote to create its default entries.
func (c *Client) InitConfigs(ctx context.Context) (string, error) {
	var res message
	if err := c.send(ctx, "configs.init", http.MethodPost, "/configuracoes/inicializar", nil, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}
