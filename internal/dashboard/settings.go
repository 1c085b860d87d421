package dashboard

import (
	"context"
	"errors"
	"fmt"

	"renewdesk/internal/api"
	"renewdesk/internal/model"
	"renewdesk/internal/store"
)

// CreateTemplate stores a new message template.
func (s *Session) CreateTemplate(ctx context.Context, in api.NewTemplate) (*model.Template, error) {
	t, err := s.remote.CreateTemplate(ctx, in)
	if err != nil {
		return nil, s.fail(err)
	}
	s.stores.Cache.Templates.Insert(*t)
	s.succeed("Template criado com sucesso")
	return t, nil
}

// UpdateTemplate applies in locally, then remotely.
func (s *Session) UpdateTemplate(ctx context.Context, id int64, in api.TemplateUpdate) (*model.Template, error) {
	prev, cached := s.stores.Cache.Templates.Get(id)
	s.stores.Cache.Templates.Update(id, store.TemplatePatch{
		Name:        in.Name,
		ProductType: in.ProductType,
		Kind:        in.Kind,
		Content:     in.Content,
		Variables:   in.Variables,
		Active:      in.Active,
		Default:     in.Default,
	}.Apply)

	t, err := s.remote.UpdateTemplate(ctx, id, in)
	if err != nil {
		if cached {
			s.stores.Cache.Templates.Update(id, func(model.Template) model.Template { return prev })
		}
		return nil, s.fail(err)
	}
	// Marking a template as default may clear the flag on others.
	if in.Default != nil && *in.Default {
		s.reloadTemplates(ctx)
	} else {
		s.stores.Cache.Templates.Update(id, func(model.Template) model.Template { return *t })
	}
	s.succeed("Template atualizado com sucesso")
	return t, nil
}

// DeleteTemplate removes the template locally, then remotely.
func (s *Session) DeleteTemplate(ctx context.Context, id int64) error {
	prev := s.stores.Cache.Templates.Snapshot()
	removed := s.stores.Cache.Templates.Remove(id)

	if err := s.remote.DeleteTemplate(ctx, id); err != nil {
		if removed && !errors.Is(err, api.ErrNotFound) {
			s.stores.Cache.Templates.Set(prev)
		}
		return s.fail(err)
	}
	s.succeed("Template removido com sucesso")
	return nil
}

func (s *Session) reloadTemplates(ctx context.Context) {
	templates, err := s.remote.ListTemplates(ctx, api.TemplateQuery{})
	if err != nil {
		s.logger.Warn("reload templates failed", "error", err)
		return
	}
	s.stores.Cache.Templates.Set(templates)
}

// UpdateConfig sets one configuration value locally, then remotely. A rejected
// value reloads every entry.
func (s *Session) UpdateConfig(ctx context.Context, key string, value any) (*model.ConfigEntry, error) {
	s.stores.Cache.Configs.Update(key, store.ConfigPatch{Value: value}.Apply)

	e, err := s.remote.UpdateConfig(ctx, key, api.ConfigUpdate{Value: value})
	if err != nil {
		if configs, lerr := s.remote.ListConfigs(ctx, ""); lerr == nil {
			s.stores.Cache.Configs.Set(configs)
		} else {
			s.logger.Warn("reload configs failed", "error", lerr)
		}
		return nil, s.fail(err)
	}
	s.stores.Cache.Configs.Update(key, func(prev model.ConfigEntry) model.ConfigEntry {
		if e.Category == "" {
			e.Category = prev.Category
		}
		return *e
	})
	s.succeed("Configuração salva com sucesso")
	return e, nil
}

// RefreshWhatsApp reads the remote channel status into the UI state.
func (s *Session) RefreshWhatsApp(ctx context.Context) (model.WhatsAppStatus, error) {
	st, err := s.remote.WhatsAppStatus(ctx)
	if err != nil {
		return model.WhatsAppStatus{}, s.fail(err)
	}
	s.stores.UI.ReplaceWhatsAppStatus(st)
	return st, nil
}

// StartWhatsApp starts the remote channel.
func (s *Session) StartWhatsApp(ctx context.Context) error {
	msg, err := s.remote.StartWhatsApp(ctx)
	if err != nil {
		return s.fail(err)
	}
	running := true
	s.stores.UI.SetWhatsAppStatus(store.WhatsAppPatch{Running: &running})
	s.succeed(orDefault(msg, "Serviço WhatsApp iniciado"))
	return nil
}

// StopWhatsApp stops the remote channel.
func (s *Session) StopWhatsApp(ctx context.Context) error {
	msg, err := s.remote.StopWhatsApp(ctx)
	if err != nil {
		return s.fail(err)
	}
	off := false
	s.stores.UI.SetWhatsAppStatus(store.WhatsAppPatch{Running: &off, Connected: &off, QRAvailable: &off})
	s.succeed(orDefault(msg, "Serviço WhatsApp parado"))
	return nil
}

// SendTestMessage sends text to number through the remote channel.
func (s *Session) SendTestMessage(ctx context.Context, number, text string) error {
	if err := s.remote.SendTestMessage(ctx, api.TestMessage{Number: number, Message: text}); err != nil {
		return s.fail(fmt.Errorf("send test message: %w", err))
	}
	s.succeed("Mensagem de teste enviada")
	return nil
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
