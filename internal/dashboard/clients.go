package dashboard

import (
	"context"
	"errors"
	"fmt"

	"renewdesk/internal/api"
	"renewdesk/internal/model"
	"renewdesk/internal/store"
)

// CreateClient registers a client and caches the stored record.
func (s *Session) CreateClient(ctx context.Context, in api.NewClient) (*model.Client, error) {
	c, err := s.remote.CreateClient(ctx, in)
	if err != nil {
		return nil, s.fail(err)
	}
	s.stores.Cache.Clients.Insert(*c)
	s.invalidate(ctx)
	s.succeed("Cliente criado com sucesso")
	return c, nil
}

// UpdateClient applies in locally, then remotely.
func (s *Session) UpdateClient(ctx context.Context, id int64, in api.ClientUpdate) (*model.Client, error) {
	prev, cached := s.stores.Cache.Clients.Get(id)
	patch := PatchFromUpdate(in)
	s.stores.Cache.Clients.Update(id, patch.Apply)

	c, err := s.remote.UpdateClient(ctx, id, in)
	if err != nil {
		s.reconcileClient(ctx, id, prev, cached)
		return nil, s.fail(err)
	}
	s.storeClient(*c)
	s.invalidate(ctx)
	s.succeed("Cliente atualizado com sucesso")
	return c, nil
}

// DeleteClient removes the client locally, then remotely.
func (s *Session) DeleteClient(ctx context.Context, id int64) error {
	prev, cached := s.stores.Cache.Clients.Get(id)
	s.stores.Cache.Clients.Remove(id)

	if err := s.remote.DeleteClient(ctx, id); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			s.invalidate(ctx)
			return s.fail(err)
		}
		s.reconcileClient(ctx, id, prev, cached)
		return s.fail(err)
	}
	s.invalidate(ctx)
	s.succeed("Cliente removido com sucesso")
	return nil
}

// RenewClient extends the client's expiration by days and caches the result.
func (s *Session) RenewClient(ctx context.Context, id int64, in api.RenewRequest) (*api.RenewResult, error) {
	res, err := s.remote.RenewClient(ctx, id, in)
	if err != nil {
		return nil, s.fail(err)
	}
	s.storeClient(res.Client)
	s.invalidate(ctx)
	s.succeed(fmt.Sprintf("Cliente renovado por %d dias", in.Days))
	return res, nil
}

// SetActive toggles whether the client is tracked for notices.
func (s *Session) SetActive(ctx context.Context, id int64, active bool) (*model.Client, error) {
	return s.UpdateClient(ctx, id, api.ClientUpdate{Active: &active})
}

// UpdateComment replaces the client's comment.
func (s *Session) UpdateComment(ctx context.Context, id int64, comment string) error {
	prev, cached := s.stores.Cache.Clients.Get(id)
	s.stores.Cache.Clients.Update(id, store.ClientPatch{Comment: &comment}.Apply)

	res, err := s.remote.UpdateComment(ctx, id, comment)
	if err != nil {
		s.reconcileClient(ctx, id, prev, cached)
		return s.fail(err)
	}
	s.stores.Cache.Clients.Update(id, store.ClientPatch{
		ClearComment:  true,
		Comment:       res.Comment,
		LastCommentAt: res.LastCommentAt,
	}.Apply)
	s.succeed("Comentário salvo com sucesso")
	return nil
}

// DeleteComment clears the client's comment.
func (s *Session) DeleteComment(ctx context.Context, id int64) error {
	prev, cached := s.stores.Cache.Clients.Get(id)
	s.stores.Cache.Clients.Update(id, store.ClientPatch{ClearComment: true}.Apply)

	if err := s.remote.DeleteComment(ctx, id); err != nil {
		s.reconcileClient(ctx, id, prev, cached)
		return s.fail(err)
	}
	s.succeed("Comentário removido com sucesso")
	return nil
}

// storeClient replaces the cached client, inserting it when it is not cached.
func (s *Session) storeClient(c model.Client) {
	if !s.stores.Cache.Clients.Update(c.ID, func(model.Client) model.Client { return c }) {
		s.stores.Cache.Clients.Insert(c)
	}
}

// reconcileClient reloads id after a rejected write. A client the remote no
// longer knows is dropped; when the reload fails the previous value is restored.
func (s *Session) reconcileClient(ctx context.Context, id int64, prev model.Client, cached bool) {
	c, err := s.remote.GetClient(ctx, id)
	switch {
	case err == nil:
		s.storeClient(*c)
	case errors.Is(err, api.ErrNotFound):
		s.stores.Cache.Clients.Remove(id)
	default:
		s.logger.Warn("reload client failed, restoring cached value", "client_id", id, "error", err)
		if cached {
			s.storeClient(prev)
		} else {
			s.stores.Cache.Clients.Remove(id)
		}
	}
}

// PatchFromUpdate converts a remote update into the equivalent cache patch.
func PatchFromUpdate(in api.ClientUpdate) store.ClientPatch {
	return store.ClientPatch{
		FullName:        in.FullName,
		Phone:           in.Phone,
		ProductType:     in.ProductType,
		Plan:            in.Plan,
		PlanValue:       in.PlanValue,
		ExpiresOn:       in.ExpiresOn,
		SendTime:        in.SendTime,
		TemplateID:      in.TemplateID,
		CustomMessage:   in.CustomMessage,
		NoticeEnabled:   in.NoticeEnabled,
		NoticeDaysAhead: in.NoticeDaysAhead,
		NoticeTime:      in.NoticeTime,
		Active:          in.Active,
	}
}
