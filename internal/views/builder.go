// Package views builds per-viewer conversation payloads. Every function takes
// the viewing user's id as an explicit argument: unread count, mute flag and
// the counterpart's last-read are relative to the viewer, so a view is never
// shared between recipients.
package views

import (
	"context"

	"messaging-service/internal/clients"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// ConversationViews produces viewer-relative conversation payloads.
type ConversationViews interface {
	ConversationFor(ctx context.Context, conversationID, forUserID int64) (models.ConversationView, error)
	SnapshotFor(ctx context.Context, forUserID int64) ([]models.ConversationView, error)
}

// Builder assembles views from the conversation store and the user directory.
type Builder struct {
	convos repositories.ConversationRepository
	users  clients.UserDirectory
}

// NewBuilder constructs a Builder.
func NewBuilder(convos repositories.ConversationRepository, users clients.UserDirectory) *Builder {
	return &Builder{convos: convos, users: users}
}

// ConversationFor serializes one conversation for one viewer.
func (b *Builder) ConversationFor(ctx context.Context, conversationID, forUserID int64) (models.ConversationView, error) {
	view, err := b.convos.ViewForUser(ctx, conversationID, forUserID)
	if err != nil {
		return models.ConversationView{}, err
	}
	b.fillUsernames(ctx, []*models.ConversationView{&view})
	return view, nil
}

// SnapshotFor returns the point-in-time conversation list for the viewer:
// conversations where the viewer is buyer or seller, minus blocked
// counterparts and conversations soft-deleted on the viewer's side.
func (b *Builder) SnapshotFor(ctx context.Context, forUserID int64) ([]models.ConversationView, error) {
	list, err := b.convos.ListViewsForUser(ctx, forUserID)
	if err != nil {
		return nil, err
	}
	refs := make([]*models.ConversationView, 0, len(list))
	for i := range list {
		refs = append(refs, &list[i])
	}
	b.fillUsernames(ctx, refs)
	return list, nil
}

// fillUsernames decorates views with display names from the user directory.
// Directory failures degrade to id-only views rather than failing the build.
func (b *Builder) fillUsernames(ctx context.Context, views []*models.ConversationView) {
	idSet := map[int64]struct{}{}
	ids := make([]int64, 0, len(views)*2)
	for _, v := range views {
		for _, id := range []int64{v.BuyerID, v.SellerID} {
			if _, ok := idSet[id]; !ok {
				idSet[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	users, err := b.users.BulkUsers(ctx, ids)
	if err != nil {
		return
	}
	nameByID := make(map[int64]string, len(users))
	for _, u := range users {
		nameByID[u.ID] = u.Username
	}

	for _, v := range views {
		v.BuyerUsername = nameByID[v.BuyerID]
		v.SellerUsername = nameByID[v.SellerID]
		if v.LastMessageSenderID != nil {
			if name, ok := nameByID[*v.LastMessageSenderID]; ok {
				v.LastMessageSenderUsername = &name
			}
		}
	}
}
