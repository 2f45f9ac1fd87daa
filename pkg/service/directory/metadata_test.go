package directory_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/service/directory"
)

func TestMetadataParent(t *testing.T) {
	dir := directory.New()
	ctx := context.Background()

	event := &model.Event{
		ID:      types.NewEventID(),
		Subject: types.EntityRef{Kind: types.EntityComment, ID: "42"},
		Metadata: map[string]any{
			directory.MetadataParentKind: "post",
			directory.MetadataParentID:   "7",
		},
	}

	parent, err := dir.Parent(ctx, event)
	gt.NoError(t, err).Required()
	gt.Value(t, parent).Equal(types.EntityRef{Kind: types.EntityPost, ID: "7"})
}

func TestMetadataParentMissing(t *testing.T) {
	dir := directory.New()
	event := &model.Event{
		ID:       types.NewEventID(),
		Subject:  types.EntityRef{Kind: types.EntityComment, ID: "42"},
		Metadata: map[string]any{},
	}

	_, err := dir.Parent(context.Background(), event)
	gt.Error(t, err)
}

func TestMetadataCanView(t *testing.T) {
	dir := directory.New()
	ctx := context.Background()
	target := types.EntityRef{Kind: types.EntityPost, ID: "7"}

	t.Run("no viewer list means visible to all", func(t *testing.T) {
		event := &model.Event{
			ID:       types.NewEventID(),
			Subject:  target,
			Metadata: map[string]any{},
		}

		ok, err := dir.CanView(ctx, event, "member-a", target)
		gt.NoError(t, err).Required()
		gt.True(t, ok)
	})

	t.Run("viewer list restricts visibility", func(t *testing.T) {
		event := &model.Event{
			ID:      types.NewEventID(),
			Subject: target,
			Metadata: map[string]any{
				directory.MetadataViewerIDs: []any{"member-a", "member-b"},
			},
		}

		ok, err := dir.CanView(ctx, event, "member-a", target)
		gt.NoError(t, err).Required()
		gt.True(t, ok)

		ok, err = dir.CanView(ctx, event, "member-c", target)
		gt.NoError(t, err).Required()
		gt.True(t, !ok)
	})
}

func TestMetadataMemberLists(t *testing.T) {
	dir := directory.New()
	ctx := context.Background()

	// Decoded JSON payloads arrive as []any
	event := &model.Event{
		ID:      types.NewEventID(),
		Subject: types.EntityRef{Kind: types.EntityPost, ID: "7"},
		Metadata: map[string]any{
			directory.MetadataSubscriberIDs:  []any{"member-a", "member-b", ""},
			directory.MetadataProjectMembers: []string{"member-c"},
			directory.MetadataAuthorID:       "member-a",
		},
	}

	subs, err := dir.Subscribers(ctx, event, event.Subject)
	gt.NoError(t, err).Required()
	gt.Array(t, subs).Equal([]types.MemberID{"member-a", "member-b"})

	members, err := dir.ProjectMembers(ctx, event)
	gt.NoError(t, err).Required()
	gt.Array(t, members).Equal([]types.MemberID{"member-c"})

	author, err := dir.Author(ctx, event, event.Subject)
	gt.NoError(t, err).Required()
	gt.Value(t, author).Equal(types.MemberID("member-a"))
}
