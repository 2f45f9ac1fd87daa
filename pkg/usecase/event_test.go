package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/repository/memory"
	"github.com/harborhq/relay/pkg/usecase"
)

// fakeDirectory resolves subject relationships from fixed maps
type fakeDirectory struct {
	parents     map[string]types.EntityRef
	authors     map[string]types.MemberID
	subscribers map[string][]types.MemberID
	members     map[string][]types.MemberID
}

func (f *fakeDirectory) Parent(ctx context.Context, event *model.Event) (types.EntityRef, error) {
	return f.parents[event.Subject.Key()], nil
}

func (f *fakeDirectory) Author(ctx context.Context, event *model.Event, entity types.EntityRef) (types.MemberID, error) {
	return f.authors[entity.Key()], nil
}

func (f *fakeDirectory) Subscribers(ctx context.Context, event *model.Event, entity types.EntityRef) ([]types.MemberID, error) {
	return f.subscribers[entity.Key()], nil
}

func (f *fakeDirectory) ProjectMembers(ctx context.Context, event *model.Event) ([]types.MemberID, error) {
	return f.members[event.Subject.Key()], nil
}

// fakePermissions denies the listed members and allows everyone else
type fakePermissions struct {
	denied map[types.MemberID]bool
}

func (f *fakePermissions) CanView(ctx context.Context, event *model.Event, member types.MemberID, target types.EntityRef) (bool, error) {
	return !f.denied[member], nil
}

func TestDispatchCommentFanout(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	post := types.EntityRef{Kind: types.EntityPost, ID: "7"}
	comment := types.EntityRef{Kind: types.EntityComment, ID: "42"}
	actor := types.EntityRef{Kind: types.EntityMember, ID: "member-a"}

	dir := &fakeDirectory{
		parents: map[string]types.EntityRef{comment.Key(): post},
		subscribers: map[string][]types.MemberID{
			post.Key(): {"member-a", "member-b", "member-c"},
		},
	}
	perms := &fakePermissions{denied: map[types.MemberID]bool{"member-c": true}}

	uc := usecase.NewEventUseCase(repo, usecase.DefaultRegistry(dir),
		usecase.WithPermissionChecker(perms))

	event, err := uc.Record(ctx, types.ActionCreated, comment, &actor, types.OrgID("org-1"), nil)
	gt.NoError(t, err).Required()
	gt.True(t, !event.Processed())

	gt.NoError(t, uc.Dispatch(ctx, event.ID))

	// The actor is excluded; member-c lost view access; only member-b
	// gets a notification, about the parent post
	inboxB, err := repo.Notification().ListHomeInbox(ctx, "member-b")
	gt.NoError(t, err).Required()
	gt.Array(t, inboxB).Length(1)
	gt.Value(t, inboxB[0].Target).Equal(post)
	gt.Value(t, inboxB[0].Reason).Equal(types.ReasonParentSubscription)
	gt.Value(t, inboxB[0].EventID).Equal(event.ID)

	inboxA, err := repo.Notification().ListHomeInbox(ctx, "member-a")
	gt.NoError(t, err).Required()
	gt.Array(t, inboxA).Length(0)

	inboxC, err := repo.Notification().ListHomeInbox(ctx, "member-c")
	gt.NoError(t, err).Required()
	gt.Array(t, inboxC).Length(0)

	stored, err := repo.Event().Get(ctx, event.ID)
	gt.NoError(t, err).Required()
	gt.True(t, stored.Processed())
}

func TestDispatchIdempotency(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	post := types.EntityRef{Kind: types.EntityPost, ID: "7"}
	comment := types.EntityRef{Kind: types.EntityComment, ID: "42"}

	dir := &fakeDirectory{
		parents: map[string]types.EntityRef{comment.Key(): post},
		subscribers: map[string][]types.MemberID{
			post.Key(): {"member-b"},
		},
	}

	uc := usecase.NewEventUseCase(repo, usecase.DefaultRegistry(dir))

	event, err := uc.Record(ctx, types.ActionCreated, comment, nil, types.OrgID("org-1"), nil)
	gt.NoError(t, err).Required()

	gt.NoError(t, uc.Dispatch(ctx, event.ID))
	gt.NoError(t, uc.Dispatch(ctx, event.ID))

	// Redispatch is a no-op: still exactly one notification
	inbox, err := repo.Notification().ListHomeInbox(ctx, "member-b")
	gt.NoError(t, err).Required()
	gt.Array(t, inbox).Length(1)
}

func TestDispatchUnrecognizedProcessor(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	uc := usecase.NewEventUseCase(repo, usecase.NewRegistry())

	event, err := uc.Record(ctx, types.ActionDestroyed,
		types.EntityRef{Kind: types.EntityFollowUp, ID: "9"},
		nil, types.OrgID("org-1"), nil)
	gt.NoError(t, err).Required()

	err = uc.Dispatch(ctx, event.ID)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, usecase.ErrUnrecognizedProcessor))

	// The event stays unprocessed; the defect is a missing mapping,
	// not a transient fault, so nothing was fanned out either
	stored, err := repo.Event().Get(ctx, event.ID)
	gt.NoError(t, err).Required()
	gt.True(t, !stored.Processed())
}

func TestDispatchReactionFanout(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	post := types.EntityRef{Kind: types.EntityPost, ID: "7"}
	reaction := types.EntityRef{Kind: types.EntityReaction, ID: "301"}
	actor := types.EntityRef{Kind: types.EntityMember, ID: "member-a"}

	dir := &fakeDirectory{
		parents: map[string]types.EntityRef{reaction.Key(): post},
		authors: map[string]types.MemberID{post.Key(): "member-b"},
	}

	uc := usecase.NewEventUseCase(repo, usecase.DefaultRegistry(dir))

	event, err := uc.Record(ctx, types.ActionCreated, reaction, &actor, types.OrgID("org-1"), nil)
	gt.NoError(t, err).Required()
	gt.NoError(t, uc.Dispatch(ctx, event.ID))

	// Reaction-scoped notifications surface in activity, not the home
	// inbox
	inbox, err := repo.Notification().ListHomeInbox(ctx, "member-b")
	gt.NoError(t, err).Required()
	gt.Array(t, inbox).Length(0)

	activity, err := repo.Notification().ListActivity(ctx, "member-b")
	gt.NoError(t, err).Required()
	gt.Array(t, activity).Length(1)
	gt.Value(t, activity[0].TargetScope).Equal(types.ScopeReaction)
	gt.Value(t, activity[0].Target).Equal(post)
}

func TestActorDisplayNameFallback(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	uc := usecase.NewEventUseCase(repo, usecase.NewRegistry())

	event, err := uc.Record(ctx, types.ActionCreated,
		types.EntityRef{Kind: types.EntityPost, ID: "8"},
		nil, types.OrgID("org-1"),
		map[string]any{model.MetadataActorDisplayName: "Importer"})
	gt.NoError(t, err).Required()
	gt.Value(t, event.ActorDisplayName()).Equal("Importer")
}
