package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/repository/firestore"
	"github.com/harborhq/relay/pkg/repository/memory"
)

func runEventRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create appends an unprocessed event", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		actor := &types.EntityRef{Kind: types.EntityMember, ID: "member-a"}
		created, err := repo.Event().Create(ctx, &model.Event{
			Action:         types.ActionCreated,
			Subject:        types.EntityRef{Kind: types.EntityComment, ID: "42"},
			Actor:          actor,
			OrganizationID: "org-1",
			Metadata:       map[string]any{"parent_post_id": "7"},
		})
		gt.NoError(t, err).Required()

		gt.String(t, created.ID.String()).NotEqual("")
		gt.Value(t, created.Action).Equal(types.ActionCreated)
		gt.Value(t, created.Subject.Key()).Equal("comment/42")
		gt.Bool(t, created.Processed()).False()
		gt.Bool(t, created.CreatedAt.IsZero()).False()

		retrieved, err := repo.Event().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, retrieved.Actor.ID).Equal("member-a")
		gt.Value(t, retrieved.Metadata["parent_post_id"]).Equal("7")
	})

	t.Run("Create rejects malformed events", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Event().Create(ctx, &model.Event{
			Action:         types.ActionKind("renamed"),
			Subject:        types.EntityRef{Kind: types.EntityPost, ID: "1"},
			OrganizationID: "org-1",
		})
		gt.Error(t, err)

		_, err = repo.Event().Create(ctx, &model.Event{
			Action:  types.ActionCreated,
			Subject: types.EntityRef{Kind: types.EntityPost, ID: "1"},
		})
		gt.Error(t, err)
	})

	t.Run("Get returns ErrNotFound for unknown event", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Event().Get(ctx, types.NewEventID())
		gt.Error(t, err)
		gt.True(t, errors.Is(err, interfaces.ErrNotFound))
	})

	t.Run("MarkProcessed transitions exactly once", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Event().Create(ctx, &model.Event{
			Action:         types.ActionPublished,
			Subject:        types.EntityRef{Kind: types.EntityPost, ID: "7"},
			OrganizationID: "org-1",
		})
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Event().MarkProcessed(ctx, created.ID, time.Now()))

		retrieved, err := repo.Event().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, retrieved.Processed()).True()

		err = repo.Event().MarkProcessed(ctx, created.ID, time.Now())
		gt.Error(t, err)
		gt.True(t, errors.Is(err, interfaces.ErrAlreadyProcessed))
	})
}

func TestEventRepository_Memory(t *testing.T) {
	runEventRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestEventRepository_Firestore(t *testing.T) {
	projectID := os.Getenv("FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("FIRESTORE_PROJECT_ID not set")
	}

	runEventRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		repo, err := firestore.New(context.Background(), projectID, "")
		gt.NoError(t, err).Required()
		return repo
	})
}
