package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/repository/firestore"
	"github.com/harborhq/relay/pkg/repository/memory"
)

// testRecipient returns a fresh member ID so runs against a shared
// Firestore project never see each other's rows
func testRecipient() types.MemberID {
	return types.MemberID("member-" + uuid.NewString())
}

func newNotification(recipient types.MemberID, target types.EntityRef, scope types.TargetScope, reason types.Reason) *model.Notification {
	return &model.Notification{
		EventID:        types.NewEventID(),
		OrganizationID: "org-1",
		RecipientID:    recipient,
		Target:         target,
		TargetScope:    scope,
		Reason:         reason,
	}
}

func runNotificationRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	post7 := types.EntityRef{Kind: types.EntityPost, ID: "7"}

	t.Run("Create assigns ID and creation time", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		recipient := testRecipient()

		created, err := repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeNone, types.ReasonParentSubscription))
		gt.NoError(t, err).Required()

		gt.String(t, created.ID.String()).NotEqual("")
		gt.Bool(t, created.CreatedAt.IsZero()).False()
		gt.Bool(t, created.Read()).False()
		gt.Bool(t, created.Discarded()).False()
	})

	t.Run("latest row wins per dedup key", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		recipient := testRecipient()

		older, err := repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeNone, types.ReasonParentSubscription))
		gt.NoError(t, err).Required()

		time.Sleep(5 * time.Millisecond)
		newer, err := repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeNone, types.ReasonMention))
		gt.NoError(t, err).Required()

		inbox, err := repo.Notification().ListHomeInbox(ctx, recipient)
		gt.NoError(t, err).Required()
		gt.Array(t, inbox).Length(1)
		gt.Value(t, inbox[0].ID).Equal(newer.ID)

		// The older row persists for audit but is excluded from views
		kept, err := repo.Notification().Get(ctx, older.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, kept.Discarded()).False()
	})

	t.Run("different scopes on one target stay separate", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		recipient := testRecipient()

		_, err := repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeNone, types.ReasonParentSubscription))
		gt.NoError(t, err).Required()
		_, err = repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeReaction, types.ReasonAdded))
		gt.NoError(t, err).Required()

		inbox, err := repo.Notification().ListHomeInbox(ctx, recipient)
		gt.NoError(t, err).Required()
		gt.Array(t, inbox).Length(1)

		activity, err := repo.Notification().ListActivity(ctx, recipient)
		gt.NoError(t, err).Required()
		gt.Array(t, activity).Length(1)
		gt.Value(t, activity[0].TargetScope).Equal(types.ScopeReaction)
	})

	t.Run("views split by target kind, reason, and scope", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		recipient := testRecipient()

		_, err := repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeNone, types.ReasonCommentResolved))
		gt.NoError(t, err).Required()
		_, err = repo.Notification().Create(ctx, newNotification(recipient,
			types.EntityRef{Kind: types.EntityProject, ID: "p1"}, types.ScopeNone, types.ReasonProjectSubscription))
		gt.NoError(t, err).Required()
		_, err = repo.Notification().Create(ctx, newNotification(recipient,
			types.EntityRef{Kind: types.EntityNote, ID: "n1"}, types.ScopeNone, types.ReasonMention))
		gt.NoError(t, err).Required()

		inbox, err := repo.Notification().ListHomeInbox(ctx, recipient)
		gt.NoError(t, err).Required()
		gt.Array(t, inbox).Length(1)
		gt.Value(t, inbox[0].Target.Kind).Equal(types.EntityNote)

		activity, err := repo.Notification().ListActivity(ctx, recipient)
		gt.NoError(t, err).Required()
		gt.Array(t, activity).Length(2)
	})

	t.Run("discarding the latest row surfaces the previous one", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		recipient := testRecipient()

		older, err := repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeNone, types.ReasonParentSubscription))
		gt.NoError(t, err).Required()

		time.Sleep(5 * time.Millisecond)
		newer, err := repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeNone, types.ReasonMention))
		gt.NoError(t, err).Required()

		now := time.Now().UTC()
		newer.DiscardedAt = &now
		_, err = repo.Notification().Update(ctx, newer)
		gt.NoError(t, err).Required()

		inbox, err := repo.Notification().ListHomeInbox(ctx, recipient)
		gt.NoError(t, err).Required()
		gt.Array(t, inbox).Length(1)
		gt.Value(t, inbox[0].ID).Equal(older.ID)
	})

	t.Run("Update persists lifecycle flags and Slack marker", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		recipient := testRecipient()

		created, err := repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeNone, types.ReasonMention))
		gt.NoError(t, err).Required()

		now := time.Now().UTC()
		created.ReadAt = &now
		created.SlackMessageTS = "1726000000.000100"
		updated, err := repo.Notification().Update(ctx, created)
		gt.NoError(t, err).Required()
		gt.Bool(t, updated.Read()).True()

		retrieved, err := repo.Notification().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, retrieved.Read()).True()
		gt.Value(t, retrieved.SlackMessageTS).Equal("1726000000.000100")
	})

	t.Run("DiscardHomeInbox leaves other scopes untouched", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		recipient := testRecipient()

		_, err := repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeNone, types.ReasonParentSubscription))
		gt.NoError(t, err).Required()
		_, err = repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeNone, types.ReasonMention))
		gt.NoError(t, err).Required()
		reaction, err := repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeReaction, types.ReasonAdded))
		gt.NoError(t, err).Required()

		count, err := repo.Notification().DiscardHomeInbox(ctx, recipient, post7, time.Now())
		gt.NoError(t, err).Required()
		gt.Value(t, count).Equal(2)

		inbox, err := repo.Notification().ListHomeInbox(ctx, recipient)
		gt.NoError(t, err).Required()
		gt.Array(t, inbox).Length(0)

		activity, err := repo.Notification().ListActivity(ctx, recipient)
		gt.NoError(t, err).Required()
		gt.Array(t, activity).Length(1)
		gt.Value(t, activity[0].ID).Equal(reaction.ID)
	})

	t.Run("ListCreatedSince covers the digest watermark", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		recipient := testRecipient()

		first, err := repo.Notification().Create(ctx,
			newNotification(recipient, post7, types.ScopeNone, types.ReasonParentSubscription))
		gt.NoError(t, err).Required()

		watermark := first.CreatedAt.Add(time.Millisecond)
		time.Sleep(5 * time.Millisecond)

		second, err := repo.Notification().Create(ctx, newNotification(recipient,
			types.EntityRef{Kind: types.EntityNote, ID: "n1"}, types.ScopeNone, types.ReasonMention))
		gt.NoError(t, err).Required()

		since, err := repo.Notification().ListCreatedSince(ctx, recipient, watermark)
		gt.NoError(t, err).Required()
		gt.Array(t, since).Length(1)
		gt.Value(t, since[0].ID).Equal(second.ID)
	})
}

func TestNotificationRepository_Memory(t *testing.T) {
	runNotificationRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestNotificationRepository_Firestore(t *testing.T) {
	projectID := os.Getenv("FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("FIRESTORE_PROJECT_ID not set")
	}

	runNotificationRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		repo, err := firestore.New(context.Background(), projectID, "")
		gt.NoError(t, err).Required()
		return repo
	})
}
