package delivery_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/repository/memory"
	"github.com/harborhq/relay/pkg/service/delivery"
	slacksvc "github.com/harborhq/relay/pkg/service/slack"
)

type fakeSlack struct {
	mu      sync.Mutex
	posts   []string
	deletes []string
	ts      string
}

func (f *fakeSlack) PostDirectMessage(ctx context.Context, userID string, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, userID)
	return f.ts, nil
}

func (f *fakeSlack) DeleteDirectMessage(ctx context.Context, userID string, timestamp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, timestamp)
	return nil
}

func (f *fakeSlack) GetUserInfo(ctx context.Context, userID string) (*slacksvc.User, error) {
	return &slacksvc.User{ID: userID}, nil
}

type fakeDigest struct {
	mu      sync.Mutex
	batches [][]*model.Notification
}

func (f *fakeDigest) Enqueue(ctx context.Context, recipient types.MemberID, notifications []*model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, notifications)
	return nil
}

type fakeWebPush struct {
	mu   sync.Mutex
	sent []types.SubscriptionID
	gone map[types.SubscriptionID]bool
}

func (f *fakeWebPush) Send(ctx context.Context, sub *model.PushSubscription, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[sub.ID] {
		return delivery.ErrSubscriptionGone
	}
	f.sent = append(f.sent, sub.ID)
	return nil
}

func setupMember(t *testing.T, repo interfaces.Repository, slackPref bool) *model.Member {
	t.Helper()
	member, err := repo.Member().Create(context.Background(), &model.Member{
		ID:                 types.MemberID("member-" + uuid.NewString()),
		OrganizationID:     types.OrgID("org-1"),
		Email:              "dev@example.com",
		DisplayName:        "Dev",
		EmailNotifications: true,
		SlackNotifications: slackPref,
		SlackUserID:        "U123",
	})
	gt.NoError(t, err).Required()
	return member
}

func setupNotification(t *testing.T, repo interfaces.Repository, recipient types.MemberID) *model.Notification {
	t.Helper()
	ctx := context.Background()

	event, err := repo.Event().Create(ctx, &model.Event{
		Action:         types.ActionCreated,
		Subject:        types.EntityRef{Kind: types.EntityComment, ID: "42"},
		OrganizationID: types.OrgID("org-1"),
	})
	gt.NoError(t, err).Required()

	n, err := repo.Notification().Create(ctx, &model.Notification{
		EventID:        event.ID,
		OrganizationID: types.OrgID("org-1"),
		RecipientID:    recipient,
		Target:         types.EntityRef{Kind: types.EntityPost, ID: "7"},
		Reason:         types.ReasonParentSubscription,
	})
	gt.NoError(t, err).Required()
	return n
}

func TestDeliverSlackIdempotency(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	member := setupMember(t, repo, true)
	n := setupNotification(t, repo, member.ID)

	sender := &fakeSlack{ts: "1700000000.000100"}
	coord := delivery.New(repo, delivery.WithSlack(sender))

	gt.NoError(t, coord.DeliverSlack(ctx, n.ID))
	gt.NoError(t, coord.DeliverSlack(ctx, n.ID))

	gt.Array(t, sender.posts).Length(1)

	stored, err := repo.Notification().Get(ctx, n.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, stored.SlackMessageTS).Equal("1700000000.000100")
}

func TestDeliverSlackGates(t *testing.T) {
	t.Run("preference off", func(t *testing.T) {
		repo := memory.New()
		member := setupMember(t, repo, false)
		n := setupNotification(t, repo, member.ID)

		sender := &fakeSlack{ts: "1.0"}
		coord := delivery.New(repo, delivery.WithSlack(sender))

		gt.NoError(t, coord.DeliverSlack(context.Background(), n.ID))
		gt.Array(t, sender.posts).Length(0)
	})

	t.Run("paused recipient", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()
		member := setupMember(t, repo, true)

		now := time.Now().UTC()
		expires := now.Add(time.Hour)
		member.NotificationsPausedAt = &now
		member.NotificationPauseExpiresAt = &expires
		_, err := repo.Member().Update(ctx, member)
		gt.NoError(t, err).Required()

		n := setupNotification(t, repo, member.ID)

		sender := &fakeSlack{ts: "1.0"}
		coord := delivery.New(repo, delivery.WithSlack(sender))

		gt.NoError(t, coord.DeliverSlack(ctx, n.ID))
		gt.Array(t, sender.posts).Length(0)
	})

	t.Run("expired pause no longer gates", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()
		member := setupMember(t, repo, true)

		paused := time.Now().UTC().Add(-2 * time.Hour)
		expired := time.Now().UTC().Add(-time.Hour)
		member.NotificationsPausedAt = &paused
		member.NotificationPauseExpiresAt = &expired
		_, err := repo.Member().Update(ctx, member)
		gt.NoError(t, err).Required()

		n := setupNotification(t, repo, member.ID)

		sender := &fakeSlack{ts: "1.0"}
		coord := delivery.New(repo, delivery.WithSlack(sender))

		gt.NoError(t, coord.DeliverSlack(ctx, n.ID))
		gt.Array(t, sender.posts).Length(1)
	})
}

func TestDeleteSlackMessageGuard(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	member := setupMember(t, repo, true)
	n := setupNotification(t, repo, member.ID)

	sender := &fakeSlack{ts: "1700000000.000200"}
	coord := delivery.New(repo, delivery.WithSlack(sender))

	// No marker yet: nothing to delete
	gt.NoError(t, coord.DeleteSlackMessage(ctx, n.ID))
	gt.Array(t, sender.deletes).Length(0)

	gt.NoError(t, coord.DeliverSlack(ctx, n.ID))
	gt.NoError(t, coord.DeleteSlackMessage(ctx, n.ID))
	gt.Array(t, sender.deletes).Length(1)
	gt.Value(t, sender.deletes[0]).Equal("1700000000.000200")

	stored, err := repo.Notification().Get(ctx, n.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, stored.SlackMessageTS).Equal("")
}

func TestEnqueueEmailDigest(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	member := setupMember(t, repo, true)
	watermark := time.Now().UTC().Add(-time.Minute)
	setupNotification(t, repo, member.ID)
	setupNotification(t, repo, member.ID)

	queue := &fakeDigest{}
	coord := delivery.New(repo, delivery.WithDigestQueue(queue))

	gt.NoError(t, coord.EnqueueEmailDigest(ctx, member.ID, watermark))
	gt.Array(t, queue.batches).Length(1)
	gt.Array(t, queue.batches[0]).Length(2)

	t.Run("empty batch is not enqueued", func(t *testing.T) {
		future := time.Now().UTC().Add(time.Hour)
		gt.NoError(t, coord.EnqueueEmailDigest(ctx, member.ID, future))
		gt.Array(t, queue.batches).Length(1)
	})

	t.Run("preference off skips the queue", func(t *testing.T) {
		member.EmailNotifications = false
		_, err := repo.Member().Update(ctx, member)
		gt.NoError(t, err).Required()

		gt.NoError(t, coord.EnqueueEmailDigest(ctx, member.ID, watermark))
		gt.Array(t, queue.batches).Length(1)
	})
}

func TestChannelToggles(t *testing.T) {
	t.Run("slack disabled", func(t *testing.T) {
		repo := memory.New()
		member := setupMember(t, repo, true)
		n := setupNotification(t, repo, member.ID)

		sender := &fakeSlack{ts: "1.0"}
		coord := delivery.New(repo,
			delivery.WithSlack(sender),
			delivery.WithChannels(delivery.Channels{InApp: true, Email: true, WebPush: true}))

		gt.NoError(t, coord.DeliverSlack(context.Background(), n.ID))
		gt.Array(t, sender.posts).Length(0)
	})

	t.Run("email disabled", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()
		member := setupMember(t, repo, true)
		setupNotification(t, repo, member.ID)

		queue := &fakeDigest{}
		coord := delivery.New(repo,
			delivery.WithDigestQueue(queue),
			delivery.WithChannels(delivery.Channels{InApp: true, Slack: true, WebPush: true}))

		gt.NoError(t, coord.EnqueueEmailDigest(ctx, member.ID, time.Now().UTC().Add(-time.Minute)))
		gt.Array(t, queue.batches).Length(0)
	})

	t.Run("web push disabled", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()
		member := setupMember(t, repo, true)
		n := setupNotification(t, repo, member.ID)

		_, err := repo.PushSubscription().Create(ctx, &model.PushSubscription{
			MemberID: member.ID,
			Endpoint: "https://push.example.com/send/laptop",
		})
		gt.NoError(t, err).Required()

		sender := &fakeWebPush{}
		coord := delivery.New(repo,
			delivery.WithWebPush(sender),
			delivery.WithChannels(delivery.Channels{InApp: true, Email: true, Slack: true}))

		gt.NoError(t, coord.DeliverWebPush(ctx, n.ID))
		gt.Array(t, sender.sent).Length(0)
	})
}

func TestEnqueueEmailDigestDefaultWindow(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	member := setupMember(t, repo, true)
	setupNotification(t, repo, member.ID)

	t.Run("rows inside the window are batched", func(t *testing.T) {
		queue := &fakeDigest{}
		coord := delivery.New(repo,
			delivery.WithDigestQueue(queue),
			delivery.WithDigestWindow(24*time.Hour))

		gt.NoError(t, coord.EnqueueEmailDigest(ctx, member.ID, time.Time{}))
		gt.Array(t, queue.batches).Length(1)
		gt.Array(t, queue.batches[0]).Length(1)
	})

	t.Run("rows older than the window are left out", func(t *testing.T) {
		queue := &fakeDigest{}
		future := time.Now().UTC().Add(48 * time.Hour)
		coord := delivery.New(repo,
			delivery.WithDigestQueue(queue),
			delivery.WithDigestWindow(24*time.Hour),
			delivery.WithClock(func() time.Time { return future }))

		gt.NoError(t, coord.EnqueueEmailDigest(ctx, member.ID, time.Time{}))
		gt.Array(t, queue.batches).Length(0)
	})
}

func TestDeliverWebPush(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	member := setupMember(t, repo, true)
	n := setupNotification(t, repo, member.ID)

	sub1, err := repo.PushSubscription().Create(ctx, &model.PushSubscription{
		MemberID: member.ID,
		Endpoint: "https://push.example.com/send/laptop",
	})
	gt.NoError(t, err).Required()
	sub2, err := repo.PushSubscription().Create(ctx, &model.PushSubscription{
		MemberID: member.ID,
		Endpoint: "https://push.example.com/send/phone",
	})
	gt.NoError(t, err).Required()

	sender := &fakeWebPush{gone: map[types.SubscriptionID]bool{sub2.ID: true}}
	coord := delivery.New(repo, delivery.WithWebPush(sender))

	gt.NoError(t, coord.DeliverWebPush(ctx, n.ID))

	// The live subscription was delivered to; the expired one was
	// removed without failing the fan-out
	gt.Array(t, sender.sent).Length(1)
	gt.Value(t, sender.sent[0]).Equal(sub1.ID)

	subs, err := repo.PushSubscription().ListByMember(ctx, member.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, subs).Length(1)
	gt.Value(t, subs[0].ID).Equal(sub1.ID)
}
