package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/service/slack"
	"github.com/harborhq/relay/pkg/utils/async"
	"github.com/harborhq/relay/pkg/utils/logging"
)

// Coordinator implements the per-channel gating and idempotency
// policies. It decides whether each transport is called and owns the
// persisted markers; the transports themselves are collaborators.
type Coordinator struct {
	repo         interfaces.Repository
	slackSvc     slack.Service
	broadcaster  Broadcaster
	digest       DigestQueue
	webPush      WebPushSender
	channels     Channels
	digestWindow time.Duration
	now          func() time.Time
}

// Channels are the operator-level channel toggles from the delivery
// policy. A disabled channel never fires even when its collaborator
// is configured.
type Channels struct {
	InApp   bool
	Email   bool
	Slack   bool
	WebPush bool
}

// Option is a functional option for Coordinator configuration
type Option func(*Coordinator)

// WithChannels applies the delivery policy's channel toggles
func WithChannels(c Channels) Option {
	return func(co *Coordinator) {
		co.channels = c
	}
}

// WithDigestWindow sets the default lookback used when an email
// digest is enqueued without an explicit watermark
func WithDigestWindow(d time.Duration) Option {
	return func(co *Coordinator) {
		co.digestWindow = d
	}
}

// WithSlack enables the Slack DM channel
func WithSlack(svc slack.Service) Option {
	return func(c *Coordinator) {
		c.slackSvc = svc
	}
}

// WithBroadcaster enables the in-app channel
func WithBroadcaster(b Broadcaster) Option {
	return func(c *Coordinator) {
		c.broadcaster = b
	}
}

// WithDigestQueue enables the email digest channel
func WithDigestQueue(q DigestQueue) Option {
	return func(c *Coordinator) {
		c.digest = q
	}
}

// WithWebPush enables the web push channel
func WithWebPush(s WebPushSender) Option {
	return func(c *Coordinator) {
		c.webPush = s
	}
}

// WithClock overrides the time source for tests
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New creates a delivery coordinator. Channels without a configured
// collaborator are silently disabled.
func New(repo interfaces.Repository, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:         repo,
		channels:     Channels{InApp: true, Email: true, Slack: true, WebPush: true},
		digestWindow: 24 * time.Hour,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NotifyCreated fires the in-app channel for a freshly created
// notification. Fire and forget: no gating, no marker, and failures
// are only logged. Duplicate or dropped delivery is acceptable here.
func (c *Coordinator) NotifyCreated(ctx context.Context, n *model.Notification) {
	if !c.channels.InApp || c.broadcaster == nil {
		return
	}

	notification := n
	async.Dispatch(ctx, func(ctx context.Context) error {
		if err := c.broadcaster.NotificationCreated(ctx, notification); err != nil {
			return goerr.Wrap(err, "in-app broadcast failed",
				goerr.V("notification_id", notification.ID))
		}
		return nil
	})
}

// DeliverSlack sends the notification as a Slack DM. Gated by the
// recipient's Slack preference, the pause state, and the absence of a
// persisted message timestamp. The timestamp returned by the API is
// persisted as the idempotency marker, so a retried call is a no-op.
func (c *Coordinator) DeliverSlack(ctx context.Context, id types.NotificationID) error {
	if !c.channels.Slack || c.slackSvc == nil {
		return nil
	}

	n, err := c.repo.Notification().Get(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to load notification", goerr.V("notification_id", id))
	}
	if n.SlackMessageTS != "" {
		return nil
	}

	member, err := c.repo.Member().Get(ctx, n.RecipientID)
	if err != nil {
		return goerr.Wrap(err, "failed to load recipient", goerr.V("recipient_id", n.RecipientID))
	}
	if !member.SlackNotifications || member.SlackUserID == "" {
		return nil
	}
	if member.Paused(c.now()) {
		return nil
	}

	ts, err := c.slackSvc.PostDirectMessage(ctx, member.SlackUserID, summaryText(n))
	if err != nil {
		return goerr.Wrap(err, "failed to send Slack DM",
			goerr.V("notification_id", n.ID),
			goerr.V("recipient_id", n.RecipientID))
	}

	n.SlackMessageTS = ts
	if _, err := c.repo.Notification().Update(ctx, n); err != nil {
		return goerr.Wrap(err, "failed to persist Slack delivery marker",
			goerr.V("notification_id", n.ID),
			goerr.V("timestamp", ts))
	}

	return nil
}

// DeleteSlackMessage removes a previously delivered Slack DM. Guarded
// by the marker: without a persisted timestamp there is nothing to
// delete and the call is a no-op.
func (c *Coordinator) DeleteSlackMessage(ctx context.Context, id types.NotificationID) error {
	if c.slackSvc == nil {
		return nil
	}

	n, err := c.repo.Notification().Get(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to load notification", goerr.V("notification_id", id))
	}
	if n.SlackMessageTS == "" {
		return nil
	}

	member, err := c.repo.Member().Get(ctx, n.RecipientID)
	if err != nil {
		return goerr.Wrap(err, "failed to load recipient", goerr.V("recipient_id", n.RecipientID))
	}

	if err := c.slackSvc.DeleteDirectMessage(ctx, member.SlackUserID, n.SlackMessageTS); err != nil {
		return goerr.Wrap(err, "failed to delete Slack DM",
			goerr.V("notification_id", n.ID),
			goerr.V("timestamp", n.SlackMessageTS))
	}

	n.SlackMessageTS = ""
	if _, err := c.repo.Notification().Update(ctx, n); err != nil {
		return goerr.Wrap(err, "failed to clear Slack delivery marker",
			goerr.V("notification_id", n.ID))
	}

	return nil
}

// EnqueueEmailDigest collects the recipient's notifications created at
// or after the watermark and hands them to the digest queue. Gated by
// the email preference and the pause state. A zero watermark defaults
// to the policy's digest window back from now. Notifications are never
// emailed individually; the digest job's own watermark owns
// idempotency.
func (c *Coordinator) EnqueueEmailDigest(ctx context.Context, recipient types.MemberID, since time.Time) error {
	if !c.channels.Email || c.digest == nil {
		return nil
	}
	if since.IsZero() {
		since = c.now().Add(-c.digestWindow)
	}

	member, err := c.repo.Member().Get(ctx, recipient)
	if err != nil {
		return goerr.Wrap(err, "failed to load recipient", goerr.V("recipient_id", recipient))
	}
	if !member.EmailNotifications {
		return nil
	}
	if member.Paused(c.now()) {
		return nil
	}

	notifications, err := c.repo.Notification().ListCreatedSince(ctx, recipient, since)
	if err != nil {
		return goerr.Wrap(err, "failed to list notifications for digest",
			goerr.V("recipient_id", recipient),
			goerr.V("since", since))
	}
	if len(notifications) == 0 {
		return nil
	}

	if err := c.digest.Enqueue(ctx, recipient, notifications); err != nil {
		return goerr.Wrap(err, "failed to enqueue email digest",
			goerr.V("recipient_id", recipient),
			goerr.V("count", len(notifications)))
	}

	return nil
}

// DeliverWebPush fans the notification out to every device
// subscription the recipient has registered. Gated only by the pause
// state; there is no per-subscription marker. A subscription the
// transport reports as gone is deleted, a self-healing outcome scoped
// to that one subscription.
func (c *Coordinator) DeliverWebPush(ctx context.Context, id types.NotificationID) error {
	if !c.channels.WebPush || c.webPush == nil {
		return nil
	}

	n, err := c.repo.Notification().Get(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to load notification", goerr.V("notification_id", id))
	}

	member, err := c.repo.Member().Get(ctx, n.RecipientID)
	if err != nil {
		return goerr.Wrap(err, "failed to load recipient", goerr.V("recipient_id", n.RecipientID))
	}
	if member.Paused(c.now()) {
		return nil
	}

	subs, err := c.repo.PushSubscription().ListByMember(ctx, n.RecipientID)
	if err != nil {
		return goerr.Wrap(err, "failed to list push subscriptions",
			goerr.V("recipient_id", n.RecipientID))
	}

	var eg errgroup.Group
	for _, sub := range subs {
		eg.Go(func() error {
			err := c.webPush.Send(ctx, sub, n)
			if err == nil {
				return nil
			}
			if errors.Is(err, ErrSubscriptionGone) {
				logging.From(ctx).Info("deleting expired push subscription",
					"subscription_id", sub.ID,
					"recipient_id", n.RecipientID)
				if delErr := c.repo.PushSubscription().Delete(ctx, sub.ID); delErr != nil {
					return goerr.Wrap(delErr, "failed to delete expired push subscription",
						goerr.V("subscription_id", sub.ID))
				}
				return nil
			}
			return goerr.Wrap(err, "web push send failed",
				goerr.V("subscription_id", sub.ID),
				goerr.V("notification_id", n.ID))
		})
	}

	return eg.Wait()
}

// summaryText builds a minimal plain-text summary for transports that
// need one. Full rendering belongs to the host application.
func summaryText(n *model.Notification) string {
	return fmt.Sprintf("[%s] %s %s", n.Reason, n.Target.Kind, n.Target.ID)
}
