package delivery

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

// ErrSubscriptionGone is returned by a WebPushSender when the
// transport reports the subscription as expired or invalid. The
// coordinator deletes the subscription row; the outcome is terminal
// for that one subscription and never retried.
var ErrSubscriptionGone = goerr.New("push subscription gone")

// Broadcaster pushes state changes to connected clients. Delivery is
// best effort with no tracking; a dropped or duplicated broadcast is
// acceptable.
type Broadcaster interface {
	// NotificationCreated announces a freshly created notification to
	// the recipient's connected clients
	NotificationCreated(ctx context.Context, n *model.Notification) error

	// PauseStateChanged announces a pause state transition so clients
	// reflect it without polling
	PauseStateChanged(ctx context.Context, member types.MemberID, paused bool) error
}

// DigestQueue accepts batches of notifications for email digest
// composition. Idempotency is owned by the digest job's watermark,
// not by the notifications.
type DigestQueue interface {
	Enqueue(ctx context.Context, recipient types.MemberID, notifications []*model.Notification) error
}

// WebPushSender delivers one notification to one device subscription
type WebPushSender interface {
	Send(ctx context.Context, sub *model.PushSubscription, n *model.Notification) error
}
