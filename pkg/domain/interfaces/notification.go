package interfaces

import (
	"context"
	"time"

	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

// NotificationRepository defines the interface for notification storage.
//
// Implementations maintain a latest-pointer index per dedup key
// (target, target_scope, recipient), updated transactionally at insert
// time, so the deduplicated views are O(1) per key instead of a
// correlated scan over all rows.
type NotificationRepository interface {
	// Create persists a new notification and advances the latest
	// pointer for its dedup key
	Create(ctx context.Context, n *model.Notification) (*model.Notification, error)

	// Get retrieves a notification by ID
	Get(ctx context.Context, id types.NotificationID) (*model.Notification, error)

	// Update persists mutable state: lifecycle timestamps and the
	// Slack delivery marker. Immutable fields are never rewritten.
	Update(ctx context.Context, n *model.Notification) (*model.Notification, error)

	// ListHomeInbox returns the recipient's deduplicated home inbox
	// view, newest first: latest non-discarded row per dedup key where
	// the target kind is post/note/call, the reason is not
	// comment_resolved, and the scope is not reaction.
	ListHomeInbox(ctx context.Context, recipient types.MemberID) ([]*model.Notification, error)

	// ListActivity returns the recipient's deduplicated activity view,
	// newest first: every live row the home inbox excludes.
	ListActivity(ctx context.Context, recipient types.MemberID) ([]*model.Notification, error)

	// ListCreatedSince returns the recipient's non-discarded
	// notifications created at or after the watermark, for digest
	// composition
	ListCreatedSince(ctx context.Context, recipient types.MemberID, since time.Time) ([]*model.Notification, error)

	// DiscardHomeInbox discards all non-discarded home-inbox-scoped
	// notifications for the recipient and target, leaving other scopes
	// on the same target untouched. Returns the number discarded.
	DiscardHomeInbox(ctx context.Context, recipient types.MemberID, target types.EntityRef, at time.Time) (int, error)
}
