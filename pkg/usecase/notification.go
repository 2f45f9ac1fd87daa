package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

type NotificationUseCase struct {
	repo interfaces.Repository
	now  func() time.Time
}

func NewNotificationUseCase(repo interfaces.Repository) *NotificationUseCase {
	return &NotificationUseCase{
		repo: repo,
		now:  time.Now,
	}
}

// mutate loads the notification, applies fn, and persists it when fn
// reports a change. Lifecycle toggles are idempotent: re-applying a
// state that already holds is a no-op.
func (uc *NotificationUseCase) mutate(ctx context.Context, id types.NotificationID, fn func(n *model.Notification) bool) (*model.Notification, error) {
	n, err := uc.repo.Notification().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load notification", goerr.V(NotificationIDKey, id))
	}

	if !fn(n) {
		return n, nil
	}

	updated, err := uc.repo.Notification().Update(ctx, n)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update notification", goerr.V(NotificationIDKey, id))
	}
	return updated, nil
}

func (uc *NotificationUseCase) MarkRead(ctx context.Context, id types.NotificationID) (*model.Notification, error) {
	return uc.mutate(ctx, id, func(n *model.Notification) bool {
		if n.ReadAt != nil {
			return false
		}
		now := uc.now().UTC()
		n.ReadAt = &now
		return true
	})
}

func (uc *NotificationUseCase) MarkUnread(ctx context.Context, id types.NotificationID) (*model.Notification, error) {
	return uc.mutate(ctx, id, func(n *model.Notification) bool {
		if n.ReadAt == nil {
			return false
		}
		n.ReadAt = nil
		return true
	})
}

func (uc *NotificationUseCase) Archive(ctx context.Context, id types.NotificationID) (*model.Notification, error) {
	return uc.mutate(ctx, id, func(n *model.Notification) bool {
		if n.ArchivedAt != nil {
			return false
		}
		now := uc.now().UTC()
		n.ArchivedAt = &now
		return true
	})
}

func (uc *NotificationUseCase) Unarchive(ctx context.Context, id types.NotificationID) (*model.Notification, error) {
	return uc.mutate(ctx, id, func(n *model.Notification) bool {
		if n.ArchivedAt == nil {
			return false
		}
		n.ArchivedAt = nil
		return true
	})
}

// Discard soft-deletes a notification. Discarded rows persist for
// audit but leave the inbox and activity views; the next-newest row
// for the same dedup key becomes live.
func (uc *NotificationUseCase) Discard(ctx context.Context, id types.NotificationID) (*model.Notification, error) {
	return uc.mutate(ctx, id, func(n *model.Notification) bool {
		if n.DiscardedAt != nil {
			return false
		}
		now := uc.now().UTC()
		n.DiscardedAt = &now
		return true
	})
}

// DiscardHomeInbox discards every non-discarded home-inbox-scoped
// notification the recipient has for the target, leaving other scopes
// (e.g. reactions) on the same target untouched. Used when a
// superseding condition makes pending notifications moot.
func (uc *NotificationUseCase) DiscardHomeInbox(ctx context.Context, recipient types.MemberID, target types.EntityRef) (int, error) {
	count, err := uc.repo.Notification().DiscardHomeInbox(ctx, recipient, target, uc.now().UTC())
	if err != nil {
		return 0, goerr.Wrap(err, "failed to discard home inbox notifications",
			goerr.V(MemberIDKey, recipient),
			goerr.V("target", target.Key()))
	}
	return count, nil
}

// HomeInbox returns the recipient's deduplicated home inbox view
func (uc *NotificationUseCase) HomeInbox(ctx context.Context, recipient types.MemberID) ([]*model.Notification, error) {
	notifications, err := uc.repo.Notification().ListHomeInbox(ctx, recipient)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list home inbox", goerr.V(MemberIDKey, recipient))
	}
	return notifications, nil
}

// Activity returns the recipient's deduplicated activity view
func (uc *NotificationUseCase) Activity(ctx context.Context, recipient types.MemberID) ([]*model.Notification, error) {
	notifications, err := uc.repo.Notification().ListActivity(ctx, recipient)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list activity", goerr.V(MemberIDKey, recipient))
	}
	return notifications, nil
}
