package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

type notificationRepository struct {
	mu            sync.RWMutex
	notifications map[types.NotificationID]*model.Notification

	// byKey holds row IDs per dedup key in creation order; latest is
	// the incrementally maintained "newest non-discarded row" pointer.
	byKey  map[string][]types.NotificationID
	latest map[string]types.NotificationID
}

var _ interfaces.NotificationRepository = &notificationRepository{}

func newNotificationRepository() *notificationRepository {
	return &notificationRepository{
		notifications: make(map[types.NotificationID]*model.Notification),
		byKey:         make(map[string][]types.NotificationID),
		latest:        make(map[string]types.NotificationID),
	}
}

func copyNotification(n *model.Notification) *model.Notification {
	copied := &model.Notification{
		ID:             n.ID,
		EventID:        n.EventID,
		OrganizationID: n.OrganizationID,
		RecipientID:    n.RecipientID,
		Target:         n.Target,
		TargetScope:    n.TargetScope,
		Reason:         n.Reason,
		CreatedAt:      n.CreatedAt,
		SlackMessageTS: n.SlackMessageTS,
	}
	copied.ReadAt = copyTime(n.ReadAt)
	copied.ArchivedAt = copyTime(n.ArchivedAt)
	copied.DiscardedAt = copyTime(n.DiscardedAt)
	return copied
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	if err := n.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid notification")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyNotification(n)
	if created.ID == "" {
		created.ID = types.NewNotificationID()
	}
	created.CreatedAt = time.Now().UTC()

	key := created.DedupKey()
	r.notifications[created.ID] = created
	r.byKey[key] = append(r.byKey[key], created.ID)
	r.repairLatest(key)

	return copyNotification(created), nil
}

func (r *notificationRepository) Get(ctx context.Context, id types.NotificationID) (*model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifications[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "notification not found", goerr.V("notification_id", id))
	}
	return copyNotification(n), nil
}

func (r *notificationRepository) Update(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.notifications[n.ID]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "notification not found", goerr.V("notification_id", n.ID))
	}

	// Only lifecycle timestamps and the delivery marker are mutable
	stored.ReadAt = copyTime(n.ReadAt)
	stored.ArchivedAt = copyTime(n.ArchivedAt)
	stored.DiscardedAt = copyTime(n.DiscardedAt)
	stored.SlackMessageTS = n.SlackMessageTS

	r.repairLatest(stored.DedupKey())
	return copyNotification(stored), nil
}

// repairLatest repoints the latest pointer at the newest non-discarded
// row for the key, or clears it when none remains
func (r *notificationRepository) repairLatest(key string) {
	ids := r.byKey[key]
	var newest *model.Notification
	for _, id := range ids {
		n := r.notifications[id]
		if n == nil || n.Discarded() {
			continue
		}
		if newest == nil || n.CreatedAt.After(newest.CreatedAt) {
			newest = n
		}
	}
	if newest == nil {
		delete(r.latest, key)
		return
	}
	r.latest[key] = newest.ID
}

func (r *notificationRepository) listLive(recipient types.MemberID, homeInbox bool) []*model.Notification {
	var result []*model.Notification
	for _, id := range r.latest {
		n := r.notifications[id]
		if n == nil || n.RecipientID != recipient {
			continue
		}
		if n.HomeInbox() != homeInbox {
			continue
		}
		result = append(result, copyNotification(n))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (r *notificationRepository) ListHomeInbox(ctx context.Context, recipient types.MemberID) ([]*model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLive(recipient, true), nil
}

func (r *notificationRepository) ListActivity(ctx context.Context, recipient types.MemberID) ([]*model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLive(recipient, false), nil
}

func (r *notificationRepository) ListCreatedSince(ctx context.Context, recipient types.MemberID, since time.Time) ([]*model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Notification
	for _, n := range r.notifications {
		if n.RecipientID != recipient || n.Discarded() {
			continue
		}
		if n.CreatedAt.Before(since) {
			continue
		}
		result = append(result, copyNotification(n))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *notificationRepository) DiscardHomeInbox(ctx context.Context, recipient types.MemberID, target types.EntityRef, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	discardedAt := at.UTC()
	count := 0
	touched := make(map[string]struct{})

	for _, n := range r.notifications {
		if n.RecipientID != recipient || n.Discarded() {
			continue
		}
		if !n.Target.Equal(target) || !n.HomeInbox() {
			continue
		}
		ts := discardedAt
		n.DiscardedAt = &ts
		touched[n.DedupKey()] = struct{}{}
		count++
	}

	for key := range touched {
		r.repairLatest(key)
	}
	return count, nil
}
