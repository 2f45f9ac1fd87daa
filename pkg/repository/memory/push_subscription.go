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

type pushSubscriptionRepository struct {
	mu            sync.RWMutex
	subscriptions map[types.SubscriptionID]*model.PushSubscription
}

var _ interfaces.PushSubscriptionRepository = &pushSubscriptionRepository{}

func newPushSubscriptionRepository() *pushSubscriptionRepository {
	return &pushSubscriptionRepository{
		subscriptions: make(map[types.SubscriptionID]*model.PushSubscription),
	}
}

func copySubscription(s *model.PushSubscription) *model.PushSubscription {
	copied := *s
	return &copied
}

func (r *pushSubscriptionRepository) Create(ctx context.Context, s *model.PushSubscription) (*model.PushSubscription, error) {
	if err := s.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid push subscription")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := copySubscription(s)
	if created.ID == "" {
		created.ID = types.NewSubscriptionID()
	}
	created.CreatedAt = time.Now().UTC()

	r.subscriptions[created.ID] = created
	return copySubscription(created), nil
}

func (r *pushSubscriptionRepository) ListByMember(ctx context.Context, member types.MemberID) ([]*model.PushSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.PushSubscription
	for _, s := range r.subscriptions {
		if s.MemberID == member {
			result = append(result, copySubscription(s))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *pushSubscriptionRepository) Delete(ctx context.Context, id types.SubscriptionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Deleting a missing subscription is a no-op: the self-healing
	// path may race with an explicit unregister
	delete(r.subscriptions, id)
	return nil
}
