package interfaces

import (
	"context"

	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

// PushSubscriptionRepository defines the interface for web push
// device subscriptions
type PushSubscriptionRepository interface {
	// Create registers a new device subscription
	Create(ctx context.Context, s *model.PushSubscription) (*model.PushSubscription, error)

	// ListByMember returns all subscriptions registered by a member
	ListByMember(ctx context.Context, member types.MemberID) ([]*model.PushSubscription, error)

	// Delete removes a subscription, e.g. after the transport reports
	// it expired. Deleting a missing subscription is a no-op.
	Delete(ctx context.Context, id types.SubscriptionID) error
}
