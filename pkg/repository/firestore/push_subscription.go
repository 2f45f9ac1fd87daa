package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"google.golang.org/api/iterator"
)

const pushSubscriptionsCollection = "push_subscriptions"

type pushSubscriptionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.PushSubscriptionRepository = &pushSubscriptionRepository{}

func newPushSubscriptionRepository(client *firestore.Client) *pushSubscriptionRepository {
	return &pushSubscriptionRepository{client: client}
}

// pushSubscriptionDoc is the Firestore persistence model
type pushSubscriptionDoc struct {
	ID        string
	MemberID  string
	Endpoint  string
	P256DH    string
	Auth      string
	CreatedAt time.Time
}

func (r *pushSubscriptionRepository) collection() *firestore.CollectionRef {
	name := pushSubscriptionsCollection
	if r.collectionPrefix != "" {
		name = r.collectionPrefix + name
	}
	return r.client.Collection(name)
}

func (r *pushSubscriptionRepository) Create(ctx context.Context, s *model.PushSubscription) (*model.PushSubscription, error) {
	if err := s.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid push subscription")
	}

	created := *s
	if created.ID == "" {
		created.ID = types.NewSubscriptionID()
	}
	created.CreatedAt = time.Now().UTC()

	doc := &pushSubscriptionDoc{
		ID:        created.ID.String(),
		MemberID:  created.MemberID.String(),
		Endpoint:  created.Endpoint,
		P256DH:    created.P256DH,
		Auth:      created.Auth,
		CreatedAt: created.CreatedAt,
	}
	if _, err := r.collection().Doc(doc.ID).Create(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to create push subscription", goerr.V("subscription_id", created.ID))
	}
	return &created, nil
}

func (r *pushSubscriptionRepository) ListByMember(ctx context.Context, member types.MemberID) ([]*model.PushSubscription, error) {
	iter := r.collection().Where("MemberID", "==", member.String()).Documents(ctx)
	defer iter.Stop()

	var result []*model.PushSubscription
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list push subscriptions", goerr.V("member_id", member))
		}

		var doc pushSubscriptionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode push subscription")
		}
		result = append(result, &model.PushSubscription{
			ID:        types.SubscriptionID(doc.ID),
			MemberID:  types.MemberID(doc.MemberID),
			Endpoint:  doc.Endpoint,
			P256DH:    doc.P256DH,
			Auth:      doc.Auth,
			CreatedAt: doc.CreatedAt,
		})
	}
	return result, nil
}

func (r *pushSubscriptionRepository) Delete(ctx context.Context, id types.SubscriptionID) error {
	// Delete is idempotent; a missing document is not an error
	if _, err := r.collection().Doc(id.String()).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete push subscription", goerr.V("subscription_id", id))
	}
	return nil
}
