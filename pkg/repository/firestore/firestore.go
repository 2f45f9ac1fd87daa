package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
)

// Firestore is the production repository backed by Cloud Firestore
type Firestore struct {
	client           *firestore.Client
	event            *eventRepository
	notification     *notificationRepository
	member           *memberRepository
	schedule         *scheduleRepository
	pushSubscription *pushSubscriptionRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes all collection names, which keeps
// multiple deployments apart within one database
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.event.collectionPrefix = prefix
		f.notification.collectionPrefix = prefix
		f.member.collectionPrefix = prefix
		f.schedule.collectionPrefix = prefix
		f.pushSubscription.collectionPrefix = prefix
	}
}

// New creates a Firestore-backed repository
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID), goerr.V("database_id", databaseID))
	}

	f := &Firestore{
		client:           client,
		event:            newEventRepository(client),
		notification:     newNotificationRepository(client),
		member:           newMemberRepository(client),
		schedule:         newScheduleRepository(client),
		pushSubscription: newPushSubscriptionRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Event() interfaces.EventRepository {
	return f.event
}

func (f *Firestore) Notification() interfaces.NotificationRepository {
	return f.notification
}

func (f *Firestore) Member() interfaces.MemberRepository {
	return f.member
}

func (f *Firestore) Schedule() interfaces.ScheduleRepository {
	return f.schedule
}

func (f *Firestore) PushSubscription() interfaces.PushSubscriptionRepository {
	return f.pushSubscription
}

func (f *Firestore) Close() error {
	return f.client.Close()
}
