package firestore

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	notificationsCollection      = "notifications"
	notificationLatestCollection = "notification_latest"
)

type notificationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.NotificationRepository = &notificationRepository{}

func newNotificationRepository(client *firestore.Client) *notificationRepository {
	return &notificationRepository{client: client}
}

// notificationDoc is the Firestore persistence model. TargetKey and
// DedupKey are denormalized at insert time so views and the bulk
// discard can query without composite scans.
type notificationDoc struct {
	ID             string
	EventID        string
	OrganizationID string
	RecipientID    string
	TargetKind     string
	TargetID       string
	TargetKey      string
	TargetScope    string
	Reason         string
	DedupKey       string
	CreatedAt      time.Time
	ReadAt         *time.Time
	ArchivedAt     *time.Time
	DiscardedAt    *time.Time
	SlackMessageTS string
}

// latestDoc is the incrementally maintained latest-pointer entry, one
// per dedup key, updated transactionally at insert
type latestDoc struct {
	DedupKey       string
	NotificationID string
	RecipientID    string
	CreatedAt      time.Time
}

func (r *notificationRepository) collection() *firestore.CollectionRef {
	name := notificationsCollection
	if r.collectionPrefix != "" {
		name = r.collectionPrefix + name
	}
	return r.client.Collection(name)
}

func (r *notificationRepository) latestCollection() *firestore.CollectionRef {
	name := notificationLatestCollection
	if r.collectionPrefix != "" {
		name = r.collectionPrefix + name
	}
	return r.client.Collection(name)
}

// latestDocID flattens a dedup key into a valid Firestore document ID
func latestDocID(key string) string {
	return strings.ReplaceAll(key, "/", "#")
}

func toNotificationDoc(n *model.Notification) *notificationDoc {
	return &notificationDoc{
		ID:             n.ID.String(),
		EventID:        n.EventID.String(),
		OrganizationID: n.OrganizationID.String(),
		RecipientID:    n.RecipientID.String(),
		TargetKind:     n.Target.Kind.String(),
		TargetID:       n.Target.ID,
		TargetKey:      n.Target.Key(),
		TargetScope:    n.TargetScope.String(),
		Reason:         n.Reason.String(),
		DedupKey:       n.DedupKey(),
		CreatedAt:      n.CreatedAt,
		ReadAt:         n.ReadAt,
		ArchivedAt:     n.ArchivedAt,
		DiscardedAt:    n.DiscardedAt,
		SlackMessageTS: n.SlackMessageTS,
	}
}

func (d *notificationDoc) toModel() *model.Notification {
	return &model.Notification{
		ID:             types.NotificationID(d.ID),
		EventID:        types.EventID(d.EventID),
		OrganizationID: types.OrgID(d.OrganizationID),
		RecipientID:    types.MemberID(d.RecipientID),
		Target:         types.EntityRef{Kind: types.EntityKind(d.TargetKind), ID: d.TargetID},
		TargetScope:    types.TargetScope(d.TargetScope),
		Reason:         types.Reason(d.Reason),
		CreatedAt:      d.CreatedAt,
		ReadAt:         d.ReadAt,
		ArchivedAt:     d.ArchivedAt,
		DiscardedAt:    d.DiscardedAt,
		SlackMessageTS: d.SlackMessageTS,
	}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	if err := n.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid notification")
	}

	created := *n
	if created.ID == "" {
		created.ID = types.NewNotificationID()
	}
	created.CreatedAt = time.Now().UTC()

	doc := toNotificationDoc(&created)
	rowRef := r.collection().Doc(doc.ID)
	latestRef := r.latestCollection().Doc(latestDocID(doc.DedupKey))

	// Row insert and latest-pointer advance commit together
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(latestRef)
		advance := true
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}
		} else {
			var stored latestDoc
			if err := snap.DataTo(&stored); err != nil {
				return err
			}
			advance = doc.CreatedAt.After(stored.CreatedAt)
		}

		if err := tx.Create(rowRef, doc); err != nil {
			return err
		}
		if advance {
			return tx.Set(latestRef, &latestDoc{
				DedupKey:       doc.DedupKey,
				NotificationID: doc.ID,
				RecipientID:    doc.RecipientID,
				CreatedAt:      doc.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create notification", goerr.V("notification_id", created.ID))
	}
	return &created, nil
}

func (r *notificationRepository) Get(ctx context.Context, id types.NotificationID) (*model.Notification, error) {
	snap, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "notification not found", goerr.V("notification_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get notification", goerr.V("notification_id", id))
	}

	var doc notificationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode notification", goerr.V("notification_id", id))
	}
	return doc.toModel(), nil
}

func (r *notificationRepository) Update(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	ref := r.collection().Doc(n.ID.String())

	var updated *model.Notification
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "notification not found", goerr.V("notification_id", n.ID))
			}
			return err
		}

		var doc notificationDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		// Only lifecycle timestamps and the delivery marker are mutable
		doc.ReadAt = n.ReadAt
		doc.ArchivedAt = n.ArchivedAt
		doc.DiscardedAt = n.DiscardedAt
		doc.SlackMessageTS = n.SlackMessageTS

		updated = doc.toModel()
		return tx.Set(ref, &doc)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update notification", goerr.V("notification_id", n.ID))
	}

	// A discard may orphan the latest pointer; repoint it at the
	// newest surviving row for the key
	if updated.Discarded() {
		if err := r.repairLatest(ctx, updated.DedupKey()); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// repairLatest repoints the latest-pointer entry at the newest
// non-discarded row for the key, or removes it when none remains
func (r *notificationRepository) repairLatest(ctx context.Context, key string) error {
	iter := r.collection().Where("DedupKey", "==", key).Documents(ctx)
	defer iter.Stop()

	var newest *notificationDoc
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to scan notifications for latest repair", goerr.V("dedup_key", key))
		}

		var doc notificationDoc
		if err := snap.DataTo(&doc); err != nil {
			return goerr.Wrap(err, "failed to decode notification", goerr.V("dedup_key", key))
		}
		if doc.DiscardedAt != nil {
			continue
		}
		if newest == nil || doc.CreatedAt.After(newest.CreatedAt) {
			newest = &doc
		}
	}

	latestRef := r.latestCollection().Doc(latestDocID(key))
	if newest == nil {
		if _, err := latestRef.Delete(ctx); err != nil {
			return goerr.Wrap(err, "failed to clear latest pointer", goerr.V("dedup_key", key))
		}
		return nil
	}

	if _, err := latestRef.Set(ctx, &latestDoc{
		DedupKey:       key,
		NotificationID: newest.ID,
		RecipientID:    newest.RecipientID,
		CreatedAt:      newest.CreatedAt,
	}); err != nil {
		return goerr.Wrap(err, "failed to repoint latest pointer", goerr.V("dedup_key", key))
	}
	return nil
}

func (r *notificationRepository) listLive(ctx context.Context, recipient types.MemberID, homeInbox bool) ([]*model.Notification, error) {
	iter := r.latestCollection().Where("RecipientID", "==", recipient.String()).Documents(ctx)
	defer iter.Stop()

	var result []*model.Notification
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list latest pointers", goerr.V("recipient_id", recipient))
		}

		var pointer latestDoc
		if err := snap.DataTo(&pointer); err != nil {
			return nil, goerr.Wrap(err, "failed to decode latest pointer")
		}

		n, err := r.Get(ctx, types.NotificationID(pointer.NotificationID))
		if err != nil {
			return nil, err
		}
		if n.HomeInbox() != homeInbox {
			continue
		}
		result = append(result, n)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *notificationRepository) ListHomeInbox(ctx context.Context, recipient types.MemberID) ([]*model.Notification, error) {
	return r.listLive(ctx, recipient, true)
}

func (r *notificationRepository) ListActivity(ctx context.Context, recipient types.MemberID) ([]*model.Notification, error) {
	return r.listLive(ctx, recipient, false)
}

func (r *notificationRepository) ListCreatedSince(ctx context.Context, recipient types.MemberID, since time.Time) ([]*model.Notification, error) {
	iter := r.collection().
		Where("RecipientID", "==", recipient.String()).
		Where("CreatedAt", ">=", since).
		Documents(ctx)
	defer iter.Stop()

	var result []*model.Notification
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list notifications since watermark",
				goerr.V("recipient_id", recipient), goerr.V("since", since))
		}

		var doc notificationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode notification")
		}
		if doc.DiscardedAt != nil {
			continue
		}
		result = append(result, doc.toModel())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *notificationRepository) DiscardHomeInbox(ctx context.Context, recipient types.MemberID, target types.EntityRef, at time.Time) (int, error) {
	iter := r.collection().
		Where("RecipientID", "==", recipient.String()).
		Where("TargetKey", "==", target.Key()).
		Documents(ctx)
	defer iter.Stop()

	discardedAt := at.UTC()
	count := 0
	touched := make(map[string]struct{})

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, goerr.Wrap(err, "failed to scan notifications for bulk discard",
				goerr.V("recipient_id", recipient), goerr.V("target", target.Key()))
		}

		var doc notificationDoc
		if err := snap.DataTo(&doc); err != nil {
			return 0, goerr.Wrap(err, "failed to decode notification")
		}
		if doc.DiscardedAt != nil {
			continue
		}
		if !doc.toModel().HomeInbox() {
			continue
		}

		if _, err := snap.Ref.Update(ctx, []firestore.Update{
			{Path: "DiscardedAt", Value: discardedAt},
		}); err != nil {
			return 0, goerr.Wrap(err, "failed to discard notification", goerr.V("notification_id", doc.ID))
		}
		touched[doc.DedupKey] = struct{}{}
		count++
	}

	for key := range touched {
		if err := r.repairLatest(ctx, key); err != nil {
			return count, err
		}
	}
	return count, nil
}
