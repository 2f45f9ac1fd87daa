package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const eventsCollection = "events"

type eventRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.EventRepository = &eventRepository{}

func newEventRepository(client *firestore.Client) *eventRepository {
	return &eventRepository{client: client}
}

// eventDoc is the Firestore persistence model
type eventDoc struct {
	ID             string
	Action         string
	SubjectKind    string
	SubjectID      string
	ActorKind      string
	ActorID        string
	OrganizationID string
	Metadata       map[string]any
	ProcessedAt    *time.Time
	CreatedAt      time.Time
}

func (r *eventRepository) collection() *firestore.CollectionRef {
	name := eventsCollection
	if r.collectionPrefix != "" {
		name = r.collectionPrefix + name
	}
	return r.client.Collection(name)
}

func toEventDoc(e *model.Event) *eventDoc {
	doc := &eventDoc{
		ID:             e.ID.String(),
		Action:         e.Action.String(),
		SubjectKind:    e.Subject.Kind.String(),
		SubjectID:      e.Subject.ID,
		OrganizationID: e.OrganizationID.String(),
		Metadata:       e.Metadata,
		ProcessedAt:    e.ProcessedAt,
		CreatedAt:      e.CreatedAt,
	}
	if e.Actor != nil {
		doc.ActorKind = e.Actor.Kind.String()
		doc.ActorID = e.Actor.ID
	}
	return doc
}

func (d *eventDoc) toModel() *model.Event {
	e := &model.Event{
		ID:             types.EventID(d.ID),
		Action:         types.ActionKind(d.Action),
		Subject:        types.EntityRef{Kind: types.EntityKind(d.SubjectKind), ID: d.SubjectID},
		OrganizationID: types.OrgID(d.OrganizationID),
		Metadata:       d.Metadata,
		ProcessedAt:    d.ProcessedAt,
		CreatedAt:      d.CreatedAt,
	}
	if d.ActorID != "" {
		e.Actor = &types.EntityRef{Kind: types.EntityKind(d.ActorKind), ID: d.ActorID}
	}
	return e
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if err := event.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid event")
	}

	created := *event
	if created.ID == "" {
		created.ID = types.NewEventID()
	}
	created.CreatedAt = time.Now().UTC()
	created.ProcessedAt = nil

	ref := r.collection().Doc(created.ID.String())
	if _, err := ref.Create(ctx, toEventDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create event", goerr.V("event_id", created.ID))
	}
	return &created, nil
}

func (r *eventRepository) Get(ctx context.Context, id types.EventID) (*model.Event, error) {
	snap, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "event not found", goerr.V("event_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get event", goerr.V("event_id", id))
	}

	var doc eventDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode event", goerr.V("event_id", id))
	}
	return doc.toModel(), nil
}

func (r *eventRepository) MarkProcessed(ctx context.Context, id types.EventID, at time.Time) error {
	ref := r.collection().Doc(id.String())
	processedAt := at.UTC()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "event not found", goerr.V("event_id", id))
			}
			return err
		}

		var doc eventDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if doc.ProcessedAt != nil {
			return goerr.Wrap(interfaces.ErrAlreadyProcessed, "event already marked processed",
				goerr.V("event_id", id), goerr.V("processed_at", *doc.ProcessedAt))
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "ProcessedAt", Value: processedAt},
		})
	})
	if err != nil {
		return goerr.Wrap(err, "failed to mark event processed", goerr.V("event_id", id))
	}
	return nil
}
