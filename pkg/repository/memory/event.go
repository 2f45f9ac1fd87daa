package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

type eventRepository struct {
	mu     sync.RWMutex
	events map[types.EventID]*model.Event
}

var _ interfaces.EventRepository = &eventRepository{}

func newEventRepository() *eventRepository {
	return &eventRepository{
		events: make(map[types.EventID]*model.Event),
	}
}

func copyEvent(e *model.Event) *model.Event {
	copied := &model.Event{
		ID:             e.ID,
		Action:         e.Action,
		Subject:        e.Subject,
		OrganizationID: e.OrganizationID,
		CreatedAt:      e.CreatedAt,
	}
	if e.Actor != nil {
		actor := *e.Actor
		copied.Actor = &actor
	}
	if e.Metadata != nil {
		copied.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			copied.Metadata[k] = v
		}
	}
	if e.ProcessedAt != nil {
		at := *e.ProcessedAt
		copied.ProcessedAt = &at
	}
	return copied
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if err := event.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyEvent(event)
	if created.ID == "" {
		created.ID = types.NewEventID()
	}
	created.CreatedAt = time.Now().UTC()
	created.ProcessedAt = nil

	r.events[created.ID] = created
	return copyEvent(created), nil
}

func (r *eventRepository) Get(ctx context.Context, id types.EventID) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, exists := r.events[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "event not found", goerr.V("event_id", id))
	}
	return copyEvent(event), nil
}

func (r *eventRepository) MarkProcessed(ctx context.Context, id types.EventID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, exists := r.events[id]
	if !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "event not found", goerr.V("event_id", id))
	}
	if event.ProcessedAt != nil {
		return goerr.Wrap(interfaces.ErrAlreadyProcessed, "event already marked processed",
			goerr.V("event_id", id), goerr.V("processed_at", *event.ProcessedAt))
	}

	processedAt := at.UTC()
	event.ProcessedAt = &processedAt
	return nil
}
