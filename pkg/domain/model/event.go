package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/types"
)

// SystemActorName is rendered when an event has no actor
const SystemActorName = "System"

// MetadataActorDisplayName carries the display-name fallback for
// system-generated events without an actor reference
const MetadataActorDisplayName = "actor_display_name"

// Event is an append-only record of a domain mutation that may require
// notification fan-out. Immutable after creation except ProcessedAt.
type Event struct {
	ID             types.EventID
	Action         types.ActionKind
	Subject        types.EntityRef
	Actor          *types.EntityRef // nil means the system acted
	OrganizationID types.OrgID
	Metadata       map[string]any
	ProcessedAt    *time.Time
	CreatedAt      time.Time
}

// Validate checks that the event is well-formed at append time
func (e *Event) Validate() error {
	if !e.Action.IsValid() {
		return goerr.New("invalid event action", goerr.V("action", e.Action))
	}
	if err := e.Subject.Validate(); err != nil {
		return goerr.Wrap(err, "invalid event subject")
	}
	if e.Actor != nil {
		if err := e.Actor.Validate(); err != nil {
			return goerr.Wrap(err, "invalid event actor")
		}
	}
	if e.OrganizationID == "" {
		return goerr.New("organization ID is required")
	}
	return nil
}

// Processed reports whether dispatch has completed for this event
func (e *Event) Processed() bool {
	return e.ProcessedAt != nil
}

// ActorDisplayName resolves the name to render for the event's actor.
// Events without an actor fall back to a display name carried in
// metadata, then to the generic system name.
func (e *Event) ActorDisplayName() string {
	if e.Actor != nil {
		return e.Actor.ID
	}
	if name, ok := e.Metadata[MetadataActorDisplayName].(string); ok && name != "" {
		return name
	}
	return SystemActorName
}
