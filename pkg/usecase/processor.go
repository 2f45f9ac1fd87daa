package usecase

import (
	"context"

	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

// FanoutIntent is one per-recipient notification a processor wants
// created from an event. Intents are independent: one failing its
// permission check never aborts its siblings.
type FanoutIntent struct {
	Recipient   types.MemberID
	Target      types.EntityRef
	TargetScope types.TargetScope
	Reason      types.Reason
}

// Processor turns one event into zero or more fan-out intents by
// inspecting the subject's relationships (subscribers, project
// members, thread members, and so on)
type Processor interface {
	Process(ctx context.Context, event *model.Event) ([]FanoutIntent, error)
}

// ProcessorFunc adapts a function to the Processor interface
type ProcessorFunc func(ctx context.Context, event *model.Event) ([]FanoutIntent, error)

func (f ProcessorFunc) Process(ctx context.Context, event *model.Event) ([]FanoutIntent, error) {
	return f(ctx, event)
}

type processorKey struct {
	Action types.ActionKind
	Kind   types.EntityKind
}

// Registry is the static dispatch table from (action, subject kind)
// to a processor. Populated once at startup; lookups are read-only.
type Registry struct {
	processors map[processorKey]Processor
}

// NewRegistry creates an empty dispatch table
func NewRegistry() *Registry {
	return &Registry{
		processors: make(map[processorKey]Processor),
	}
}

// Register binds a processor to an (action, subject kind) pair,
// replacing any previous binding
func (r *Registry) Register(action types.ActionKind, kind types.EntityKind, p Processor) {
	r.processors[processorKey{Action: action, Kind: kind}] = p
}

// Lookup resolves the processor for an (action, subject kind) pair
func (r *Registry) Lookup(action types.ActionKind, kind types.EntityKind) (Processor, bool) {
	p, ok := r.processors[processorKey{Action: action, Kind: kind}]
	return p, ok
}

// PermissionChecker answers whether a member can currently view a
// target entity. Checked once per intent, at notification creation.
// The event is passed so implementations may resolve visibility from
// denormalized event metadata, like SubjectDirectory.
type PermissionChecker interface {
	CanView(ctx context.Context, event *model.Event, member types.MemberID, target types.EntityRef) (bool, error)
}

// SubjectDirectory resolves an event subject's relationships. The host
// application owns the underlying domain records; this core only needs
// the recipient-relevant edges. The event is passed alongside the
// entity so implementations may resolve edges from denormalized event
// metadata instead of a live data store.
type SubjectDirectory interface {
	// Parent resolves the entity the event's subject hangs off, e.g.
	// the post a comment or reaction belongs to
	Parent(ctx context.Context, event *model.Event) (types.EntityRef, error)

	// Author resolves the member who authored the entity
	Author(ctx context.Context, event *model.Event, entity types.EntityRef) (types.MemberID, error)

	// Subscribers lists members subscribed to the entity
	Subscribers(ctx context.Context, event *model.Event, entity types.EntityRef) ([]types.MemberID, error)

	// ProjectMembers lists members of the project the event's subject
	// belongs to
	ProjectMembers(ctx context.Context, event *model.Event) ([]types.MemberID, error)
}
