package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

// DefaultRegistry builds the dispatch table with the shipped
// processors. Hosts with richer recipient-selection rules register
// their own processors on top.
func DefaultRegistry(dir SubjectDirectory) *Registry {
	r := NewRegistry()
	r.Register(types.ActionCreated, types.EntityComment, commentCreated(dir))
	r.Register(types.ActionCreated, types.EntityReaction, reactionCreated(dir))
	r.Register(types.ActionPublished, types.EntityPost, postPublished(dir))
	return r
}

// actorID extracts the acting member, if the event has one
func actorID(event *model.Event) types.MemberID {
	if event.Actor != nil && event.Actor.Kind == types.EntityMember {
		return types.MemberID(event.Actor.ID)
	}
	return ""
}

// commentCreated notifies every subscriber of the parent post, minus
// the comment's author
func commentCreated(dir SubjectDirectory) Processor {
	return ProcessorFunc(func(ctx context.Context, event *model.Event) ([]FanoutIntent, error) {
		parent, err := dir.Parent(ctx, event)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve comment parent",
				goerr.V("subject", event.Subject.Key()))
		}

		subscribers, err := dir.Subscribers(ctx, event, parent)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list parent subscribers",
				goerr.V("target", parent.Key()))
		}

		actor := actorID(event)
		var intents []FanoutIntent
		for _, subscriber := range subscribers {
			if subscriber == actor {
				continue
			}
			intents = append(intents, FanoutIntent{
				Recipient: subscriber,
				Target:    parent,
				Reason:    types.ReasonParentSubscription,
			})
		}
		return intents, nil
	})
}

// reactionCreated notifies the author of the entity reacted to
func reactionCreated(dir SubjectDirectory) Processor {
	return ProcessorFunc(func(ctx context.Context, event *model.Event) ([]FanoutIntent, error) {
		parent, err := dir.Parent(ctx, event)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve reaction parent",
				goerr.V("subject", event.Subject.Key()))
		}

		author, err := dir.Author(ctx, event, parent)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve parent author",
				goerr.V("target", parent.Key()))
		}
		if author == "" || author == actorID(event) {
			return nil, nil
		}

		return []FanoutIntent{{
			Recipient:   author,
			Target:      parent,
			TargetScope: types.ScopeReaction,
			Reason:      types.ReasonAdded,
		}}, nil
	})
}

// postPublished notifies the members of the post's project, minus the
// publishing actor
func postPublished(dir SubjectDirectory) Processor {
	return ProcessorFunc(func(ctx context.Context, event *model.Event) ([]FanoutIntent, error) {
		members, err := dir.ProjectMembers(ctx, event)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list project members",
				goerr.V("subject", event.Subject.Key()))
		}

		actor := actorID(event)
		var intents []FanoutIntent
		for _, member := range members {
			if member == actor {
				continue
			}
			intents = append(intents, FanoutIntent{
				Recipient: member,
				Target:    event.Subject,
				Reason:    types.ReasonProjectSubscription,
			})
		}
		return intents, nil
	})
}
