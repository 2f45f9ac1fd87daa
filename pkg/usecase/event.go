package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/utils/errutil"
	"github.com/harborhq/relay/pkg/utils/logging"
)

// Deliverer is the slice of the delivery coordinator the dispatch path
// needs: fire-and-forget in-app delivery on creation
type Deliverer interface {
	NotifyCreated(ctx context.Context, n *model.Notification)
}

type EventUseCase struct {
	repo        interfaces.Repository
	registry    *Registry
	permissions PermissionChecker
	deliverer   Deliverer
	now         func() time.Time
}

func NewEventUseCase(repo interfaces.Repository, registry *Registry, opts ...EventOption) *EventUseCase {
	uc := &EventUseCase{
		repo:     repo,
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type EventOption func(*EventUseCase)

// WithPermissionChecker enables the per-intent view-permission check
func WithPermissionChecker(p PermissionChecker) EventOption {
	return func(uc *EventUseCase) {
		uc.permissions = p
	}
}

// WithDeliverer enables in-app delivery on notification creation
func WithDeliverer(d Deliverer) EventOption {
	return func(uc *EventUseCase) {
		uc.deliverer = d
	}
}

// WithEventClock overrides the time source for tests
func WithEventClock(now func() time.Time) EventOption {
	return func(uc *EventUseCase) {
		uc.now = now
	}
}

// Record appends an event to the log. Actor and organization are
// passed explicitly by the caller; nothing is read from ambient state.
// The event is returned unprocessed; fan-out happens in Dispatch.
func (uc *EventUseCase) Record(ctx context.Context, action types.ActionKind, subject types.EntityRef, actor *types.EntityRef, org types.OrgID, metadata map[string]any) (*model.Event, error) {
	event := &model.Event{
		Action:         action,
		Subject:        subject,
		Actor:          actor,
		OrganizationID: org,
		Metadata:       metadata,
	}

	created, err := uc.repo.Event().Create(ctx, event)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to record event")
	}
	return created, nil
}

// Dispatch resolves the event's processor, creates one notification
// per fan-out intent, and marks the event processed. An event already
// marked processed is skipped entirely, so redelivery from the job
// queue never duplicates fan-out.
//
// An event no processor recognizes is a deployment defect: the error
// is reported and must not be retried. A recipient failing the
// view-permission check is skipped without aborting sibling intents.
func (uc *EventUseCase) Dispatch(ctx context.Context, id types.EventID) error {
	logger := logging.From(ctx)

	event, err := uc.repo.Event().Get(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to load event", goerr.V(EventIDKey, id))
	}

	if event.Processed() {
		logger.Debug("skipping already-processed event", EventIDKey, event.ID)
		return nil
	}

	processor, ok := uc.registry.Lookup(event.Action, event.Subject.Kind)
	if !ok {
		return errutil.Report(ctx, goerr.Wrap(ErrUnrecognizedProcessor, "event dispatch failed",
			goerr.V(EventIDKey, event.ID),
			goerr.V("action", event.Action),
			goerr.V("subject_kind", event.Subject.Kind),
		), "no processor registered")
	}

	intents, err := processor.Process(ctx, event)
	if err != nil {
		// Processor failure leaves the event unprocessed so the queue
		// can redeliver it
		return goerr.Wrap(err, "processor failed",
			goerr.V(EventIDKey, event.ID),
			goerr.V("action", event.Action),
			goerr.V("subject_kind", event.Subject.Kind))
	}

	for _, intent := range intents {
		if uc.permissions != nil {
			canView, err := uc.permissions.CanView(ctx, event, intent.Recipient, intent.Target)
			if err != nil {
				logger.Warn("permission check failed, skipping intent",
					EventIDKey, event.ID,
					MemberIDKey, intent.Recipient,
					"error", err.Error())
				continue
			}
			if !canView {
				continue
			}
		}

		notification, err := uc.repo.Notification().Create(ctx, &model.Notification{
			EventID:        event.ID,
			OrganizationID: event.OrganizationID,
			RecipientID:    intent.Recipient,
			Target:         intent.Target,
			TargetScope:    intent.TargetScope,
			Reason:         intent.Reason,
		})
		if err != nil {
			logger.Error("failed to create notification, continuing fan-out",
				EventIDKey, event.ID,
				MemberIDKey, intent.Recipient,
				"error", err.Error())
			continue
		}

		if uc.deliverer != nil {
			uc.deliverer.NotifyCreated(ctx, notification)
		}
	}

	if err := uc.repo.Event().MarkProcessed(ctx, event.ID, uc.now().UTC()); err != nil {
		if errors.Is(err, interfaces.ErrAlreadyProcessed) {
			// A concurrent dispatch won the race; fan-out already done
			logger.Warn("event marked processed concurrently", EventIDKey, event.ID)
			return nil
		}
		return goerr.Wrap(err, "failed to mark event processed", goerr.V(EventIDKey, event.ID))
	}

	return nil
}
