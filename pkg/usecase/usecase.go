package usecase

import (
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/service/delivery"
)

type UseCases struct {
	repo        interfaces.Repository
	registry    *Registry
	permissions PermissionChecker
	deliverer   Deliverer
	broadcaster delivery.Broadcaster

	Event        *EventUseCase
	Notification *NotificationUseCase
	Pause        *PauseUseCase
	Schedule     *ScheduleUseCase
}

type Option func(*UseCases)

// WithRegistry sets the processor dispatch table
func WithRegistry(r *Registry) Option {
	return func(uc *UseCases) {
		uc.registry = r
	}
}

// WithPermissions enables the per-intent view-permission check
func WithPermissions(p PermissionChecker) Option {
	return func(uc *UseCases) {
		uc.permissions = p
	}
}

// WithDelivery enables in-app delivery on notification creation
func WithDelivery(d Deliverer) Option {
	return func(uc *UseCases) {
		uc.deliverer = d
	}
}

// WithBroadcaster enables client signaling on pause transitions
func WithBroadcaster(b delivery.Broadcaster) Option {
	return func(uc *UseCases) {
		uc.broadcaster = b
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:     repo,
		registry: NewRegistry(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	var eventOpts []EventOption
	if uc.permissions != nil {
		eventOpts = append(eventOpts, WithPermissionChecker(uc.permissions))
	}
	if uc.deliverer != nil {
		eventOpts = append(eventOpts, WithDeliverer(uc.deliverer))
	}
	uc.Event = NewEventUseCase(repo, uc.registry, eventOpts...)
	uc.Notification = NewNotificationUseCase(repo)

	var pauseOpts []PauseOption
	if uc.broadcaster != nil {
		pauseOpts = append(pauseOpts, WithPauseBroadcaster(uc.broadcaster))
	}
	uc.Pause = NewPauseUseCase(repo, pauseOpts...)
	uc.Schedule = NewScheduleUseCase(repo, uc.Pause)

	return uc
}

// PushSubscriptions exposes the subscription registry. Registration is
// plain CRUD with no policy of its own, so there is no use case type
// wrapping it.
func (uc *UseCases) PushSubscriptions() interfaces.PushSubscriptionRepository {
	return uc.repo.PushSubscription()
}
