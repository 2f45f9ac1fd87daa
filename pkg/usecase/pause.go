package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/service/delivery"
	"github.com/harborhq/relay/pkg/utils/async"
	"github.com/harborhq/relay/pkg/utils/logging"
)

type PauseUseCase struct {
	repo        interfaces.Repository
	broadcaster delivery.Broadcaster
	now         func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPauseUseCase(repo interfaces.Repository, opts ...PauseOption) *PauseUseCase {
	uc := &PauseUseCase{
		repo:   repo,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Stop cancels pending expiry broadcasts. Call on shutdown so a
// long-lived pause does not hold its timer goroutine open.
func (uc *PauseUseCase) Stop() {
	uc.stopOnce.Do(func() {
		close(uc.stopCh)
	})
}

type PauseOption func(*PauseUseCase)

// WithPauseBroadcaster enables client signaling on pause transitions
func WithPauseBroadcaster(b delivery.Broadcaster) PauseOption {
	return func(uc *PauseUseCase) {
		uc.broadcaster = b
	}
}

// WithPauseClock overrides the time source for tests
func WithPauseClock(now func() time.Time) PauseOption {
	return func(uc *PauseUseCase) {
		uc.now = now
	}
}

// Pause suppresses the member's notifications until expiresAt. Two
// broadcasts go out: one immediately so clients reflect the paused
// state, and one deferred to expiresAt so they flip back to active
// without polling. The pause itself ends lazily: senders compare
// expiresAt to now at send time, so no background transition is
// required for correctness.
func (uc *PauseUseCase) Pause(ctx context.Context, id types.MemberID, expiresAt time.Time) (*model.Member, error) {
	now := uc.now().UTC()
	if !expiresAt.After(now) {
		return nil, goerr.Wrap(ErrPauseExpiryInPast, "invalid pause request",
			goerr.V(MemberIDKey, id),
			goerr.V("expires_at", expiresAt))
	}

	member, err := uc.repo.Member().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load member", goerr.V(MemberIDKey, id))
	}

	expiresUTC := expiresAt.UTC()
	member.NotificationsPausedAt = &now
	member.NotificationPauseExpiresAt = &expiresUTC

	updated, err := uc.repo.Member().Update(ctx, member)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist pause state", goerr.V(MemberIDKey, id))
	}

	uc.broadcast(ctx, id, true)
	uc.broadcastAtExpiry(ctx, id, expiresUTC)

	return updated, nil
}

// Unpause clears the member's pause state and signals clients once
func (uc *PauseUseCase) Unpause(ctx context.Context, id types.MemberID) (*model.Member, error) {
	member, err := uc.repo.Member().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load member", goerr.V(MemberIDKey, id))
	}

	member.NotificationsPausedAt = nil
	member.NotificationPauseExpiresAt = nil

	updated, err := uc.repo.Member().Update(ctx, member)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to clear pause state", goerr.V(MemberIDKey, id))
	}

	uc.broadcast(ctx, id, false)

	return updated, nil
}

func (uc *PauseUseCase) broadcast(ctx context.Context, id types.MemberID, paused bool) {
	if uc.broadcaster == nil {
		return
	}
	async.Dispatch(ctx, func(ctx context.Context) error {
		return uc.broadcaster.PauseStateChanged(ctx, id, paused)
	})
}

// broadcastAtExpiry schedules the "back to active" signal for the
// moment the pause lapses. If the pause was extended or replaced in
// the meantime, the signal is suppressed.
func (uc *PauseUseCase) broadcastAtExpiry(ctx context.Context, id types.MemberID, expiresAt time.Time) {
	if uc.broadcaster == nil {
		return
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		timer := time.NewTimer(time.Until(expiresAt))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-uc.stopCh:
			return nil
		}

		member, err := uc.repo.Member().Get(ctx, id)
		if err != nil {
			return goerr.Wrap(err, "failed to load member for expiry broadcast",
				goerr.V(MemberIDKey, id))
		}
		if member.Paused(uc.now()) {
			logging.From(ctx).Debug("pause extended, skipping expiry broadcast",
				MemberIDKey, id)
			return nil
		}

		return uc.broadcaster.PauseStateChanged(ctx, id, false)
	})
}
