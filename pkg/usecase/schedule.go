package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/utils/logging"
)

type ScheduleUseCase struct {
	repo  interfaces.Repository
	pause *PauseUseCase
	now   func() time.Time
}

func NewScheduleUseCase(repo interfaces.Repository, pause *PauseUseCase, opts ...ScheduleOption) *ScheduleUseCase {
	uc := &ScheduleUseCase{
		repo:  repo,
		pause: pause,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type ScheduleOption func(*ScheduleUseCase)

// WithScheduleClock overrides the time source for tests
func WithScheduleClock(now func() time.Time) ScheduleOption {
	return func(uc *ScheduleUseCase) {
		uc.now = now
	}
}

// Get returns the member's quiet-hours schedule
func (uc *ScheduleUseCase) Get(ctx context.Context, member types.MemberID) (*model.Schedule, error) {
	s, err := uc.repo.Schedule().GetByMember(ctx, member)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load schedule", goerr.V(MemberIDKey, member))
	}
	return s, nil
}

// Upsert creates or replaces the member's quiet-hours schedule.
// Validation is synchronous so an invalid schedule never reaches
// Apply. Edits never touch the watermark.
func (uc *ScheduleUseCase) Upsert(ctx context.Context, s *model.Schedule) (*model.Schedule, error) {
	if err := s.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid schedule", goerr.V(MemberIDKey, s.MemberID))
	}

	existing, err := uc.repo.Schedule().GetByMember(ctx, s.MemberID)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(err, "failed to look up schedule", goerr.V(MemberIDKey, s.MemberID))
		}
		created, err := uc.repo.Schedule().Create(ctx, s)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create schedule", goerr.V(MemberIDKey, s.MemberID))
		}
		return created, nil
	}

	s.ID = existing.ID
	s.LastAppliedAt = existing.LastAppliedAt
	updated, err := uc.repo.Schedule().Update(ctx, s)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update schedule", goerr.V(ScheduleIDKey, existing.ID))
	}
	return updated, nil
}

// Delete removes the member's quiet-hours schedule
func (uc *ScheduleUseCase) Delete(ctx context.Context, member types.MemberID) error {
	existing, err := uc.repo.Schedule().GetByMember(ctx, member)
	if err != nil {
		return goerr.Wrap(err, "failed to look up schedule", goerr.V(MemberIDKey, member))
	}
	if err := uc.repo.Schedule().Delete(ctx, existing.ID); err != nil {
		return goerr.Wrap(err, "failed to delete schedule", goerr.V(ScheduleIDKey, existing.ID))
	}
	return nil
}

// Apply runs one quiet-hours application for the schedule at now:
//
//  1. No-op unless local time has reached the end of the allowed
//     window on an enabled weekday.
//  2. Compute the resume point: the schedule's start time on the next
//     enabled weekday, walking forward from local tomorrow.
//  3. Pause the member until then, unless an existing pause already
//     extends past the resume point. A longer pause, manual or
//     previously scheduled, is never shortened.
//  4. Advance the watermark regardless of step 3, which is what keeps
//     the once-per-local-day guard correct even when the pause itself
//     was skipped.
func (uc *ScheduleUseCase) Apply(ctx context.Context, s *model.Schedule) error {
	now := uc.now().UTC()

	pastEnd, err := s.PastEndOfWindow(now)
	if err != nil {
		return goerr.Wrap(err, "failed to evaluate schedule window", goerr.V(ScheduleIDKey, s.ID))
	}
	if !pastEnd {
		return nil
	}

	nextStart, err := s.NextStartTime(now)
	if err != nil {
		return goerr.Wrap(err, "failed to compute resume time", goerr.V(ScheduleIDKey, s.ID))
	}

	member, err := uc.repo.Member().Get(ctx, s.MemberID)
	if err != nil {
		return goerr.Wrap(err, "failed to load member", goerr.V(MemberIDKey, s.MemberID))
	}

	if member.NotificationPauseExpiresAt != nil && member.NotificationPauseExpiresAt.After(nextStart) {
		logging.From(ctx).Debug("existing pause outlasts the quiet-hours window, not shortening",
			ScheduleIDKey, s.ID,
			"existing_expiry", member.NotificationPauseExpiresAt,
			"next_start", nextStart)
	} else {
		if _, err := uc.pause.Pause(ctx, s.MemberID, nextStart); err != nil {
			return goerr.Wrap(err, "failed to pause for quiet hours",
				goerr.V(ScheduleIDKey, s.ID),
				goerr.V(MemberIDKey, s.MemberID))
		}
	}

	s.LastAppliedAt = &now
	if _, err := uc.repo.Schedule().Update(ctx, s); err != nil {
		return goerr.Wrap(err, "failed to advance schedule watermark", goerr.V(ScheduleIDKey, s.ID))
	}

	return nil
}
