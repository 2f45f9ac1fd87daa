package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/repository/memory"
	"github.com/harborhq/relay/pkg/service/worker"
	"github.com/harborhq/relay/pkg/usecase"
)

func TestSweepAppliesDueSchedules(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	member, err := repo.Member().Create(ctx, &model.Member{
		ID:             types.MemberID("member-" + uuid.NewString()),
		OrganizationID: types.OrgID("org-1"),
	})
	gt.NoError(t, err).Required()

	// All days enabled with the window already closed in UTC, so the
	// sweep finds the schedule due regardless of when the test runs
	schedule := &model.Schedule{
		MemberID:  member.ID,
		StartTime: types.NewTimeOfDay(0, 0),
		EndTime:   types.NewTimeOfDay(0, 1),
		TimeZone:  "UTC",
	}
	for d := range schedule.Days {
		schedule.Days[d] = true
	}
	created, err := repo.Schedule().Create(ctx, schedule)
	gt.NoError(t, err).Required()

	pause := usecase.NewPauseUseCase(repo)
	scheduleUC := usecase.NewScheduleUseCase(repo, pause)
	poller := worker.NewSchedulePoller(repo, scheduleUC, "")

	poller.Sweep(ctx)

	applied, err := repo.Schedule().Get(ctx, created.ID)
	gt.NoError(t, err).Required()
	gt.True(t, applied.LastAppliedAt != nil)

	paused, err := repo.Member().Get(ctx, member.ID)
	gt.NoError(t, err).Required()
	gt.True(t, paused.Paused(time.Now()))

	// A second sweep the same day is a no-op
	watermark := *applied.LastAppliedAt
	poller.Sweep(ctx)

	again, err := repo.Schedule().Get(ctx, created.ID)
	gt.NoError(t, err).Required()
	gt.True(t, again.LastAppliedAt.Equal(watermark))
}

func TestSweepContinuesPastBrokenSchedule(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	// A schedule whose member record is missing fails to apply; the
	// sweep must still process the rest
	orphan := &model.Schedule{
		MemberID:  types.MemberID("member-gone"),
		StartTime: types.NewTimeOfDay(0, 0),
		EndTime:   types.NewTimeOfDay(0, 1),
		TimeZone:  "UTC",
	}
	for d := range orphan.Days {
		orphan.Days[d] = true
	}
	_, err := repo.Schedule().Create(ctx, orphan)
	gt.NoError(t, err).Required()

	member, err := repo.Member().Create(ctx, &model.Member{
		ID:             types.MemberID("member-" + uuid.NewString()),
		OrganizationID: types.OrgID("org-1"),
	})
	gt.NoError(t, err).Required()

	healthy := &model.Schedule{
		MemberID:  member.ID,
		StartTime: types.NewTimeOfDay(0, 0),
		EndTime:   types.NewTimeOfDay(0, 1),
		TimeZone:  "UTC",
	}
	for d := range healthy.Days {
		healthy.Days[d] = true
	}
	created, err := repo.Schedule().Create(ctx, healthy)
	gt.NoError(t, err).Required()

	pause := usecase.NewPauseUseCase(repo)
	scheduleUC := usecase.NewScheduleUseCase(repo, pause)
	poller := worker.NewSchedulePoller(repo, scheduleUC, "")

	poller.Sweep(ctx)

	applied, err := repo.Schedule().Get(ctx, created.ID)
	gt.NoError(t, err).Required()
	gt.True(t, applied.LastAppliedAt != nil)
}
