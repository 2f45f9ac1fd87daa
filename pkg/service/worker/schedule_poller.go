package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/usecase"
	"github.com/harborhq/relay/pkg/utils/logging"
)

// DefaultPollSpec runs the quiet-hours sweep every five minutes
const DefaultPollSpec = "@every 5m"

// SchedulePoller periodically evaluates every quiet-hours schedule and
// applies the ones that are due.
//
// Architecture assumptions:
// - Single server instance (no distributed locking). Two pollers
//   racing on the same schedule are benign: the pause write is
//   last-write-wins and the watermark makes the second application a
//   no-op.
type SchedulePoller struct {
	repo     interfaces.Repository
	schedule *usecase.ScheduleUseCase
	spec     string
	cron     *cron.Cron
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSchedulePoller creates the poller. spec is a robfig/cron
// expression or descriptor such as "@every 5m"; empty means
// DefaultPollSpec.
func NewSchedulePoller(repo interfaces.Repository, schedule *usecase.ScheduleUseCase, spec string) *SchedulePoller {
	if spec == "" {
		spec = DefaultPollSpec
	}
	return &SchedulePoller{
		repo:     repo,
		schedule: schedule,
		spec:     spec,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start registers the sweep with the cron runner and begins polling.
// Does not block server startup.
func (w *SchedulePoller) Start(ctx context.Context) error {
	logging.Default().Info("schedule poller starting", "spec", w.spec)

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.spec, func() {
		w.Sweep(ctx)
	}); err != nil {
		return err
	}
	w.cron.Start()

	go func() {
		defer close(w.doneCh)
		select {
		case <-w.stopCh:
		case <-ctx.Done():
		}
		<-w.cron.Stop().Done()
	}()

	return nil
}

// Stop signals the poller to stop and waits for in-flight sweeps
func (w *SchedulePoller) Stop() {
	logging.Default().Info("schedule poller stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("schedule poller stopped")
}

// Sweep runs one evaluation pass over all schedules. Schedules are
// independent, so one member's failure is logged and the pass
// continues.
func (w *SchedulePoller) Sweep(ctx context.Context) {
	logger := logging.From(ctx)
	start := time.Now()

	schedules, err := w.repo.Schedule().List(ctx)
	if err != nil {
		logger.Error("failed to list schedules for sweep", "error", err.Error())
		return
	}

	applied := 0
	for _, s := range schedules {
		if w.sweepOne(ctx, s) {
			applied++
		}
	}

	logger.Info("quiet-hours sweep finished",
		"schedules", len(schedules),
		"applied", applied,
		"elapsed", time.Since(start).String())
}

func (w *SchedulePoller) sweepOne(ctx context.Context, s *model.Schedule) bool {
	logger := logging.From(ctx)

	needs, err := s.NeedsApplying(time.Now())
	if err != nil {
		logger.Error("failed to evaluate schedule",
			"schedule_id", s.ID,
			"member_id", s.MemberID,
			"error", err.Error())
		return false
	}
	if !needs {
		return false
	}

	if err := w.schedule.Apply(ctx, s); err != nil {
		logger.Error("failed to apply schedule",
			"schedule_id", s.ID,
			"member_id", s.MemberID,
			"error", err.Error())
		return false
	}

	logger.Info("applied quiet-hours schedule",
		"schedule_id", s.ID,
		"member_id", s.MemberID)
	return true
}
