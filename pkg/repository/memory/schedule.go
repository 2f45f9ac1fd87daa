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

type scheduleRepository struct {
	mu        sync.RWMutex
	schedules map[types.ScheduleID]*model.Schedule
	byMember  map[types.MemberID]types.ScheduleID
}

var _ interfaces.ScheduleRepository = &scheduleRepository{}

func newScheduleRepository() *scheduleRepository {
	return &scheduleRepository{
		schedules: make(map[types.ScheduleID]*model.Schedule),
		byMember:  make(map[types.MemberID]types.ScheduleID),
	}
}

func copySchedule(s *model.Schedule) *model.Schedule {
	copied := *s
	copied.LastAppliedAt = copyTime(s.LastAppliedAt)
	return &copied
}

func (r *scheduleRepository) Create(ctx context.Context, s *model.Schedule) (*model.Schedule, error) {
	if err := s.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid schedule")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byMember[s.MemberID]; exists {
		return nil, goerr.New("member already has a schedule", goerr.V("member_id", s.MemberID))
	}

	created := copySchedule(s)
	if created.ID == "" {
		created.ID = types.NewScheduleID()
	}
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.schedules[created.ID] = created
	r.byMember[created.MemberID] = created.ID
	return copySchedule(created), nil
}

func (r *scheduleRepository) Get(ctx context.Context, id types.ScheduleID) (*model.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.schedules[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "schedule not found", goerr.V("schedule_id", id))
	}
	return copySchedule(s), nil
}

func (r *scheduleRepository) GetByMember(ctx context.Context, member types.MemberID) (*model.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byMember[member]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "schedule not found", goerr.V("member_id", member))
	}
	return copySchedule(r.schedules[id]), nil
}

func (r *scheduleRepository) Update(ctx context.Context, s *model.Schedule) (*model.Schedule, error) {
	if err := s.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid schedule")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.schedules[s.ID]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "schedule not found", goerr.V("schedule_id", s.ID))
	}

	updated := copySchedule(s)
	updated.MemberID = stored.MemberID
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.schedules[updated.ID] = updated
	return copySchedule(updated), nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id types.ScheduleID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.schedules[id]
	if !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "schedule not found", goerr.V("schedule_id", id))
	}

	delete(r.byMember, s.MemberID)
	delete(r.schedules, id)
	return nil
}

func (r *scheduleRepository) List(ctx context.Context) ([]*model.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Schedule, 0, len(r.schedules))
	for _, s := range r.schedules {
		result = append(result, copySchedule(s))
	}
	return result, nil
}
