package interfaces

import (
	"context"

	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

// ScheduleRepository defines the interface for quiet-hours schedules
type ScheduleRepository interface {
	// Create persists a new schedule
	Create(ctx context.Context, s *model.Schedule) (*model.Schedule, error)

	// Get retrieves a schedule by ID
	Get(ctx context.Context, id types.ScheduleID) (*model.Schedule, error)

	// GetByMember retrieves the quiet-hours schedule for a member.
	// Returns ErrNotFound when the member has none.
	GetByMember(ctx context.Context, member types.MemberID) (*model.Schedule, error)

	// Update persists schedule edits and watermark advances
	Update(ctx context.Context, s *model.Schedule) (*model.Schedule, error)

	// Delete removes a schedule
	Delete(ctx context.Context, id types.ScheduleID) error

	// List returns all schedules for the periodic poller. Schedules are
	// independent per member; no ordering is guaranteed.
	List(ctx context.Context) ([]*model.Schedule, error)
}
