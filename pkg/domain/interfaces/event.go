package interfaces

import (
	"context"
	"time"

	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

// EventRepository defines the interface for event log access
type EventRepository interface {
	// Create appends a new event with auto-generated ID and timestamp.
	// Events are immutable after creation except for the processed mark.
	Create(ctx context.Context, event *model.Event) (*model.Event, error)

	// Get retrieves an event by ID
	Get(ctx context.Context, id types.EventID) (*model.Event, error)

	// MarkProcessed sets processed_at exactly once. A second call for
	// the same event returns ErrAlreadyProcessed without mutation.
	MarkProcessed(ctx context.Context, id types.EventID, at time.Time) error
}
