package interfaces

import (
	"context"

	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

// MemberRepository defines the interface for member record access
type MemberRepository interface {
	// Create persists a new member record
	Create(ctx context.Context, m *model.Member) (*model.Member, error)

	// Get retrieves a member by ID
	Get(ctx context.Context, id types.MemberID) (*model.Member, error)

	// Update persists preference and pause-state changes
	Update(ctx context.Context, m *model.Member) (*model.Member, error)
}
