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

type memberRepository struct {
	mu      sync.RWMutex
	members map[types.MemberID]*model.Member
}

var _ interfaces.MemberRepository = &memberRepository{}

func newMemberRepository() *memberRepository {
	return &memberRepository{
		members: make(map[types.MemberID]*model.Member),
	}
}

func copyMember(m *model.Member) *model.Member {
	copied := *m
	copied.NotificationsPausedAt = copyTime(m.NotificationsPausedAt)
	copied.NotificationPauseExpiresAt = copyTime(m.NotificationPauseExpiresAt)
	return &copied
}

func (r *memberRepository) Create(ctx context.Context, m *model.Member) (*model.Member, error) {
	if m.ID == "" {
		return nil, goerr.New("member ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[m.ID]; exists {
		return nil, goerr.New("member already exists", goerr.V("member_id", m.ID))
	}

	created := copyMember(m)
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.members[created.ID] = created
	return copyMember(created), nil
}

func (r *memberRepository) Get(ctx context.Context, id types.MemberID) (*model.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.members[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "member not found", goerr.V("member_id", id))
	}
	return copyMember(m), nil
}

func (r *memberRepository) Update(ctx context.Context, m *model.Member) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.members[m.ID]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "member not found", goerr.V("member_id", m.ID))
	}

	updated := copyMember(m)
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.members[updated.ID] = updated
	return copyMember(updated), nil
}
