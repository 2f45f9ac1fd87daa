package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/repository/memory"
	"github.com/harborhq/relay/pkg/usecase"
)

type pauseSignal struct {
	member types.MemberID
	paused bool
}

type fakeBroadcaster struct {
	signals chan pauseSignal
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{signals: make(chan pauseSignal, 8)}
}

func (f *fakeBroadcaster) NotificationCreated(ctx context.Context, n *model.Notification) error {
	return nil
}

func (f *fakeBroadcaster) PauseStateChanged(ctx context.Context, member types.MemberID, paused bool) error {
	f.signals <- pauseSignal{member: member, paused: paused}
	return nil
}

func (f *fakeBroadcaster) wait(t *testing.T) pauseSignal {
	t.Helper()
	select {
	case s := <-f.signals:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return pauseSignal{}
	}
}

func setupPauseMember(t *testing.T, repo interfaces.Repository) *model.Member {
	t.Helper()
	member, err := repo.Member().Create(context.Background(), &model.Member{
		ID:             types.MemberID("member-" + uuid.NewString()),
		OrganizationID: types.OrgID("org-1"),
	})
	gt.NoError(t, err).Required()
	return member
}

func TestPauseAndUnpause(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	member := setupPauseMember(t, repo)
	broadcaster := newFakeBroadcaster()
	uc := usecase.NewPauseUseCase(repo, usecase.WithPauseBroadcaster(broadcaster))

	expiresAt := time.Now().UTC().Add(time.Hour)
	paused, err := uc.Pause(ctx, member.ID, expiresAt)
	gt.NoError(t, err).Required()
	gt.True(t, paused.NotificationsPausedAt != nil)
	gt.True(t, paused.NotificationPauseExpiresAt.Equal(expiresAt))
	gt.True(t, paused.Paused(time.Now()))

	// Immediate signal reflects the paused state
	signal := broadcaster.wait(t)
	gt.Value(t, signal.member).Equal(member.ID)
	gt.True(t, signal.paused)

	active, err := uc.Unpause(ctx, member.ID)
	gt.NoError(t, err).Required()
	gt.True(t, active.NotificationsPausedAt == nil)
	gt.True(t, active.NotificationPauseExpiresAt == nil)
	gt.True(t, !active.Paused(time.Now()))

	signal = broadcaster.wait(t)
	gt.Value(t, signal.member).Equal(member.ID)
	gt.True(t, !signal.paused)
}

func TestPauseBroadcastsAtExpiry(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	member := setupPauseMember(t, repo)
	broadcaster := newFakeBroadcaster()
	uc := usecase.NewPauseUseCase(repo, usecase.WithPauseBroadcaster(broadcaster))

	_, err := uc.Pause(ctx, member.ID, time.Now().UTC().Add(50*time.Millisecond))
	gt.NoError(t, err).Required()

	// First signal: paused now. Second, after expiry: active again,
	// without any client polling.
	signal := broadcaster.wait(t)
	gt.True(t, signal.paused)

	signal = broadcaster.wait(t)
	gt.True(t, !signal.paused)
}

func TestPauseStopCancelsExpiryBroadcast(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	member := setupPauseMember(t, repo)
	broadcaster := newFakeBroadcaster()
	uc := usecase.NewPauseUseCase(repo, usecase.WithPauseBroadcaster(broadcaster))

	_, err := uc.Pause(ctx, member.ID, time.Now().UTC().Add(10*time.Second))
	gt.NoError(t, err).Required()

	signal := broadcaster.wait(t)
	gt.True(t, signal.paused)

	// Stop releases the timer goroutine before expiry, so the second
	// signal never arrives
	uc.Stop()

	select {
	case s := <-broadcaster.signals:
		t.Errorf("unexpected broadcast after Stop: %+v", s)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestPauseRejectsPastExpiry(t *testing.T) {
	repo := memory.New()
	member := setupPauseMember(t, repo)
	uc := usecase.NewPauseUseCase(repo)

	_, err := uc.Pause(context.Background(), member.ID, time.Now().UTC().Add(-time.Minute))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, usecase.ErrPauseExpiryInPast))
}

func TestPauseExpiresLazily(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	member := setupPauseMember(t, repo)
	uc := usecase.NewPauseUseCase(repo)

	expiresAt := time.Now().UTC().Add(time.Hour)
	paused, err := uc.Pause(ctx, member.ID, expiresAt)
	gt.NoError(t, err).Required()

	// No background transition: the predicate alone flips the state
	gt.True(t, paused.Paused(expiresAt.Add(-time.Minute)))
	gt.True(t, !paused.Paused(expiresAt))
	gt.True(t, !paused.Paused(expiresAt.Add(time.Minute)))
}
