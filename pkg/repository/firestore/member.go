package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const membersCollection = "members"

type memberRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.MemberRepository = &memberRepository{}

func newMemberRepository(client *firestore.Client) *memberRepository {
	return &memberRepository{client: client}
}

// memberDoc is the Firestore persistence model
type memberDoc struct {
	ID                         string
	OrganizationID             string
	Email                      string
	DisplayName                string
	EmailNotifications         bool
	SlackNotifications         bool
	SlackUserID                string
	NotificationsPausedAt      *time.Time
	NotificationPauseExpiresAt *time.Time
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

func (r *memberRepository) collection() *firestore.CollectionRef {
	name := membersCollection
	if r.collectionPrefix != "" {
		name = r.collectionPrefix + name
	}
	return r.client.Collection(name)
}

func toMemberDoc(m *model.Member) *memberDoc {
	return &memberDoc{
		ID:                         m.ID.String(),
		OrganizationID:             m.OrganizationID.String(),
		Email:                      m.Email,
		DisplayName:                m.DisplayName,
		EmailNotifications:         m.EmailNotifications,
		SlackNotifications:         m.SlackNotifications,
		SlackUserID:                m.SlackUserID,
		NotificationsPausedAt:      m.NotificationsPausedAt,
		NotificationPauseExpiresAt: m.NotificationPauseExpiresAt,
		CreatedAt:                  m.CreatedAt,
		UpdatedAt:                  m.UpdatedAt,
	}
}

func (d *memberDoc) toModel() *model.Member {
	return &model.Member{
		ID:                         types.MemberID(d.ID),
		OrganizationID:             types.OrgID(d.OrganizationID),
		Email:                      d.Email,
		DisplayName:                d.DisplayName,
		EmailNotifications:         d.EmailNotifications,
		SlackNotifications:         d.SlackNotifications,
		SlackUserID:                d.SlackUserID,
		NotificationsPausedAt:      d.NotificationsPausedAt,
		NotificationPauseExpiresAt: d.NotificationPauseExpiresAt,
		CreatedAt:                  d.CreatedAt,
		UpdatedAt:                  d.UpdatedAt,
	}
}

func (r *memberRepository) Create(ctx context.Context, m *model.Member) (*model.Member, error) {
	if m.ID == "" {
		return nil, goerr.New("member ID is required")
	}

	created := *m
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	ref := r.collection().Doc(created.ID.String())
	if _, err := ref.Create(ctx, toMemberDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create member", goerr.V("member_id", created.ID))
	}
	return &created, nil
}

func (r *memberRepository) Get(ctx context.Context, id types.MemberID) (*model.Member, error) {
	snap, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "member not found", goerr.V("member_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get member", goerr.V("member_id", id))
	}

	var doc memberDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode member", goerr.V("member_id", id))
	}
	return doc.toModel(), nil
}

func (r *memberRepository) Update(ctx context.Context, m *model.Member) (*model.Member, error) {
	ref := r.collection().Doc(m.ID.String())

	updated := *m
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "member not found", goerr.V("member_id", m.ID))
			}
			return err
		}

		var stored memberDoc
		if err := snap.DataTo(&stored); err != nil {
			return err
		}

		updated.CreatedAt = stored.CreatedAt
		updated.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, toMemberDoc(&updated))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update member", goerr.V("member_id", m.ID))
	}
	return &updated, nil
}
