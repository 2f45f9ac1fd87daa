package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const schedulesCollection = "notification_schedules"

type scheduleRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.ScheduleRepository = &scheduleRepository{}

func newScheduleRepository(client *firestore.Client) *scheduleRepository {
	return &scheduleRepository{client: client}
}

// scheduleDoc is the Firestore persistence model. Times of day are
// stored as minutes since midnight.
type scheduleDoc struct {
	ID            string
	MemberID      string
	StartTime     int
	EndTime       int
	TimeZone      string
	Days          []bool
	LastAppliedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *scheduleRepository) collection() *firestore.CollectionRef {
	name := schedulesCollection
	if r.collectionPrefix != "" {
		name = r.collectionPrefix + name
	}
	return r.client.Collection(name)
}

func toScheduleDoc(s *model.Schedule) *scheduleDoc {
	days := make([]bool, 7)
	copy(days, s.Days[:])
	return &scheduleDoc{
		ID:            s.ID.String(),
		MemberID:      s.MemberID.String(),
		StartTime:     int(s.StartTime),
		EndTime:       int(s.EndTime),
		TimeZone:      s.TimeZone,
		Days:          days,
		LastAppliedAt: s.LastAppliedAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (d *scheduleDoc) toModel() *model.Schedule {
	s := &model.Schedule{
		ID:            types.ScheduleID(d.ID),
		MemberID:      types.MemberID(d.MemberID),
		StartTime:     types.TimeOfDay(d.StartTime),
		EndTime:       types.TimeOfDay(d.EndTime),
		TimeZone:      d.TimeZone,
		LastAppliedAt: d.LastAppliedAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	copy(s.Days[:], d.Days)
	return s
}

func (r *scheduleRepository) Create(ctx context.Context, s *model.Schedule) (*model.Schedule, error) {
	if err := s.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid schedule")
	}

	existing, err := r.GetByMember(ctx, s.MemberID)
	if err == nil && existing != nil {
		return nil, goerr.New("member already has a schedule", goerr.V("member_id", s.MemberID))
	}

	created := *s
	if created.ID == "" {
		created.ID = types.NewScheduleID()
	}
	now := time.Now().UTC()
	created.CreatedAt = now
	created.UpdatedAt = now

	ref := r.collection().Doc(created.ID.String())
	if _, err := ref.Create(ctx, toScheduleDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create schedule", goerr.V("schedule_id", created.ID))
	}
	return &created, nil
}

func (r *scheduleRepository) Get(ctx context.Context, id types.ScheduleID) (*model.Schedule, error) {
	snap, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "schedule not found", goerr.V("schedule_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get schedule", goerr.V("schedule_id", id))
	}

	var doc scheduleDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode schedule", goerr.V("schedule_id", id))
	}
	return doc.toModel(), nil
}

func (r *scheduleRepository) GetByMember(ctx context.Context, member types.MemberID) (*model.Schedule, error) {
	iter := r.collection().Where("MemberID", "==", member.String()).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "schedule not found", goerr.V("member_id", member))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query schedule", goerr.V("member_id", member))
	}

	var doc scheduleDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode schedule", goerr.V("member_id", member))
	}
	return doc.toModel(), nil
}

func (r *scheduleRepository) Update(ctx context.Context, s *model.Schedule) (*model.Schedule, error) {
	if err := s.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid schedule")
	}

	ref := r.collection().Doc(s.ID.String())

	updated := *s
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "schedule not found", goerr.V("schedule_id", s.ID))
			}
			return err
		}

		var stored scheduleDoc
		if err := snap.DataTo(&stored); err != nil {
			return err
		}

		updated.MemberID = types.MemberID(stored.MemberID)
		updated.CreatedAt = stored.CreatedAt
		updated.UpdatedAt = time.Now().UTC()
		return tx.Set(ref, toScheduleDoc(&updated))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update schedule", goerr.V("schedule_id", s.ID))
	}
	return &updated, nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id types.ScheduleID) error {
	ref := r.collection().Doc(id.String())
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "schedule not found", goerr.V("schedule_id", id))
		}
		return goerr.Wrap(err, "failed to get schedule", goerr.V("schedule_id", id))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete schedule", goerr.V("schedule_id", id))
	}
	return nil
}

func (r *scheduleRepository) List(ctx context.Context) ([]*model.Schedule, error) {
	iter := r.collection().Documents(ctx)
	defer iter.Stop()

	var result []*model.Schedule
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list schedules")
		}

		var doc scheduleDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode schedule")
		}
		result = append(result, doc.toModel())
	}
	return result, nil
}
