package directory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

// Metadata keys read by the metadata-backed directory. Event producers
// denormalize the subject's relationships into these keys when they
// append an event.
const (
	MetadataParentKind     = "parent_kind"
	MetadataParentID       = "parent_id"
	MetadataAuthorID       = "author_id"
	MetadataSubscriberIDs  = "subscriber_ids"
	MetadataProjectMembers = "project_member_ids"
	MetadataViewerIDs      = "viewer_ids"
)

// Metadata resolves subject relationships from the event's own metadata
// payload. It lets the engine run standalone: producers that already
// know the subject's edges ship them inline instead of exposing a
// lookup API back to the engine.
type Metadata struct{}

// New returns a metadata-backed subject directory
func New() *Metadata {
	return &Metadata{}
}

func (d *Metadata) Parent(ctx context.Context, event *model.Event) (types.EntityRef, error) {
	kind, _ := event.Metadata[MetadataParentKind].(string)
	id, _ := event.Metadata[MetadataParentID].(string)
	if kind == "" || id == "" {
		return types.EntityRef{}, goerr.New("event metadata has no parent reference",
			goerr.V("event", event.ID))
	}

	parentKind, err := types.ParseEntityKind(kind)
	if err != nil {
		return types.EntityRef{}, goerr.Wrap(err, "invalid parent kind in event metadata",
			goerr.V("event", event.ID))
	}
	return types.EntityRef{Kind: parentKind, ID: id}, nil
}

func (d *Metadata) Author(ctx context.Context, event *model.Event, entity types.EntityRef) (types.MemberID, error) {
	author, _ := event.Metadata[MetadataAuthorID].(string)
	return types.MemberID(author), nil
}

func (d *Metadata) Subscribers(ctx context.Context, event *model.Event, entity types.EntityRef) ([]types.MemberID, error) {
	return memberList(event.Metadata[MetadataSubscriberIDs]), nil
}

func (d *Metadata) ProjectMembers(ctx context.Context, event *model.Event) ([]types.MemberID, error) {
	return memberList(event.Metadata[MetadataProjectMembers]), nil
}

// CanView restricts fan-out to the viewers the producer declared. An
// event without a viewer list is visible to every candidate recipient.
func (d *Metadata) CanView(ctx context.Context, event *model.Event, member types.MemberID, target types.EntityRef) (bool, error) {
	if _, ok := event.Metadata[MetadataViewerIDs]; !ok {
		return true, nil
	}
	for _, viewer := range memberList(event.Metadata[MetadataViewerIDs]) {
		if viewer == member {
			return true, nil
		}
	}
	return false, nil
}

// memberList coerces a metadata value into member IDs. JSON decoding
// hands us []any; direct construction may hand us []string.
func memberList(v any) []types.MemberID {
	var members []types.MemberID
	switch list := v.(type) {
	case []string:
		for _, id := range list {
			if id != "" {
				members = append(members, types.MemberID(id))
			}
		}
	case []any:
		for _, item := range list {
			if id, ok := item.(string); ok && id != "" {
				members = append(members, types.MemberID(id))
			}
		}
	}
	return members
}
