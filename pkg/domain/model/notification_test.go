package model_test

import (
	"testing"
	"time"

	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
)

func TestNotification_HomeInbox(t *testing.T) {
	tests := []struct {
		name  string
		kind  types.EntityKind
		scope types.TargetScope
		reason types.Reason
		want  bool
	}{
		{"post subscription", types.EntityPost, types.ScopeNone, types.ReasonParentSubscription, true},
		{"note mention", types.EntityNote, types.ScopeNone, types.ReasonMention, true},
		{"call added", types.EntityCall, types.ScopeNone, types.ReasonAdded, true},
		{"project target goes to activity", types.EntityProject, types.ScopeNone, types.ReasonProjectSubscription, false},
		{"comment resolved goes to activity", types.EntityPost, types.ScopeNone, types.ReasonCommentResolved, false},
		{"reaction scope goes to activity", types.EntityPost, types.ScopeReaction, types.ReasonAdded, false},
		{"thread message goes to activity", types.EntityMessageThread, types.ScopeNone, types.ReasonThreadMessage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &model.Notification{
				Target:      types.EntityRef{Kind: tt.kind, ID: "1"},
				TargetScope: tt.scope,
				Reason:      tt.reason,
			}
			if got := n.HomeInbox(); got != tt.want {
				t.Errorf("HomeInbox() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNotification_DedupKey(t *testing.T) {
	a := &model.Notification{
		RecipientID: "member-1",
		Target:      types.EntityRef{Kind: types.EntityPost, ID: "7"},
		TargetScope: types.ScopeNone,
	}
	b := &model.Notification{
		RecipientID: "member-1",
		Target:      types.EntityRef{Kind: types.EntityPost, ID: "7"},
		TargetScope: types.ScopeReaction,
	}

	if a.DedupKey() == b.DedupKey() {
		t.Error("notifications with different scopes must not share a dedup key")
	}

	c := &model.Notification{
		RecipientID: "member-1",
		Target:      types.EntityRef{Kind: types.EntityPost, ID: "7"},
		TargetScope: types.ScopeNone,
	}
	if a.DedupKey() != c.DedupKey() {
		t.Error("same target, scope, and recipient must share a dedup key")
	}
}

func TestNotification_LifecycleFlags(t *testing.T) {
	n := &model.Notification{}
	if n.Read() || n.Archived() || n.Discarded() {
		t.Error("fresh notification should be unread, unarchived, and kept")
	}

	now := time.Now()
	n.ReadAt = &now
	n.ArchivedAt = &now
	if !n.Read() || !n.Archived() {
		t.Error("read and archived flags are independent and both set")
	}
	if n.Discarded() {
		t.Error("read/archive must not imply discard")
	}
}

func TestEvent_ActorDisplayName(t *testing.T) {
	e := &model.Event{Metadata: map[string]any{model.MetadataActorDisplayName: "Zapier"}}
	if got := e.ActorDisplayName(); got != "Zapier" {
		t.Errorf("ActorDisplayName() = %q, want %q", got, "Zapier")
	}

	e = &model.Event{}
	if got := e.ActorDisplayName(); got != model.SystemActorName {
		t.Errorf("ActorDisplayName() = %q, want %q", got, model.SystemActorName)
	}

	e = &model.Event{Actor: &types.EntityRef{Kind: types.EntityMember, ID: "member-9"}}
	if got := e.ActorDisplayName(); got != "member-9" {
		t.Errorf("ActorDisplayName() = %q, want %q", got, "member-9")
	}
}
