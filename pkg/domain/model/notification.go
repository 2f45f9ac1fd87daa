package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/types"
)

// Notification is a per-recipient fan-out record. Only the lifecycle
// timestamps and the Slack delivery marker mutate after creation.
type Notification struct {
	ID             types.NotificationID
	EventID        types.EventID
	OrganizationID types.OrgID
	RecipientID    types.MemberID
	Target         types.EntityRef
	TargetScope    types.TargetScope
	Reason         types.Reason
	CreatedAt      time.Time

	// Lifecycle timestamps are independent of each other; state is the
	// cross-product of read/unread, archived/unarchived, kept/discarded.
	ReadAt      *time.Time
	ArchivedAt  *time.Time
	DiscardedAt *time.Time

	// SlackMessageTS is the durable idempotency marker for the Slack
	// channel: set on successful send, cleared only when the DM itself
	// is deleted.
	SlackMessageTS string
}

// Validate checks that the notification is well-formed at creation
func (n *Notification) Validate() error {
	if n.EventID == "" {
		return goerr.New("event ID is required")
	}
	if n.RecipientID == "" {
		return goerr.New("recipient ID is required")
	}
	if n.OrganizationID == "" {
		return goerr.New("organization ID is required")
	}
	if err := n.Target.Validate(); err != nil {
		return goerr.Wrap(err, "invalid notification target")
	}
	if !n.TargetScope.IsValid() {
		return goerr.New("invalid target scope", goerr.V("scope", n.TargetScope))
	}
	if !n.Reason.IsValid() {
		return goerr.New("invalid notification reason", goerr.V("reason", n.Reason))
	}
	return nil
}

// Read reports whether the notification has been read
func (n *Notification) Read() bool {
	return n.ReadAt != nil
}

// Archived reports whether the notification has been archived
func (n *Notification) Archived() bool {
	return n.ArchivedAt != nil
}

// Discarded reports whether the notification has been soft-deleted
func (n *Notification) Discarded() bool {
	return n.DiscardedAt != nil
}

// HomeInbox reports whether the notification belongs to the home inbox
// view. Everything else belongs to the activity view; the two views are
// mutually exhaustive over non-discarded notifications.
func (n *Notification) HomeInbox() bool {
	switch n.Target.Kind {
	case types.EntityPost, types.EntityNote, types.EntityCall:
	default:
		return false
	}
	if n.Reason == types.ReasonCommentResolved {
		return false
	}
	if n.TargetScope == types.ScopeReaction {
		return false
	}
	return true
}

// DedupKey returns the key under which "latest wins" collapsing applies
func (n *Notification) DedupKey() string {
	return n.Target.Key() + "|" + n.TargetScope.String() + "|" + n.RecipientID.String()
}
