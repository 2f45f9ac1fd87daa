package types

import "fmt"

// EntityKind represents the kind of a referenced domain entity.
// The set is closed: references are resolved through a typed registry,
// never through open-ended dynamic dispatch.
type EntityKind string

const (
	EntityPost                          EntityKind = "post"
	EntityComment                       EntityKind = "comment"
	EntityNote                          EntityKind = "note"
	EntityCall                          EntityKind = "call"
	EntityReaction                      EntityKind = "reaction"
	EntityPermission                    EntityKind = "permission"
	EntityFollowUp                      EntityKind = "follow_up"
	EntityProject                       EntityKind = "project"
	EntityProjectMembership             EntityKind = "project_membership"
	EntityMessageThread                 EntityKind = "message_thread"
	EntityMessageThreadMembershipUpdate EntityKind = "message_thread_membership_update"
	EntityPostFeedbackRequest           EntityKind = "post_feedback_request"
	EntityMember                        EntityKind = "member"
)

// AllEntityKinds returns all valid entity kinds
func AllEntityKinds() []EntityKind {
	return []EntityKind{
		EntityPost,
		EntityComment,
		EntityNote,
		EntityCall,
		EntityReaction,
		EntityPermission,
		EntityFollowUp,
		EntityProject,
		EntityProjectMembership,
		EntityMessageThread,
		EntityMessageThreadMembershipUpdate,
		EntityPostFeedbackRequest,
		EntityMember,
	}
}

// IsValid checks if the entity kind is valid
func (k EntityKind) IsValid() bool {
	switch k {
	case EntityPost,
		EntityComment,
		EntityNote,
		EntityCall,
		EntityReaction,
		EntityPermission,
		EntityFollowUp,
		EntityProject,
		EntityProjectMembership,
		EntityMessageThread,
		EntityMessageThreadMembershipUpdate,
		EntityPostFeedbackRequest,
		EntityMember:
		return true
	default:
		return false
	}
}

// String returns the string representation of the entity kind
func (k EntityKind) String() string {
	return string(k)
}

// ParseEntityKind parses a string into an EntityKind
func ParseEntityKind(s string) (EntityKind, error) {
	kind := EntityKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid entity kind: %s", s)
	}
	return kind, nil
}
