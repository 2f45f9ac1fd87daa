package types

import "fmt"

// Reason represents why a recipient received a notification
type Reason string

const (
	ReasonMention                Reason = "mention"
	ReasonParentSubscription     Reason = "parent_subscription"
	ReasonAuthor                 Reason = "author"
	ReasonFeedbackRequested      Reason = "feedback_requested"
	ReasonProjectSubscription    Reason = "project_subscription"
	ReasonPermissionGranted      Reason = "permission_granted"
	ReasonCommentResolved        Reason = "comment_resolved"
	ReasonAdded                  Reason = "added"
	ReasonSubjectArchived        Reason = "subject_archived"
	ReasonFollowUp               Reason = "follow_up"
	ReasonPostResolved           Reason = "post_resolved"
	ReasonPostResolvedFromComment Reason = "post_resolved_from_comment"
	ReasonProcessingComplete     Reason = "processing_complete"
	ReasonThreadMessage          Reason = "thread_message"
)

// AllReasons returns all valid notification reasons
func AllReasons() []Reason {
	return []Reason{
		ReasonMention,
		ReasonParentSubscription,
		ReasonAuthor,
		ReasonFeedbackRequested,
		ReasonProjectSubscription,
		ReasonPermissionGranted,
		ReasonCommentResolved,
		ReasonAdded,
		ReasonSubjectArchived,
		ReasonFollowUp,
		ReasonPostResolved,
		ReasonPostResolvedFromComment,
		ReasonProcessingComplete,
		ReasonThreadMessage,
	}
}

// IsValid checks if the reason is valid
func (r Reason) IsValid() bool {
	switch r {
	case ReasonMention,
		ReasonParentSubscription,
		ReasonAuthor,
		ReasonFeedbackRequested,
		ReasonProjectSubscription,
		ReasonPermissionGranted,
		ReasonCommentResolved,
		ReasonAdded,
		ReasonSubjectArchived,
		ReasonFollowUp,
		ReasonPostResolved,
		ReasonPostResolvedFromComment,
		ReasonProcessingComplete,
		ReasonThreadMessage:
		return true
	default:
		return false
	}
}

// String returns the string representation of the reason
func (r Reason) String() string {
	return string(r)
}

// ParseReason parses a string into a Reason
func ParseReason(s string) (Reason, error) {
	reason := Reason(s)
	if !reason.IsValid() {
		return "", fmt.Errorf("invalid notification reason: %s", s)
	}
	return reason, nil
}
