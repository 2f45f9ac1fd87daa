package types

import "fmt"

// TargetScope refines a notification target when multiple notification
// kinds can point at the same entity. The empty scope is the default.
type TargetScope string

const (
	ScopeNone            TargetScope = ""
	ScopeFeedbackRequest TargetScope = "feedback_request"
	ScopeReaction        TargetScope = "reaction"
	ScopePermission      TargetScope = "permission"
)

// IsValid checks if the target scope is valid
func (s TargetScope) IsValid() bool {
	switch s {
	case ScopeNone,
		ScopeFeedbackRequest,
		ScopeReaction,
		ScopePermission:
		return true
	default:
		return false
	}
}

// String returns the string representation of the target scope
func (s TargetScope) String() string {
	return string(s)
}

// ParseTargetScope parses a string into a TargetScope
func ParseTargetScope(s string) (TargetScope, error) {
	scope := TargetScope(s)
	if !scope.IsValid() {
		return "", fmt.Errorf("invalid target scope: %s", s)
	}
	return scope, nil
}
