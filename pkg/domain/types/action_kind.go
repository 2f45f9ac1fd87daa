package types

import "fmt"

// ActionKind represents the kind of domain mutation recorded in an event
type ActionKind string

const (
	ActionCreated   ActionKind = "created"
	ActionUpdated   ActionKind = "updated"
	ActionDestroyed ActionKind = "destroyed"
	ActionPublished ActionKind = "published"
)

// AllActionKinds returns all valid action kinds
func AllActionKinds() []ActionKind {
	return []ActionKind{
		ActionCreated,
		ActionUpdated,
		ActionDestroyed,
		ActionPublished,
	}
}

// IsValid checks if the action kind is valid
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionCreated,
		ActionUpdated,
		ActionDestroyed,
		ActionPublished:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action kind
func (k ActionKind) String() string {
	return string(k)
}

// ParseActionKind parses a string into an ActionKind
func ParseActionKind(s string) (ActionKind, error) {
	kind := ActionKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid action kind: %s", s)
	}
	return kind, nil
}
