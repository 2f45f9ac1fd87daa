package slack

import (
	"context"
)

// Service provides the Slack Web API surface the delivery layer needs
type Service interface {
	// PostDirectMessage opens (or reuses) the DM conversation with the
	// user and posts a message. Returns the message timestamp, which
	// callers persist as the delivery idempotency marker.
	PostDirectMessage(ctx context.Context, userID string, text string) (string, error)

	// DeleteDirectMessage deletes a previously posted DM identified by
	// its timestamp
	DeleteDirectMessage(ctx context.Context, userID string, timestamp string) error

	// GetUserInfo retrieves user information for the given user ID
	GetUserInfo(ctx context.Context, userID string) (*User, error)
}

// User represents a Slack user
type User struct {
	ID       string
	Name     string
	RealName string
	Email    string
}
