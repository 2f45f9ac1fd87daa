package model

import (
	"time"

	"github.com/harborhq/relay/pkg/domain/types"
)

// Member is an organization member as this core sees it: delivery
// preferences, Slack routing, and the pause state fields. The host
// application owns the rest of the profile.
type Member struct {
	ID             types.MemberID
	OrganizationID types.OrgID
	Email          string
	DisplayName    string

	// Delivery preferences gate the email and Slack channels
	EmailNotifications bool
	SlackNotifications bool
	SlackUserID        string

	// Pause state; no separate entity. Paused is evaluated lazily at
	// send time, so no background transition ends a pause.
	NotificationsPausedAt      *time.Time
	NotificationPauseExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Paused reports whether the member's notifications are paused at now
func (m *Member) Paused(now time.Time) bool {
	return m.NotificationPauseExpiresAt != nil && m.NotificationPauseExpiresAt.After(now)
}
