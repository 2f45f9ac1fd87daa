package types

import "github.com/google/uuid"

// EventID identifies an event log entry
type EventID string

// NewEventID generates a new random EventID
func NewEventID() EventID {
	return EventID(uuid.NewString())
}

// String returns the string representation of the event ID
func (id EventID) String() string {
	return string(id)
}

// NotificationID identifies a notification record
type NotificationID string

// NewNotificationID generates a new random NotificationID
func NewNotificationID() NotificationID {
	return NotificationID(uuid.NewString())
}

// String returns the string representation of the notification ID
func (id NotificationID) String() string {
	return string(id)
}

// MemberID identifies an organization member
type MemberID string

// String returns the string representation of the member ID
func (id MemberID) String() string {
	return string(id)
}

// OrgID identifies the owning tenant organization
type OrgID string

// String returns the string representation of the organization ID
func (id OrgID) String() string {
	return string(id)
}

// ScheduleID identifies a notification schedule
type ScheduleID string

// NewScheduleID generates a new random ScheduleID
func NewScheduleID() ScheduleID {
	return ScheduleID(uuid.NewString())
}

// String returns the string representation of the schedule ID
func (id ScheduleID) String() string {
	return string(id)
}

// SubscriptionID identifies a web push device subscription
type SubscriptionID string

// NewSubscriptionID generates a new random SubscriptionID
func NewSubscriptionID() SubscriptionID {
	return SubscriptionID(uuid.NewString())
}

// String returns the string representation of the subscription ID
func (id SubscriptionID) String() string {
	return string(id)
}
