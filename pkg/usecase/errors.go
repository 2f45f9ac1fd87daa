package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// ErrUnrecognizedProcessor means the dispatch table has no entry
	// for an event's (action, subject kind) pair. A missing mapping is
	// a deployment defect, not a transient fault: fatal, non-retryable.
	ErrUnrecognizedProcessor = errors.New("no processor registered for event")

	ErrPauseExpiryInPast = errors.New("pause expiry must be in the future")
)

// Context keys for error values
const (
	EventIDKey        = "event_id"
	NotificationIDKey = "notification_id"
	MemberIDKey       = "member_id"
	ScheduleIDKey     = "schedule_id"
)
