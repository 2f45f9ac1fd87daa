package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Event() EventRepository
	Notification() NotificationRepository
	Member() MemberRepository
	Schedule() ScheduleRepository
	PushSubscription() PushSubscriptionRepository

	// Close releases the underlying client, if any
	Close() error
}
