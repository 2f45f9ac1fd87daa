package memory

import (
	"github.com/harborhq/relay/pkg/domain/interfaces"
)

// Memory is an in-memory repository for development and testing
type Memory struct {
	event            *eventRepository
	notification     *notificationRepository
	member           *memberRepository
	schedule         *scheduleRepository
	pushSubscription *pushSubscriptionRepository
}

var _ interfaces.Repository = &Memory{}

// New creates a new in-memory repository
func New() *Memory {
	return &Memory{
		event:            newEventRepository(),
		notification:     newNotificationRepository(),
		member:           newMemberRepository(),
		schedule:         newScheduleRepository(),
		pushSubscription: newPushSubscriptionRepository(),
	}
}

func (m *Memory) Event() interfaces.EventRepository {
	return m.event
}

func (m *Memory) Notification() interfaces.NotificationRepository {
	return m.notification
}

func (m *Memory) Member() interfaces.MemberRepository {
	return m.member
}

func (m *Memory) Schedule() interfaces.ScheduleRepository {
	return m.schedule
}

func (m *Memory) PushSubscription() interfaces.PushSubscriptionRepository {
	return m.pushSubscription
}

func (m *Memory) Close() error {
	return nil
}
