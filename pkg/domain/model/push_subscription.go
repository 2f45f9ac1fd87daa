package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/types"
)

// PushSubscription is one registered web push endpoint for a member's
// device. Web push fans out independently per subscription; a
// subscription reported expired by the transport is deleted.
type PushSubscription struct {
	ID        types.SubscriptionID
	MemberID  types.MemberID
	Endpoint  string
	P256DH    string
	Auth      string
	CreatedAt time.Time
}

// Validate checks that the subscription is well-formed at registration
func (s *PushSubscription) Validate() error {
	if s.MemberID == "" {
		return goerr.New("member ID is required")
	}
	if s.Endpoint == "" {
		return goerr.New("push endpoint is required")
	}
	return nil
}
