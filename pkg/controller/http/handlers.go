package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/harborhq/relay/pkg/domain/interfaces"
	"github.com/harborhq/relay/pkg/domain/model"
	"github.com/harborhq/relay/pkg/domain/types"
	"github.com/harborhq/relay/pkg/service/delivery"
	"github.com/harborhq/relay/pkg/usecase"
	"github.com/harborhq/relay/pkg/utils/async"
	"github.com/harborhq/relay/pkg/utils/errutil"
	"github.com/harborhq/relay/pkg/utils/logging"
	"github.com/harborhq/relay/pkg/utils/safe"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.From(ctx).Warn("failed to encode response", "error", err.Error())
	}
}

// respondError maps repository sentinels to status codes
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, interfaces.ErrNotFound) {
		status = http.StatusNotFound
	}
	errutil.HandleHTTP(ctx, w, err, status)
}

type entityRefRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (r *entityRefRequest) toRef() (types.EntityRef, error) {
	kind, err := types.ParseEntityKind(r.Kind)
	if err != nil {
		return types.EntityRef{}, err
	}
	return types.EntityRef{Kind: kind, ID: r.ID}, nil
}

type notificationResponse struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	RecipientID    string     `json:"recipient_id"`
	TargetKind     string     `json:"target_kind"`
	TargetID       string     `json:"target_id"`
	TargetScope    string     `json:"target_scope,omitempty"`
	Reason         string     `json:"reason"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
	DiscardedAt    *time.Time `json:"discarded_at,omitempty"`
	SlackMessageTS string     `json:"slack_message_ts,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toNotificationResponse(n *model.Notification) notificationResponse {
	return notificationResponse{
		ID:             n.ID.String(),
		EventID:        n.EventID.String(),
		RecipientID:    string(n.RecipientID),
		TargetKind:     n.Target.Kind.String(),
		TargetID:       n.Target.ID,
		TargetScope:    n.TargetScope.String(),
		Reason:         n.Reason.String(),
		ReadAt:         n.ReadAt,
		ArchivedAt:     n.ArchivedAt,
		DiscardedAt:    n.DiscardedAt,
		SlackMessageTS: n.SlackMessageTS,
		CreatedAt:      n.CreatedAt,
	}
}

func toNotificationList(notifications []*model.Notification) []notificationResponse {
	result := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		result = append(result, toNotificationResponse(n))
	}
	return result
}

// recordEventHandler appends the event and dispatches fan-out in the
// background, returning 202 with the event ID
func recordEventHandler(uc *usecase.UseCases) http.HandlerFunc {
	type request struct {
		Action         string            `json:"action"`
		Subject        entityRefRequest  `json:"subject"`
		Actor          *entityRefRequest `json:"actor,omitempty"`
		OrganizationID string            `json:"organization_id"`
		Metadata       map[string]any    `json:"metadata,omitempty"`
	}
	type response struct {
		EventID string `json:"event_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer safe.Close(ctx, r.Body)

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}

		action, err := types.ParseActionKind(req.Action)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}

		subject, err := req.Subject.toRef()
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}

		var actor *types.EntityRef
		if req.Actor != nil {
			ref, err := req.Actor.toRef()
			if err != nil {
				errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
				return
			}
			actor = &ref
		}

		event, err := uc.Event.Record(ctx, action, subject, actor, types.OrgID(req.OrganizationID), req.Metadata)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}

		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.Event.Dispatch(ctx, event.ID)
		})

		respondJSON(ctx, w, http.StatusAccepted, response{EventID: event.ID.String()})
	}
}

func homeInboxHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		recipient := types.MemberID(chi.URLParam(r, "memberID"))

		notifications, err := uc.Notification.HomeInbox(ctx, recipient)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, toNotificationList(notifications))
	}
}

func activityHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		recipient := types.MemberID(chi.URLParam(r, "memberID"))

		notifications, err := uc.Notification.Activity(ctx, recipient)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, toNotificationList(notifications))
	}
}

// lifecycleHandler adapts one idempotent notification toggle to HTTP
func lifecycleHandler(uc *usecase.UseCases, op func(ctx context.Context, id types.NotificationID) (*model.Notification, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := types.NotificationID(chi.URLParam(r, "notificationID"))

		updated, err := op(ctx, id)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, toNotificationResponse(updated))
	}
}

func pauseHandler(uc *usecase.UseCases) http.HandlerFunc {
	type request struct {
		ExpiresAt time.Time `json:"expires_at"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer safe.Close(ctx, r.Body)
		member := types.MemberID(chi.URLParam(r, "memberID"))

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}

		updated, err := uc.Pause.Pause(ctx, member, req.ExpiresAt)
		if err != nil {
			if errors.Is(err, usecase.ErrPauseExpiryInPast) {
				errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
				return
			}
			respondError(ctx, w, err)
			return
		}

		respondJSON(ctx, w, http.StatusOK, map[string]any{
			"member_id":  updated.ID,
			"paused":     true,
			"expires_at": updated.NotificationPauseExpiresAt,
		})
	}
}

func unpauseHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		member := types.MemberID(chi.URLParam(r, "memberID"))

		updated, err := uc.Pause.Unpause(ctx, member)
		if err != nil {
			respondError(ctx, w, err)
			return
		}

		respondJSON(ctx, w, http.StatusOK, map[string]any{
			"member_id": updated.ID,
			"paused":    false,
		})
	}
}

type scheduleRequest struct {
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	TimeZone  string   `json:"time_zone"`
	Days      []string `json:"days"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (req *scheduleRequest) toSchedule(member types.MemberID) (*model.Schedule, error) {
	start, err := types.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := types.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, err
	}

	s := &model.Schedule{
		MemberID:  member,
		StartTime: start,
		EndTime:   end,
		TimeZone:  req.TimeZone,
	}
	for _, name := range req.Days {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return nil, goerr.New("unknown weekday", goerr.V("day", name))
		}
		s.Days[day] = true
	}
	return s, nil
}

type scheduleResponse struct {
	ID            string     `json:"id"`
	MemberID      string     `json:"member_id"`
	StartTime     string     `json:"start_time"`
	EndTime       string     `json:"end_time"`
	TimeZone      string     `json:"time_zone"`
	Days          []string   `json:"days"`
	LastAppliedAt *time.Time `json:"last_applied_at,omitempty"`
}

func toScheduleResponse(s *model.Schedule) scheduleResponse {
	var days []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Days[d] {
			days = append(days, strings.ToLower(d.String()))
		}
	}
	return scheduleResponse{
		ID:            s.ID.String(),
		MemberID:      string(s.MemberID),
		StartTime:     s.StartTime.String(),
		EndTime:       s.EndTime.String(),
		TimeZone:      s.TimeZone,
		Days:          days,
		LastAppliedAt: s.LastAppliedAt,
	}
}

func getScheduleHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		member := types.MemberID(chi.URLParam(r, "memberID"))

		s, err := uc.Schedule.Get(ctx, member)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, toScheduleResponse(s))
	}
}

func upsertScheduleHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer safe.Close(ctx, r.Body)
		member := types.MemberID(chi.URLParam(r, "memberID"))

		var req scheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}

		s, err := req.toSchedule(member)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}

		updated, err := uc.Schedule.Upsert(ctx, s)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}
		respondJSON(ctx, w, http.StatusOK, toScheduleResponse(updated))
	}
}

func deleteScheduleHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		member := types.MemberID(chi.URLParam(r, "memberID"))

		if err := uc.Schedule.Delete(ctx, member); err != nil {
			respondError(ctx, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createPushSubscriptionHandler(uc *usecase.UseCases) http.HandlerFunc {
	type request struct {
		Endpoint string `json:"endpoint"`
		P256DH   string `json:"p256dh"`
		Auth     string `json:"auth"`
	}
	type response struct {
		ID string `json:"id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer safe.Close(ctx, r.Body)
		member := types.MemberID(chi.URLParam(r, "memberID"))

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}

		created, err := uc.PushSubscriptions().Create(ctx, &model.PushSubscription{
			MemberID: member,
			Endpoint: req.Endpoint,
			P256DH:   req.P256DH,
			Auth:     req.Auth,
		})
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}
		respondJSON(ctx, w, http.StatusCreated, response{ID: created.ID.String()})
	}
}

func listPushSubscriptionsHandler(uc *usecase.UseCases) http.HandlerFunc {
	type subscription struct {
		ID       string `json:"id"`
		Endpoint string `json:"endpoint"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		member := types.MemberID(chi.URLParam(r, "memberID"))

		subs, err := uc.PushSubscriptions().ListByMember(ctx, member)
		if err != nil {
			respondError(ctx, w, err)
			return
		}

		result := make([]subscription, 0, len(subs))
		for _, s := range subs {
			result = append(result, subscription{ID: s.ID.String(), Endpoint: s.Endpoint})
		}
		respondJSON(ctx, w, http.StatusOK, result)
	}
}

func deliverSlackHandler(c *delivery.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := types.NotificationID(chi.URLParam(r, "notificationID"))

		if err := c.DeliverSlack(ctx, id); err != nil {
			respondError(ctx, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteSlackHandler(c *delivery.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := types.NotificationID(chi.URLParam(r, "notificationID"))

		if err := c.DeleteSlackMessage(ctx, id); err != nil {
			respondError(ctx, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deliverWebPushHandler(c *delivery.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := types.NotificationID(chi.URLParam(r, "notificationID"))

		if err := c.DeliverWebPush(ctx, id); err != nil {
			respondError(ctx, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func enqueueDigestHandler(c *delivery.Coordinator) http.HandlerFunc {
	type request struct {
		Since time.Time `json:"since"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer safe.Close(ctx, r.Body)
		member := types.MemberID(chi.URLParam(r, "memberID"))

		// An empty body leaves the watermark zero; the coordinator then
		// falls back to the policy's digest window
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
			return
		}

		if err := c.EnqueueEmailDigest(ctx, member, req.Since); err != nil {
			respondError(ctx, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
