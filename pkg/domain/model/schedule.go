package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/harborhq/relay/pkg/domain/types"
)

// Schedule is a recurring weekly quiet-hours configuration. The window
// StartTime..EndTime on enabled weekdays, in the member's zone, is the
// window during which notifications are ALLOWED; applying the schedule
// pauses everything outside it, once per local calendar day.
type Schedule struct {
	ID        types.ScheduleID
	MemberID  types.MemberID
	StartTime types.TimeOfDay
	EndTime   types.TimeOfDay
	TimeZone  string

	// Days is indexed by time.Weekday (Sunday = 0)
	Days [7]bool

	// LastAppliedAt is the UTC watermark of the last successful
	// application; it makes the periodic evaluation idempotent per
	// local day. User edits never touch it.
	LastAppliedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate rejects invalid schedules synchronously at write time so
// that Apply never sees one
func (s *Schedule) Validate() error {
	if s.MemberID == "" {
		return goerr.New("member ID is required")
	}
	if !s.StartTime.IsValid() || !s.EndTime.IsValid() {
		return goerr.New("schedule times must fall within a day",
			goerr.V("start", s.StartTime), goerr.V("end", s.EndTime))
	}
	if s.StartTime >= s.EndTime {
		return goerr.New("schedule start time must be before end time",
			goerr.V("start", s.StartTime), goerr.V("end", s.EndTime))
	}
	if !s.anyDayEnabled() {
		return goerr.New("schedule requires at least one enabled weekday")
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

func (s *Schedule) anyDayEnabled() bool {
	for _, enabled := range s.Days {
		if enabled {
			return true
		}
	}
	return false
}

// Location resolves the schedule's IANA time zone
func (s *Schedule) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid schedule time zone", goerr.V("time_zone", s.TimeZone))
	}
	return loc, nil
}

// PastEndOfWindow reports whether the local clock has reached EndTime
// on an enabled weekday. Apply is a no-op until this holds.
func (s *Schedule) PastEndOfWindow(now time.Time) (bool, error) {
	loc, err := s.Location()
	if err != nil {
		return false, err
	}

	local := now.In(loc)
	if !s.Days[local.Weekday()] {
		return false, nil
	}
	return types.MinutesOf(local) >= s.EndTime, nil
}

// NeedsApplying reports whether the schedule should be applied at now:
// the local clock has reached EndTime on an enabled weekday and the
// schedule has not been applied yet on today's local calendar date.
func (s *Schedule) NeedsApplying(now time.Time) (bool, error) {
	pastEnd, err := s.PastEndOfWindow(now)
	if err != nil || !pastEnd {
		return false, err
	}

	loc, err := s.Location()
	if err != nil {
		return false, err
	}
	local := now.In(loc)
	if s.LastAppliedAt != nil && sameLocalDate(s.LastAppliedAt.In(loc), local) {
		return false, nil
	}
	return true, nil
}

// NextStartTime computes when notifications should resume: StartTime on
// the next enabled weekday, starting from local tomorrow. Disabled days
// (e.g. weekends) are skipped, so a Friday application lands on Monday.
func (s *Schedule) NextStartTime(now time.Time) (time.Time, error) {
	loc, err := s.Location()
	if err != nil {
		return time.Time{}, err
	}

	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	for i := 0; i < 7; i++ {
		day = day.AddDate(0, 0, 1)
		if s.Days[day.Weekday()] {
			return s.StartTime.On(day, loc), nil
		}
	}

	// Unreachable once Validate has enforced at least one enabled day
	return time.Time{}, goerr.New("no enabled weekday within the next 7 days",
		goerr.V("schedule_id", s.ID))
}

func sameLocalDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
