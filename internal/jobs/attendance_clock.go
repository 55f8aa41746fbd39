package jobs

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/domain/meeting"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

// AutoCheckoutNote marks attendances closed by the expiry sweep rather than
// by the shareholder.
const AutoCheckoutNote = "automatic checkout"

// Attendance expiry states reported by ExpiringAttendances
const (
	ExpiryStateWarning = "WARNING"
	ExpiryStateExpired = "EXPIRED"
)

// AttendanceClock closes open attendances once the meeting's configured
// duration has elapsed since the shareholder's own check-in. Presence cannot
// outlive its allotted span: a vote cast after the sweep fails the
// attendance step of the eligibility gate.
type AttendanceClock struct {
	meetings      postgres.MeetingRepository
	attendances   postgres.AttendanceRepository
	interval      time.Duration
	warningWindow time.Duration
	log           *log.Logger
}

// NewAttendanceClock creates the attendance expiry sweep
func NewAttendanceClock(
	meetings postgres.MeetingRepository,
	attendances postgres.AttendanceRepository,
	interval, warningWindow time.Duration,
) *AttendanceClock {
	return &AttendanceClock{
		meetings:      meetings,
		attendances:   attendances,
		interval:      interval,
		warningWindow: warningWindow,
		log:           logger.Job("attendance_clock"),
	}
}

// RunOnce sweeps every meeting that carries a duration setting. A meeting
// with a malformed duration is logged and skipped; it never blocks the
// sweep of the others.
func (c *AttendanceClock) RunOnce(now time.Time) (int, error) {
	meetings, err := c.meetings.ListWithDurationSetting()
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, m := range meetings {
		n, err := c.sweepMeeting(m, now)
		if err != nil {
			c.log.Error("failed to sweep meeting attendances", "meeting_id", m.ID, "error", err)
			continue
		}
		closed += n
	}

	if closed > 0 {
		c.log.Info("attendance sweep completed", "meetings", len(meetings), "checked_out", closed)
	}
	return closed, nil
}

// RunForMeeting sweeps a single meeting's attendances immediately
func (c *AttendanceClock) RunForMeeting(meetingID uuid.UUID, now time.Time) (int, error) {
	m, err := c.meetings.GetByID(meetingID.String())
	if err != nil {
		return 0, err
	}
	return c.sweepMeeting(m, now)
}

func (c *AttendanceClock) sweepMeeting(m *meeting.Meeting, now time.Time) (int, error) {
	duration, err := m.Duration()
	if err != nil {
		return 0, err
	}

	open, err := c.attendances.ListOpenByMeeting(m.ID)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, att := range open {
		// Each attendance expires on its own clock, measured from check-in,
		// so a late arrival keeps the full duration.
		if now.Before(att.CheckinTime.Add(duration)) {
			continue
		}

		ok, err := c.attendances.Checkout(att.ID, now, AutoCheckoutNote)
		if err != nil {
			c.log.Error("failed to auto-checkout attendance",
				"attendance_id", att.ID, "meeting_id", m.ID, "error", err)
			continue
		}
		if ok {
			closed++
			c.log.Info("attendance auto-checked-out", "attendance_id", att.ID,
				"shareholder_id", att.ShareholderID, "meeting_id", m.ID)
		}
	}

	return closed, nil
}

// ExpiringAttendance classifies one open attendance against its own expiry
type ExpiringAttendance struct {
	AttendanceID  uuid.UUID     `json:"attendance_id"`
	ShareholderID uuid.UUID     `json:"shareholder_id"`
	State         string        `json:"state"`
	TimeRemaining time.Duration `json:"time_remaining"`
}

// ExpiringAttendances reports, without modifying anything, which open
// attendances of a meeting are inside the warning window (WARNING) or
// already past their check-in plus the meeting duration (EXPIRED).
// TimeRemaining is zero once expired.
func (c *AttendanceClock) ExpiringAttendances(meetingID uuid.UUID, now time.Time) ([]ExpiringAttendance, error) {
	m, err := c.meetings.GetByID(meetingID.String())
	if err != nil {
		return nil, err
	}

	duration, err := m.Duration()
	if err != nil {
		return nil, err
	}

	open, err := c.attendances.ListOpenByMeeting(m.ID)
	if err != nil {
		return nil, err
	}

	var expiring []ExpiringAttendance
	for _, att := range open {
		remaining := att.CheckinTime.Add(duration).Sub(now)
		switch {
		case remaining <= 0:
			expiring = append(expiring, ExpiringAttendance{
				AttendanceID:  att.ID,
				ShareholderID: att.ShareholderID,
				State:         ExpiryStateExpired,
			})
		case remaining <= c.warningWindow:
			expiring = append(expiring, ExpiringAttendance{
				AttendanceID:  att.ID,
				ShareholderID: att.ShareholderID,
				State:         ExpiryStateWarning,
				TimeRemaining: remaining,
			})
		}
	}

	return expiring, nil
}

// Start runs the sweep on a ticker until the context is cancelled
func (c *AttendanceClock) Start(ctx context.Context) {
	c.log.Info("attendance clock started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("attendance clock stopped")
			return
		case now := <-ticker.C:
			if _, err := c.RunOnce(now); err != nil {
				c.log.Error("attendance sweep failed", "error", err)
			}
		}
	}
}
