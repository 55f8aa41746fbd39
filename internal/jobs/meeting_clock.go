// Package jobs holds the periodic sweeps that move time-derived state
// forward: the meeting phase clock and the attendance expiry clock. Each job
// exposes RunOnce for synchronous use and tests, and Start for the ticker
// loop the server runs.
package jobs

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/quorumdesk/agm-api/internal/domain/meeting"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

// MeetingClock advances meeting statuses along the time axis:
// scheduled -> ongoing at the meeting date, ongoing -> completed once the
// configured duration has elapsed.
type MeetingClock struct {
	meetings postgres.MeetingRepository
	interval time.Duration
	log      *log.Logger
}

// NewMeetingClock creates the meeting phase sweep
func NewMeetingClock(meetings postgres.MeetingRepository, interval time.Duration) *MeetingClock {
	return &MeetingClock{
		meetings: meetings,
		interval: interval,
		log:      logger.Job("meeting_clock"),
	}
}

// RunOnce sweeps every scheduled and ongoing meeting once. Errors on one
// meeting are logged and do not stop the sweep; the conditional status
// update makes re-running safe.
func (c *MeetingClock) RunOnce(now time.Time) (int, error) {
	meetings, err := c.meetings.ListByStatuses(meeting.StatusScheduled, meeting.StatusOngoing)
	if err != nil {
		return 0, err
	}

	transitions := 0
	for _, m := range meetings {
		updated, err := c.sweepOne(m, now)
		if err != nil {
			c.log.Error("failed to sweep meeting", "meeting_id", m.ID, "error", err)
			continue
		}
		if updated {
			transitions++
		}
	}

	if transitions > 0 {
		c.log.Info("meeting sweep completed", "checked", len(meetings), "transitions", transitions)
	}
	return transitions, nil
}

func (c *MeetingClock) sweepOne(m *meeting.Meeting, now time.Time) (bool, error) {
	duration, err := m.Duration()
	if err != nil {
		return false, err
	}

	derived := meeting.DeriveStatus(now, m.MeetingDate, duration, m.Status)
	if derived == m.Status {
		return false, nil
	}

	return c.meetings.UpdateStatusIf(m.ID, m.Status, derived)
}

// Start runs the sweep on a ticker until the context is cancelled
func (c *MeetingClock) Start(ctx context.Context) {
	c.log.Info("meeting clock started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("meeting clock stopped")
			return
		case now := <-ticker.C:
			if _, err := c.RunOnce(now); err != nil {
				c.log.Error("meeting sweep failed", "error", err)
			}
		}
	}
}
