package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/quorumdesk/agm-api/internal/domain/meeting"
	"github.com/quorumdesk/agm-api/internal/jobs"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/response"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

// MeetingHandler exposes meeting lifecycle operations. Status reads derive
// the phase from the clock so the answer is current even between sweeps.
type MeetingHandler struct {
	meetings postgres.MeetingRepository
	clock    *jobs.MeetingClock
	log      *log.Logger
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetings postgres.MeetingRepository, clock *jobs.MeetingClock) *MeetingHandler {
	return &MeetingHandler{
		meetings: meetings,
		clock:    clock,
		log:      logger.Handler("meeting_handler"),
	}
}

type createMeetingRequest struct {
	Title           string    `json:"title" binding:"required"`
	Description     string    `json:"description"`
	MeetingDate     time.Time `json:"meeting_date" binding:"required"`
	Location        string    `json:"location"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1"`
}

// Create handles POST /api/admin/meetings
func (h *MeetingHandler) Create(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "title, meeting_date and duration_minutes are required")
		return
	}

	m := meeting.NewMeeting(req.Title, req.Description, req.MeetingDate)
	m.Location = req.Location
	m.Status = meeting.StatusScheduled

	if err := h.meetings.Create(m); err != nil {
		writeDomainError(c, err)
		return
	}

	if err := h.meetings.SetSetting(m.ID, meeting.SettingMeetingDuration, strconv.Itoa(req.DurationMinutes)); err != nil {
		writeDomainError(c, err)
		return
	}

	h.log.Info("meeting created", "meeting_id", m.ID, "title", m.Title)
	response.SuccessResponse(c, http.StatusCreated, "meeting created", m)
}

// Status handles GET /api/meetings/:id/status. The returned status is
// derived from the current time; the stored row may lag until the next
// sweep.
func (h *MeetingHandler) Status(c *gin.Context) {
	m, err := h.meetings.GetByID(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	duration, err := m.Duration()
	if err != nil {
		response.InternalServerError(c, "meeting has an invalid duration setting")
		return
	}

	now := time.Now()
	derived := meeting.DeriveStatus(now, m.MeetingDate, duration, m.Status)

	resp := gin.H{
		"meeting_id":   m.ID,
		"title":        m.Title,
		"meeting_date": m.MeetingDate,
		"status":       derived,
	}
	if derived == meeting.StatusScheduled || derived == meeting.StatusOngoing {
		resp["meeting_end"] = m.MeetingDate.Add(duration)
	}

	response.SuccessResponse(c, http.StatusOK, "meeting status", resp)
}

// AutoUpdateStatus handles POST /api/admin/meetings/auto-update-status,
// running the phase sweep synchronously
func (h *MeetingHandler) AutoUpdateStatus(c *gin.Context) {
	transitions, err := h.clock.RunOnce(time.Now())
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "meeting statuses updated", gin.H{
		"transitions": transitions,
	})
}
