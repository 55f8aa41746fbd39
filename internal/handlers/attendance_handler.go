package handlers

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/jobs"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/response"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

// AttendanceHandler exposes the attendance expiry sweep and explicit
// checkout to administrators
type AttendanceHandler struct {
	attendances postgres.AttendanceRepository
	clock       *jobs.AttendanceClock
	log         *log.Logger
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(attendances postgres.AttendanceRepository, clock *jobs.AttendanceClock) *AttendanceHandler {
	return &AttendanceHandler{
		attendances: attendances,
		clock:       clock,
		log:         logger.Handler("attendance_handler"),
	}
}

// RunAutoCheckout handles POST /api/admin/auto-checkout/run, sweeping every
// meeting synchronously
func (h *AttendanceHandler) RunAutoCheckout(c *gin.Context) {
	closed, err := h.clock.RunOnce(time.Now())
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "auto-checkout sweep completed", gin.H{
		"checked_out": closed,
	})
}

// RunAutoCheckoutForMeeting handles POST /api/admin/auto-checkout/meeting/:id
func (h *AttendanceHandler) RunAutoCheckoutForMeeting(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid meeting id")
		return
	}

	closed, err := h.clock.RunForMeeting(meetingID, time.Now())
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "auto-checkout completed for meeting", gin.H{
		"meeting_id":  meetingID,
		"checked_out": closed,
	})
}

// ExpiringAttendances handles GET /api/admin/auto-checkout/expiring/:meetingId.
// Read-only: it classifies open attendances without closing them.
func (h *AttendanceHandler) ExpiringAttendances(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("meetingId"))
	if err != nil {
		response.BadRequestError(c, "invalid meeting id")
		return
	}

	expiring, err := h.clock.ExpiringAttendances(meetingID, time.Now())
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "expiring attendances", gin.H{
		"meeting_id": meetingID,
		"count":      len(expiring),
		"expiring":   expiring,
	})
}

type checkoutRequest struct {
	Note string `json:"note"`
}

// Checkout handles POST /api/admin/attendance/:id/checkout, closing one
// attendance explicitly
func (h *AttendanceHandler) Checkout(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid attendance id")
		return
	}

	var req checkoutRequest
	_ = c.ShouldBindJSON(&req)

	ok, err := h.attendances.Checkout(id, time.Now(), req.Note)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if !ok {
		response.ConflictError(c, "attendance is already closed")
		return
	}

	h.log.Info("attendance checked out", "attendance_id", id)
	response.SuccessResponse(c, http.StatusOK, "attendance checked out", gin.H{
		"attendance_id": id,
	})
}
