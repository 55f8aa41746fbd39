package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/domain/verification"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/response"
	"github.com/quorumdesk/agm-api/internal/services"
	"github.com/quorumdesk/agm-api/internal/validation"
)

// VerificationHandler exposes link redemption to shareholders and link
// issuance and revocation to administrators
type VerificationHandler struct {
	service *services.VerificationService
	log     *log.Logger
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(service *services.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		service: service,
		log:     logger.Handler("verification_handler"),
	}
}

type verifyRequest struct {
	Code string `json:"code" binding:"required"`
}

type verifyResponse struct {
	Link         interface{} `json:"link"`
	Meeting      interface{} `json:"meeting"`
	Shareholder  interface{} `json:"shareholder"`
	Registration interface{} `json:"registration,omitempty"`
	Attendance   interface{} `json:"attendance,omitempty"`
	CheckedIn    bool        `json:"checked_in"`
	RedirectURL  string      `json:"redirect_url"`
}

// Verify handles POST /api/verification/verify
func (h *VerificationHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "code is required")
		return
	}

	if err := validation.ValidateVerificationCode(req.Code); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	result, err := h.service.Redeem(req.Code, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		writeDomainError(c, err)
		return
	}

	resp := verifyResponse{
		Link:        result.Link,
		Meeting:     result.Meeting,
		Shareholder: result.Shareholder,
		CheckedIn:   result.Attendance != nil,
		RedirectURL: result.RedirectURL,
	}
	if result.Registration != nil {
		resp.Registration = result.Registration
	}
	if result.Attendance != nil {
		resp.Attendance = result.Attendance
	}

	response.SuccessResponse(c, http.StatusOK, "verification successful", resp)
}

type issueBatchRequest struct {
	MeetingID      string   `json:"meeting_id" binding:"required"`
	ShareholderIDs []string `json:"shareholder_ids" binding:"required,min=1"`
	Type           string   `json:"type" binding:"required"`
}

// IssueBatch handles POST /api/admin/verification/batch
func (h *VerificationHandler) IssueBatch(c *gin.Context) {
	var req issueBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "meeting_id, shareholder_ids and type are required")
		return
	}

	meetingID, err := uuid.Parse(req.MeetingID)
	if err != nil {
		response.BadRequestError(c, "invalid meeting_id format")
		return
	}

	linkType, valid := verification.LinkTypeFromString(req.Type)
	if !valid {
		response.BadRequestError(c, "type must be registration or attendance")
		return
	}

	shareholderIDs := make([]uuid.UUID, 0, len(req.ShareholderIDs))
	for _, raw := range req.ShareholderIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequestError(c, "invalid shareholder id: "+raw)
			return
		}
		shareholderIDs = append(shareholderIDs, id)
	}

	results := h.service.IssueBatch(meetingID, shareholderIDs, linkType)

	issued := 0
	for _, r := range results {
		if r.Error == "" {
			issued++
		}
	}

	h.log.Info("verification batch processed", "meeting_id", meetingID,
		"requested", len(shareholderIDs), "issued", issued)

	response.SuccessResponse(c, http.StatusCreated, "verification links issued", gin.H{
		"issued":  issued,
		"failed":  len(results) - issued,
		"results": results,
	})
}

// Revoke handles POST /api/admin/verification/:id/revoke
func (h *VerificationHandler) Revoke(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid verification link id")
		return
	}

	if err := h.service.Revoke(id); err != nil {
		writeDomainError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "verification link revoked", gin.H{
		"verification_id": id,
	})
}
