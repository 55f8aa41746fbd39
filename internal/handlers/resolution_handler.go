package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/domain/resolution"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/response"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

// ResolutionHandler exposes resolution administration
type ResolutionHandler struct {
	resolutions postgres.ResolutionRepository
	log         *log.Logger
}

// NewResolutionHandler creates a new resolution handler
func NewResolutionHandler(resolutions postgres.ResolutionRepository) *ResolutionHandler {
	return &ResolutionHandler{
		resolutions: resolutions,
		log:         logger.Handler("resolution_handler"),
	}
}

type createResolutionRequest struct {
	MeetingID         string   `json:"meeting_id" binding:"required"`
	Title             string   `json:"title" binding:"required"`
	Description       string   `json:"description"`
	VotingMethod      string   `json:"voting_method" binding:"required"`
	MaxChoices        int      `json:"max_choices"`
	ApprovalThreshold *float64 `json:"approval_threshold"`
	IsActive          bool     `json:"is_active"`

	Options    []string `json:"options"`
	Candidates []struct {
		Code string `json:"code" binding:"required"`
		Name string `json:"name"`
	} `json:"candidates"`
}

// Create handles POST /api/admin/resolutions
func (h *ResolutionHandler) Create(c *gin.Context) {
	var req createResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "meeting_id, title and voting_method are required")
		return
	}

	meetingID, err := uuid.Parse(req.MeetingID)
	if err != nil {
		response.BadRequestError(c, "invalid meeting_id format")
		return
	}

	method, valid := resolution.VotingMethodFromString(req.VotingMethod)
	if !valid {
		response.BadRequestError(c, "voting_method must be yes_no, multiple_choice or ranking")
		return
	}

	maxChoices := req.MaxChoices
	if maxChoices == 0 {
		maxChoices = 1
	}
	threshold := 0.5
	if req.ApprovalThreshold != nil {
		threshold = *req.ApprovalThreshold
	}

	res := &resolution.Resolution{
		ID:                uuid.New(),
		MeetingID:         meetingID,
		Title:             req.Title,
		Description:       req.Description,
		VotingMethod:      method,
		MaxChoices:        maxChoices,
		ApprovalThreshold: threshold,
		IsActive:          req.IsActive,
	}

	for _, value := range req.Options {
		res.Options = append(res.Options, resolution.Option{
			ID:           uuid.New(),
			ResolutionID: res.ID,
			OptionValue:  value,
		})
	}
	for _, cand := range req.Candidates {
		res.Candidates = append(res.Candidates, resolution.Candidate{
			ID:            uuid.New(),
			ResolutionID:  res.ID,
			CandidateCode: cand.Code,
			CandidateName: cand.Name,
		})
	}

	if err := h.resolutions.Create(res); err != nil {
		writeDomainError(c, err)
		return
	}

	h.log.Info("resolution created", "resolution_id", res.ID, "method", method.String())
	response.SuccessResponse(c, http.StatusCreated, "resolution created", res)
}

// Get handles GET /api/resolutions/:id
func (h *ResolutionHandler) Get(c *gin.Context) {
	res, err := h.resolutions.GetByID(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "resolution", res)
}

// ListByMeeting handles GET /api/meetings/:id/resolutions
func (h *ResolutionHandler) ListByMeeting(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid meeting id")
		return
	}

	resolutions, err := h.resolutions.ListByMeeting(meetingID)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "resolutions", gin.H{
		"meeting_id":  meetingID,
		"count":       len(resolutions),
		"resolutions": resolutions,
	})
}
