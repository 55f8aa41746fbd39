package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/domain/shareholder"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/response"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

// ShareholderHandler exposes shareholder and registration administration
type ShareholderHandler struct {
	shareholders  postgres.ShareholderRepository
	registrations postgres.RegistrationRepository
	log           *log.Logger
}

// NewShareholderHandler creates a new shareholder handler
func NewShareholderHandler(shareholders postgres.ShareholderRepository, registrations postgres.RegistrationRepository) *ShareholderHandler {
	return &ShareholderHandler{
		shareholders:  shareholders,
		registrations: registrations,
		log:           logger.Handler("shareholder_handler"),
	}
}

type createShareholderRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	TotalShares int64  `json:"total_shares" binding:"required,min=1"`
}

// Create handles POST /api/admin/shareholders
func (h *ShareholderHandler) Create(c *gin.Context) {
	var req createShareholderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "name, email and total_shares are required")
		return
	}

	holder := &shareholder.Shareholder{
		ID:          uuid.New(),
		Name:        req.Name,
		Email:       req.Email,
		TotalShares: req.TotalShares,
	}

	if err := h.shareholders.Create(holder); err != nil {
		writeDomainError(c, err)
		return
	}

	h.log.Info("shareholder created", "shareholder_id", holder.ID)
	response.SuccessResponse(c, http.StatusCreated, "shareholder created", holder)
}

type updateRegistrationRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateRegistrationStatus handles PATCH /api/admin/registrations/:id/status.
// Approval here is the third step of the eligibility gate.
func (h *ShareholderHandler) UpdateRegistrationStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid registration id")
		return
	}

	var req updateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "status is required")
		return
	}

	status, valid := shareholder.RegistrationStatusFromString(req.Status)
	if !valid {
		response.BadRequestError(c, "status must be pending, approved, rejected or cancelled")
		return
	}

	if err := h.registrations.UpdateStatus(id, status); err != nil {
		writeDomainError(c, err)
		return
	}

	h.log.Info("registration status updated", "registration_id", id, "status", status.String())
	response.SuccessResponse(c, http.StatusOK, "registration status updated", gin.H{
		"registration_id": id,
		"status":          status,
	})
}
