package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/response"
	"github.com/quorumdesk/agm-api/internal/services"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

// VoteHandler exposes ballot casting and tally results
type VoteHandler struct {
	voting *services.VotingService
	votes  postgres.VoteRepository
	log    *log.Logger
}

// NewVoteHandler creates a new vote handler
func NewVoteHandler(voting *services.VotingService, votes postgres.VoteRepository) *VoteHandler {
	return &VoteHandler{
		voting: voting,
		votes:  votes,
		log:    logger.Handler("vote_handler"),
	}
}

// Cast handles POST /api/votes
func (h *VoteHandler) Cast(c *gin.Context) {
	var req services.CastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "verification_code, resolution_id and ballot are required")
		return
	}

	vote, err := h.voting.Cast(req)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "vote cast", vote)
}

type castBatchRequest struct {
	VerificationCode string `json:"verification_code" binding:"required"`
	Ballots          []struct {
		ResolutionID string          `json:"resolution_id" binding:"required"`
		Ballot       json.RawMessage `json:"ballot" binding:"required"`
	} `json:"ballots" binding:"required,min=1"`
}

// CastBatch handles POST /api/votes/batch
func (h *VoteHandler) CastBatch(c *gin.Context) {
	var req castBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "verification_code and ballots are required")
		return
	}

	items := make([]services.CastRequest, 0, len(req.Ballots))
	for _, b := range req.Ballots {
		items = append(items, services.CastRequest{
			ResolutionID: b.ResolutionID,
			Ballot:       b.Ballot,
		})
	}

	results := h.voting.CastBatch(req.VerificationCode, items)

	cast := 0
	for _, r := range results {
		if r.Error == "" {
			cast++
		}
	}

	response.SuccessResponse(c, http.StatusOK, "batch processed", gin.H{
		"cast":    cast,
		"failed":  len(results) - cast,
		"results": results,
	})
}

// Results handles GET /api/votes/resolution/:id/results
func (h *VoteHandler) Results(c *gin.Context) {
	results, err := h.voting.GetResults(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "results", results)
}

// ListByResolution handles GET /api/admin/votes/resolution/:id
func (h *VoteHandler) ListByResolution(c *gin.Context) {
	resolutionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid resolution id")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	result, err := h.votes.GetByResolutionPaginated(resolutionID, postgres.PaginationParams{
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "votes", result)
}

// Delete handles DELETE /api/admin/votes/:id
func (h *VoteHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequestError(c, "invalid vote id")
		return
	}

	if err := h.voting.Delete(id); err != nil {
		writeDomainError(c, err)
		return
	}

	h.log.Info("vote deleted by administrator", "vote_id", id)
	response.SuccessResponse(c, http.StatusOK, "vote deleted and counters restored", gin.H{
		"vote_id": id,
	})
}
