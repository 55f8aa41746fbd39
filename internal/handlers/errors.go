package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/response"
)

// writeDomainError maps the shared error taxonomy onto HTTP statuses. Every
// handler funnels repository and service errors through here so a given
// failure always produces the same status and reason code.
func writeDomainError(c *gin.Context, err error) {
	if ne, ok := common.IsNotEligible(err); ok {
		response.ErrorResponseWithReason(c, http.StatusForbidden, ne.Reason, ne.Step)
		return
	}

	switch {
	case errors.Is(err, common.ErrNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, common.ErrExpired):
		response.GoneError(c, err.Error())
	case errors.Is(err, common.ErrConflict):
		response.ConflictError(c, err.Error())
	case errors.Is(err, common.ErrInvalidBallot):
		response.UnprocessableError(c, err.Error())
	case errors.Is(err, common.ErrInactiveResolution):
		response.ConflictError(c, err.Error())
	default:
		response.InternalServerError(c, "internal server error")
	}
}
