package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/middleware/auth"
	"github.com/quorumdesk/agm-api/internal/response"
)

// AuthHandler exposes admin login
type AuthHandler struct {
	authenticator *auth.Authenticator
	log           *log.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authenticator *auth.Authenticator) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		log:           logger.Handler("auth_handler"),
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/admin/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "username and password are required")
		return
	}

	token, err := h.authenticator.Login(req.Username, req.Password)
	if err != nil {
		h.log.Warn("failed admin login attempt", "username", req.Username, "remote_addr", c.ClientIP())
		response.UnauthorizedError(c, "invalid credentials")
		return
	}

	h.log.Info("admin logged in", "username", req.Username)
	response.SuccessResponse(c, http.StatusOK, "login successful", gin.H{
		"token": token,
	})
}
