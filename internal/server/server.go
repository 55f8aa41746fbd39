package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quorumdesk/agm-api/internal/config"
	"github.com/quorumdesk/agm-api/internal/handlers"
	"github.com/quorumdesk/agm-api/internal/jobs"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/middleware/auth"
	"github.com/quorumdesk/agm-api/internal/middleware/events"
	"github.com/quorumdesk/agm-api/internal/notify"
	"github.com/quorumdesk/agm-api/internal/services"
	"github.com/quorumdesk/agm-api/internal/storage/objectstore"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

// Server represents the HTTP server and the background clocks it runs
type Server struct {
	httpServer *http.Server
	config     *config.Config
	db         *gorm.DB
	documents  *objectstore.DocumentStore

	meetingClock    *jobs.MeetingClock
	attendanceClock *jobs.AttendanceClock
}

// New creates a new server instance. documents may be nil; the document
// routes are only registered when a store is available.
func New(cfg *config.Config, db *gorm.DB, documents *objectstore.DocumentStore) *Server {
	meetingRepo := postgres.NewMeetingRepository(db)
	attendanceRepo := postgres.NewAttendanceRepository(db)

	return &Server{
		config:    cfg,
		db:        db,
		documents: documents,
		meetingClock: jobs.NewMeetingClock(
			meetingRepo, cfg.Jobs.MeetingSweepInterval),
		attendanceClock: jobs.NewAttendanceClock(
			meetingRepo, attendanceRepo,
			cfg.Jobs.AttendanceSweepInterval, cfg.Jobs.WarningWindow),
	}
}

// StartClocks launches the meeting phase and attendance expiry sweeps. They
// stop when the context is cancelled.
func (s *Server) StartClocks(ctx context.Context) {
	go s.meetingClock.Start(ctx)
	go s.attendanceClock.Start(ctx)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	router := s.setupRouter()

	s.httpServer = &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: router,

		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(events.CreateEvent())

	corsConfig := cors.DefaultConfig()
	if s.config.CORS.AllowOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(s.config.CORS.AllowOrigins, ",")
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = strings.Split(s.config.CORS.AllowMethods, ",")
	corsConfig.AllowHeaders = strings.Split(s.config.CORS.AllowHeaders, ",")
	router.Use(cors.New(corsConfig))

	// Repositories
	meetingRepo := postgres.NewMeetingRepository(s.db)
	shareholderRepo := postgres.NewShareholderRepository(s.db)
	registrationRepo := postgres.NewRegistrationRepository(s.db)
	attendanceRepo := postgres.NewAttendanceRepository(s.db)
	verificationRepo := postgres.NewVerificationRepository(s.db)
	resolutionRepo := postgres.NewResolutionRepository(s.db)
	voteRepo := postgres.NewVoteRepository(s.db)

	// Services
	mailer := notify.NewLogMailer()
	broadcaster := notify.NewLogBroadcaster()
	verificationService := services.NewVerificationService(verificationRepo, shareholderRepo, meetingRepo, mailer, s.config)
	eligibilityService := services.NewEligibilityService(verificationRepo, registrationRepo, attendanceRepo)
	votingService := services.NewVotingService(eligibilityService, resolutionRepo, voteRepo, broadcaster)

	// Handlers
	authenticator := auth.NewAuthenticator(s.config)
	authHandler := handlers.NewAuthHandler(authenticator)
	verificationHandler := handlers.NewVerificationHandler(verificationService)
	voteHandler := handlers.NewVoteHandler(votingService, voteRepo)
	meetingHandler := handlers.NewMeetingHandler(meetingRepo, s.meetingClock)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceRepo, s.attendanceClock)
	resolutionHandler := handlers.NewResolutionHandler(resolutionRepo)
	shareholderHandler := handlers.NewShareholderHandler(shareholderRepo, registrationRepo)

	// Health check
	router.GET("/ping", func(c *gin.Context) {
		if err := postgres.HealthCheck(s.db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Public API: the verification code is the shareholder's capability
	api := router.Group("/api")
	{
		api.POST("/verification/verify", verificationHandler.Verify)

		api.POST("/votes", voteHandler.Cast)
		api.POST("/votes/batch", voteHandler.CastBatch)
		api.GET("/votes/resolution/:id/results", voteHandler.Results)

		api.GET("/meetings/:id/status", meetingHandler.Status)
		api.GET("/meetings/:id/resolutions", resolutionHandler.ListByMeeting)
		api.GET("/resolutions/:id", resolutionHandler.Get)
	}

	// Administrative API behind the JWT guard
	admin := router.Group("/api/admin")
	admin.POST("/login", authHandler.Login)
	admin.Use(authenticator.RequireAdmin())
	{
		admin.POST("/verification/batch", verificationHandler.IssueBatch)
		admin.POST("/verification/:id/revoke", verificationHandler.Revoke)

		admin.GET("/votes/resolution/:id", voteHandler.ListByResolution)
		admin.DELETE("/votes/:id", voteHandler.Delete)

		admin.POST("/meetings", meetingHandler.Create)
		admin.POST("/meetings/auto-update-status", meetingHandler.AutoUpdateStatus)

		admin.POST("/shareholders", shareholderHandler.Create)
		admin.PATCH("/registrations/:id/status", shareholderHandler.UpdateRegistrationStatus)

		admin.POST("/resolutions", resolutionHandler.Create)

		admin.POST("/auto-checkout/run", attendanceHandler.RunAutoCheckout)
		admin.POST("/auto-checkout/meeting/:id", attendanceHandler.RunAutoCheckoutForMeeting)
		admin.GET("/auto-checkout/expiring/:meetingId", attendanceHandler.ExpiringAttendances)
		admin.POST("/attendance/:id/checkout", attendanceHandler.Checkout)

		if s.documents != nil {
			documentHandler := handlers.NewDocumentHandler(s.documents)
			admin.POST("/meetings/:id/documents", documentHandler.Upload)
			admin.GET("/meetings/:id/documents", documentHandler.List)
			admin.GET("/meetings/:id/documents/:name", documentHandler.Download)
			admin.DELETE("/meetings/:id/documents/:name", documentHandler.Delete)
		}
	}

	return router
}
