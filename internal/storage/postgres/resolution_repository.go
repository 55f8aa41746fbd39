package postgres

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/resolution"
	"github.com/quorumdesk/agm-api/internal/logger"
)

// PostgresResolutionRepository implements ResolutionRepository using GORM
type PostgresResolutionRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewResolutionRepository creates a new PostgreSQL resolution repository
func NewResolutionRepository(db *gorm.DB) *PostgresResolutionRepository {
	return &PostgresResolutionRepository{
		db:  db,
		log: logger.Repository("resolution"),
	}
}

func (r *PostgresResolutionRepository) Create(res *resolution.Resolution) error {
	r.log.Debug("creating resolution", "resolution_id", res.ID, "meeting_id", res.MeetingID, "method", res.VotingMethod)

	if err := res.Validate(); err != nil {
		r.log.Error("resolution validation failed", "error", err, "resolution_id", res.ID)
		return fmt.Errorf("resolution validation failed: %w", err)
	}

	if err := r.db.Create(res).Error; err != nil {
		r.log.Error("failed to create resolution", "error", err, "resolution_id", res.ID)
		return fmt.Errorf("failed to create resolution: %w", err)
	}

	r.log.Info("resolution created successfully", "resolution_id", res.ID, "method", res.VotingMethod.String())
	return nil
}

func (r *PostgresResolutionRepository) GetByID(id string) (*resolution.Resolution, error) {
	r.log.Debug("retrieving resolution by ID", "resolution_id", id)

	resolutionID, err := uuid.Parse(id)
	if err != nil {
		r.log.Error("invalid resolution ID format", "resolution_id", id, "error", err)
		return nil, fmt.Errorf("invalid resolution ID format: %w", err)
	}

	var res resolution.Resolution
	if err := r.db.Preload("Options").Preload("Candidates").First(&res, "id = ?", resolutionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("resolution not found", "resolution_id", id)
			return nil, fmt.Errorf("resolution %s: %w", id, common.ErrNotFound)
		}
		r.log.Error("failed to retrieve resolution", "resolution_id", id, "error", err)
		return nil, fmt.Errorf("failed to retrieve resolution: %w", err)
	}

	return &res, nil
}

func (r *PostgresResolutionRepository) ListByMeeting(meetingID uuid.UUID) ([]*resolution.Resolution, error) {
	r.log.Debug("listing resolutions by meeting", "meeting_id", meetingID)

	var resolutions []*resolution.Resolution
	err := r.db.Preload("Options").Preload("Candidates").
		Where("meeting_id = ?", meetingID).
		Order("created_at ASC").
		Find(&resolutions).Error
	if err != nil {
		r.log.Error("failed to list resolutions by meeting", "meeting_id", meetingID, "error", err)
		return nil, fmt.Errorf("failed to list resolutions by meeting: %w", err)
	}

	r.log.Debug("resolutions listed successfully", "meeting_id", meetingID, "count", len(resolutions))
	return resolutions, nil
}
