package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/meeting"
	"github.com/quorumdesk/agm-api/internal/logger"
)

// PostgresMeetingRepository implements MeetingRepository using GORM
type PostgresMeetingRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewMeetingRepository creates a new PostgreSQL meeting repository
func NewMeetingRepository(db *gorm.DB) *PostgresMeetingRepository {
	return &PostgresMeetingRepository{
		db:  db,
		log: logger.Repository("meeting"),
	}
}

func (r *PostgresMeetingRepository) Create(m *meeting.Meeting) error {
	r.log.Debug("creating new meeting", "meeting_id", m.ID, "title", m.Title)

	if err := m.Validate(); err != nil {
		r.log.Error("meeting validation failed", "error", err, "meeting_id", m.ID)
		return fmt.Errorf("meeting validation failed: %w", err)
	}

	if err := r.db.Create(m).Error; err != nil {
		r.log.Error("failed to create meeting", "error", err, "meeting_id", m.ID)
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	r.log.Info("meeting created successfully", "meeting_id", m.ID, "title", m.Title)
	return nil
}

func (r *PostgresMeetingRepository) GetByID(id string) (*meeting.Meeting, error) {
	r.log.Debug("retrieving meeting by ID", "meeting_id", id)

	meetingID, err := uuid.Parse(id)
	if err != nil {
		r.log.Error("invalid meeting ID format", "meeting_id", id, "error", err)
		return nil, fmt.Errorf("invalid meeting ID format: %w", err)
	}

	var m meeting.Meeting
	if err := r.db.Preload("Settings").First(&m, "id = ?", meetingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("meeting not found", "meeting_id", id)
			return nil, fmt.Errorf("meeting %s: %w", id, common.ErrNotFound)
		}
		r.log.Error("failed to retrieve meeting", "meeting_id", id, "error", err)
		return nil, fmt.Errorf("failed to retrieve meeting: %w", err)
	}

	return &m, nil
}

func (r *PostgresMeetingRepository) ListByStatuses(statuses ...meeting.Status) ([]*meeting.Meeting, error) {
	r.log.Debug("listing meetings by statuses", "statuses", statuses)

	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = s.String()
	}

	var meetings []*meeting.Meeting
	if err := r.db.Preload("Settings").Where("status IN ?", values).Find(&meetings).Error; err != nil {
		r.log.Error("failed to list meetings by statuses", "error", err)
		return nil, fmt.Errorf("failed to list meetings by statuses: %w", err)
	}

	r.log.Debug("meetings listed successfully", "count", len(meetings))
	return meetings, nil
}

func (r *PostgresMeetingRepository) ListWithDurationSetting() ([]*meeting.Meeting, error) {
	r.log.Debug("listing meetings with a duration setting")

	var meetings []*meeting.Meeting
	err := r.db.Preload("Settings").
		Joins("JOIN meeting_settings ON meeting_settings.meeting_id = meetings.id AND meeting_settings.key = ?", meeting.SettingMeetingDuration).
		Find(&meetings).Error
	if err != nil {
		r.log.Error("failed to list meetings with duration setting", "error", err)
		return nil, fmt.Errorf("failed to list meetings with duration setting: %w", err)
	}

	r.log.Debug("meetings with duration setting listed", "count", len(meetings))
	return meetings, nil
}

// UpdateStatusIf performs the conditional status transition used by the
// meeting phase sweep. The WHERE clause asserts the pre-state so re-running
// the sweep, or racing another sweep, is a no-op rather than a double write.
func (r *PostgresMeetingRepository) UpdateStatusIf(id uuid.UUID, from, to meeting.Status) (bool, error) {
	r.log.Debug("updating meeting status", "meeting_id", id, "from", from, "to", to)

	result := r.db.Model(&meeting.Meeting{}).
		Where("id = ? AND status = ?", id, from.String()).
		Update("status", to)
	if result.Error != nil {
		r.log.Error("failed to update meeting status", "meeting_id", id, "error", result.Error)
		return false, fmt.Errorf("failed to update meeting status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		r.log.Debug("meeting status unchanged, pre-state no longer matches", "meeting_id", id, "from", from)
		return false, nil
	}

	r.log.Info("meeting status updated", "meeting_id", id, "from", from.String(), "to", to.String())
	return true, nil
}

func (r *PostgresMeetingRepository) GetDuration(meetingID uuid.UUID) (time.Duration, bool, error) {
	var setting meeting.Setting
	err := r.db.Where("meeting_id = ? AND key = ?", meetingID, meeting.SettingMeetingDuration).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		r.log.Error("failed to retrieve meeting duration setting", "meeting_id", meetingID, "error", err)
		return 0, false, fmt.Errorf("failed to retrieve meeting duration setting: %w", err)
	}

	duration, err := meeting.ParseDuration(setting.Value)
	if err != nil {
		return 0, true, err
	}
	return duration, true, nil
}

func (r *PostgresMeetingRepository) SetSetting(meetingID uuid.UUID, key, value string) error {
	r.log.Debug("setting meeting configuration", "meeting_id", meetingID, "key", key)

	setting := meeting.Setting{
		MeetingID: meetingID,
		Key:       key,
		Value:     value,
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&setting).Error
	if err != nil {
		r.log.Error("failed to set meeting configuration", "meeting_id", meetingID, "key", key, "error", err)
		return fmt.Errorf("failed to set meeting configuration: %w", err)
	}

	r.log.Info("meeting configuration set", "meeting_id", meetingID, "key", key, "value", value)
	return nil
}
