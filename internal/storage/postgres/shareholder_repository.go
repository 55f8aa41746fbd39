package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/shareholder"
	"github.com/quorumdesk/agm-api/internal/logger"
)

// PostgresShareholderRepository implements ShareholderRepository using GORM
type PostgresShareholderRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewShareholderRepository creates a new PostgreSQL shareholder repository
func NewShareholderRepository(db *gorm.DB) *PostgresShareholderRepository {
	return &PostgresShareholderRepository{
		db:  db,
		log: logger.Repository("shareholder"),
	}
}

func (r *PostgresShareholderRepository) Create(s *shareholder.Shareholder) error {
	r.log.Debug("creating new shareholder", "shareholder_id", s.ID, "email", s.Email)

	if err := r.db.Create(s).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("shareholder email already registered", "email", s.Email)
			return fmt.Errorf("shareholder with email %s: %w", s.Email, common.ErrConflict)
		}
		r.log.Error("failed to create shareholder", "error", err, "shareholder_id", s.ID)
		return fmt.Errorf("failed to create shareholder: %w", err)
	}

	r.log.Info("shareholder created successfully", "shareholder_id", s.ID)
	return nil
}

func (r *PostgresShareholderRepository) GetByID(id string) (*shareholder.Shareholder, error) {
	r.log.Debug("retrieving shareholder by ID", "shareholder_id", id)

	shareholderID, err := uuid.Parse(id)
	if err != nil {
		r.log.Error("invalid shareholder ID format", "shareholder_id", id, "error", err)
		return nil, fmt.Errorf("invalid shareholder ID format: %w", err)
	}

	var s shareholder.Shareholder
	if err := r.db.First(&s, "id = ?", shareholderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("shareholder not found", "shareholder_id", id)
			return nil, fmt.Errorf("shareholder %s: %w", id, common.ErrNotFound)
		}
		r.log.Error("failed to retrieve shareholder", "shareholder_id", id, "error", err)
		return nil, fmt.Errorf("failed to retrieve shareholder: %w", err)
	}

	return &s, nil
}

func (r *PostgresShareholderRepository) GetByEmail(email string) (*shareholder.Shareholder, error) {
	r.log.Debug("retrieving shareholder by email", "email", email)

	var s shareholder.Shareholder
	if err := r.db.First(&s, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("shareholder with email %s: %w", email, common.ErrNotFound)
		}
		r.log.Error("failed to retrieve shareholder by email", "email", email, "error", err)
		return nil, fmt.Errorf("failed to retrieve shareholder by email: %w", err)
	}

	return &s, nil
}

// PostgresRegistrationRepository implements RegistrationRepository using GORM
type PostgresRegistrationRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewRegistrationRepository creates a new PostgreSQL registration repository
func NewRegistrationRepository(db *gorm.DB) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{
		db:  db,
		log: logger.Repository("registration"),
	}
}

func (r *PostgresRegistrationRepository) Create(reg *shareholder.Registration) error {
	r.log.Debug("creating registration", "meeting_id", reg.MeetingID, "shareholder_id", reg.ShareholderID)

	if err := reg.Validate(); err != nil {
		r.log.Error("registration validation failed", "error", err)
		return fmt.Errorf("registration validation failed: %w", err)
	}

	if err := r.db.Create(reg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("registration already exists", "meeting_id", reg.MeetingID, "shareholder_id", reg.ShareholderID)
			return fmt.Errorf("registration for this meeting and shareholder: %w", common.ErrConflict)
		}
		r.log.Error("failed to create registration", "error", err)
		return fmt.Errorf("failed to create registration: %w", err)
	}

	r.log.Info("registration created successfully", "registration_id", reg.ID,
		"meeting_id", reg.MeetingID, "shareholder_id", reg.ShareholderID)
	return nil
}

func (r *PostgresRegistrationRepository) GetByMeetingAndShareholder(meetingID, shareholderID uuid.UUID) (*shareholder.Registration, error) {
	var reg shareholder.Registration
	err := r.db.Preload("Shareholder").
		Where("meeting_id = ? AND shareholder_id = ?", meetingID, shareholderID).
		First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("registration: %w", common.ErrNotFound)
		}
		r.log.Error("failed to retrieve registration", "meeting_id", meetingID, "shareholder_id", shareholderID, "error", err)
		return nil, fmt.Errorf("failed to retrieve registration: %w", err)
	}

	return &reg, nil
}

func (r *PostgresRegistrationRepository) UpdateStatus(id uuid.UUID, status shareholder.RegistrationStatus) error {
	r.log.Debug("updating registration status", "registration_id", id, "status", status)

	result := r.db.Model(&shareholder.Registration{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		r.log.Error("failed to update registration status", "registration_id", id, "error", result.Error)
		return fmt.Errorf("failed to update registration status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("registration %s: %w", id, common.ErrNotFound)
	}

	r.log.Info("registration status updated", "registration_id", id, "status", status.String())
	return nil
}

// PostgresAttendanceRepository implements AttendanceRepository using GORM
type PostgresAttendanceRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository
func NewAttendanceRepository(db *gorm.DB) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{
		db:  db,
		log: logger.Repository("attendance"),
	}
}

func (r *PostgresAttendanceRepository) Create(a *shareholder.Attendance) error {
	r.log.Debug("creating attendance", "meeting_id", a.MeetingID, "shareholder_id", a.ShareholderID)

	if err := r.db.Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("attendance already exists", "meeting_id", a.MeetingID, "shareholder_id", a.ShareholderID)
			return fmt.Errorf("attendance for this meeting and shareholder: %w", common.ErrConflict)
		}
		r.log.Error("failed to create attendance", "error", err)
		return fmt.Errorf("failed to create attendance: %w", err)
	}

	r.log.Info("attendance created successfully", "attendance_id", a.ID,
		"meeting_id", a.MeetingID, "shareholder_id", a.ShareholderID)
	return nil
}

func (r *PostgresAttendanceRepository) GetByMeetingAndShareholder(meetingID, shareholderID uuid.UUID) (*shareholder.Attendance, error) {
	var a shareholder.Attendance
	err := r.db.Where("meeting_id = ? AND shareholder_id = ?", meetingID, shareholderID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attendance: %w", common.ErrNotFound)
		}
		r.log.Error("failed to retrieve attendance", "meeting_id", meetingID, "shareholder_id", shareholderID, "error", err)
		return nil, fmt.Errorf("failed to retrieve attendance: %w", err)
	}

	return &a, nil
}

func (r *PostgresAttendanceRepository) ListOpenByMeeting(meetingID uuid.UUID) ([]*shareholder.Attendance, error) {
	r.log.Debug("listing open attendances", "meeting_id", meetingID)

	var attendances []*shareholder.Attendance
	err := r.db.Preload("Shareholder").
		Where("meeting_id = ? AND checkout_time IS NULL", meetingID).
		Order("checkin_time ASC").
		Find(&attendances).Error
	if err != nil {
		r.log.Error("failed to list open attendances", "meeting_id", meetingID, "error", err)
		return nil, fmt.Errorf("failed to list open attendances: %w", err)
	}

	r.log.Debug("open attendances listed", "meeting_id", meetingID, "count", len(attendances))
	return attendances, nil
}

// Checkout closes an open attendance. The checkout_time IS NULL predicate
// keeps the null -> non-null transition single-shot under races between the
// expiry sweep and an explicit checkout.
func (r *PostgresAttendanceRepository) Checkout(id uuid.UUID, at time.Time, note string) (bool, error) {
	r.log.Debug("checking out attendance", "attendance_id", id)

	result := r.db.Model(&shareholder.Attendance{}).
		Where("id = ? AND checkout_time IS NULL", id).
		Updates(map[string]interface{}{
			"checkout_time": at,
			"checkout_note": note,
		})
	if result.Error != nil {
		r.log.Error("failed to checkout attendance", "attendance_id", id, "error", result.Error)
		return false, fmt.Errorf("failed to checkout attendance: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		r.log.Debug("attendance already checked out", "attendance_id", id)
		return false, nil
	}

	r.log.Info("attendance checked out", "attendance_id", id, "checkout_time", at, "note", note)
	return true, nil
}
