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
	"github.com/quorumdesk/agm-api/internal/domain/verification"
	"github.com/quorumdesk/agm-api/internal/logger"
)

// PostgresVerificationRepository implements VerificationRepository using GORM
type PostgresVerificationRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewVerificationRepository creates a new PostgreSQL verification repository
func NewVerificationRepository(db *gorm.DB) *PostgresVerificationRepository {
	return &PostgresVerificationRepository{
		db:  db,
		log: logger.Repository("verification"),
	}
}

func (r *PostgresVerificationRepository) Create(link *verification.Link) error {
	r.log.Debug("creating verification link", "verification_id", link.ID,
		"meeting_id", link.MeetingID, "shareholder_id", link.ShareholderID, "type", link.Type)

	if err := link.Validate(); err != nil {
		r.log.Error("verification link validation failed", "error", err, "verification_id", link.ID)
		return fmt.Errorf("verification link validation failed: %w", err)
	}

	if err := r.db.Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("verification code collision", "verification_id", link.ID)
			return fmt.Errorf("verification code: %w", common.ErrConflict)
		}
		r.log.Error("failed to create verification link", "error", err, "verification_id", link.ID)
		return fmt.Errorf("failed to create verification link: %w", err)
	}

	r.log.Info("verification link created", "verification_id", link.ID, "type", link.Type.String())
	return nil
}

func (r *PostgresVerificationRepository) GetByCode(code string) (*verification.Link, error) {
	r.log.Debug("retrieving verification link by code")

	var link verification.Link
	if err := r.db.First(&link, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("verification code not found")
			return nil, fmt.Errorf("verification code: %w", common.ErrNotFound)
		}
		r.log.Error("failed to retrieve verification link by code", "error", err)
		return nil, fmt.Errorf("failed to retrieve verification link: %w", err)
	}

	return &link, nil
}

func (r *PostgresVerificationRepository) GetByID(id uuid.UUID) (*verification.Link, error) {
	var link verification.Link
	if err := r.db.First(&link, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("verification link %s: %w", id, common.ErrNotFound)
		}
		r.log.Error("failed to retrieve verification link", "verification_id", id, "error", err)
		return nil, fmt.Errorf("failed to retrieve verification link: %w", err)
	}

	return &link, nil
}

// Redeem flips the link to used and creates or confirms the associated
// registration or attendance row, all in one transaction. The conditional
// UPDATE on is_used is the serialization point: of two concurrent
// redemptions exactly one sees RowsAffected == 1.
func (r *PostgresVerificationRepository) Redeem(link *verification.Link, ip, device string, now time.Time) (*RedeemResult, error) {
	r.log.Debug("redeeming verification link", "verification_id", link.ID, "type", link.Type)

	result := &RedeemResult{}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&verification.Link{}).
			Where("id = ? AND is_used = ? AND expires_at > ?", link.ID, false, now).
			Updates(map[string]interface{}{
				"is_used":     true,
				"used_at":     now,
				"used_ip":     ip,
				"used_device": device,
			})
		if update.Error != nil {
			return fmt.Errorf("failed to mark verification link used: %w", update.Error)
		}

		if update.RowsAffected == 0 {
			// Lost the race or expired in between; reload to report why.
			var current verification.Link
			if err := tx.First(&current, "id = ?", link.ID).Error; err != nil {
				return fmt.Errorf("failed to reload verification link: %w", err)
			}
			if current.IsUsed {
				return fmt.Errorf("verification link already used: %w", common.ErrConflict)
			}
			return fmt.Errorf("verification link: %w", common.ErrExpired)
		}

		switch link.Type {
		case verification.TypeRegistration:
			reg, err := r.ensureRegistration(tx, link, now)
			if err != nil {
				return err
			}
			result.Registration = reg

		case verification.TypeAttendance:
			att, created, err := r.ensureAttendance(tx, link, now)
			if err != nil {
				return err
			}
			result.Attendance = att
			result.Created = created
		}

		entry := &verification.Log{
			VerificationID: link.ID,
			Action:         verification.ActionRedeem,
			IP:             ip,
			UserAgent:      device,
			Success:        true,
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to append verification log: %w", err)
		}

		var updated verification.Link
		if err := tx.First(&updated, "id = ?", link.ID).Error; err != nil {
			return fmt.Errorf("failed to reload redeemed link: %w", err)
		}
		result.Link = &updated

		return nil
	})
	if err != nil {
		r.log.Error("verification redemption failed", "verification_id", link.ID, "error", err)
		return nil, err
	}

	r.log.Info("verification link redeemed", "verification_id", link.ID, "type", link.Type.String())
	return result, nil
}

func (r *PostgresVerificationRepository) ensureRegistration(tx *gorm.DB, link *verification.Link, now time.Time) (*shareholder.Registration, error) {
	var reg shareholder.Registration
	err := tx.Where("meeting_id = ? AND shareholder_id = ?", link.MeetingID, link.ShareholderID).First(&reg).Error
	if err == nil {
		return &reg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up registration: %w", err)
	}

	var holder shareholder.Shareholder
	if err := tx.First(&holder, "id = ?", link.ShareholderID).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve shareholder for registration: %w", err)
	}

	newReg := shareholder.NewRegistration(link.MeetingID, link.ShareholderID, holder.TotalShares)
	newReg.CreatedAt = now
	if err := tx.Create(newReg).Error; err != nil {
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}
	return newReg, nil
}

func (r *PostgresVerificationRepository) ensureAttendance(tx *gorm.DB, link *verification.Link, now time.Time) (*shareholder.Attendance, bool, error) {
	var att shareholder.Attendance
	err := tx.Where("meeting_id = ? AND shareholder_id = ?", link.MeetingID, link.ShareholderID).First(&att).Error
	if err == nil {
		return &att, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up attendance: %w", err)
	}

	newAtt := shareholder.NewAttendance(link.MeetingID, link.ShareholderID, now)
	if err := tx.Create(newAtt).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create attendance: %w", err)
	}
	return newAtt, true, nil
}

// Revoke terminally disables an unused link. Setting is_used and pulling
// expires_at to now in one conditional update makes the code permanently
// unusable without it ever having granted access.
func (r *PostgresVerificationRepository) Revoke(id uuid.UUID, now time.Time) error {
	r.log.Debug("revoking verification link", "verification_id", id)

	result := r.db.Model(&verification.Link{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{
			"is_used":    true,
			"expires_at": now,
		})
	if result.Error != nil {
		r.log.Error("failed to revoke verification link", "verification_id", id, "error", result.Error)
		return fmt.Errorf("failed to revoke verification link: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var link verification.Link
		if err := r.db.First(&link, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("verification link %s: %w", id, common.ErrNotFound)
			}
			return fmt.Errorf("failed to reload verification link: %w", err)
		}
		r.log.Warn("attempted to revoke a used verification link", "verification_id", id)
		return fmt.Errorf("verification link already used: %w", common.ErrConflict)
	}

	r.log.Info("verification link revoked", "verification_id", id)
	return nil
}

func (r *PostgresVerificationRepository) AppendLog(entry *verification.Log) error {
	if err := r.db.Create(entry).Error; err != nil {
		r.log.Error("failed to append verification log", "verification_id", entry.VerificationID, "error", err)
		return fmt.Errorf("failed to append verification log: %w", err)
	}

	r.log.Debug("verification log appended", "verification_id", entry.VerificationID,
		"action", entry.Action, "success", entry.Success)
	return nil
}
