package migrations

import (
	"gorm.io/gorm"
)

// migration003Up creates the indexes the hot paths depend on
func migration003Up(db *gorm.DB) error {
	statements := []string{
		// At-most-once vote guard: one ballot per shareholder per resolution.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_vote_resolution_shareholder
            ON votes (resolution_id, shareholder_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_verification_links_code
            ON verification_links (code)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_registration_meeting_shareholder
            ON registrations (meeting_id, shareholder_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_meeting_shareholder
            ON attendances (meeting_id, shareholder_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_meeting_setting_key
            ON meeting_settings (meeting_id, key)`,
		`CREATE INDEX IF NOT EXISTS idx_verification_links_expires_at
            ON verification_links (expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_verification_logs_verification_id
            ON verification_logs (verification_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attendances_checkout_time
            ON attendances (checkout_time)`,
		`CREATE INDEX IF NOT EXISTS idx_meetings_status
            ON meetings (status)`,
		`CREATE INDEX IF NOT EXISTS idx_resolutions_meeting_id
            ON resolutions (meeting_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_resolution_id
            ON votes (resolution_id)`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}

// migration003Down drops the indexes
func migration003Down(db *gorm.DB) error {
	statements := []string{
		`DROP INDEX IF EXISTS idx_votes_resolution_id`,
		`DROP INDEX IF EXISTS idx_resolutions_meeting_id`,
		`DROP INDEX IF EXISTS idx_meetings_status`,
		`DROP INDEX IF EXISTS idx_attendances_checkout_time`,
		`DROP INDEX IF EXISTS idx_verification_logs_verification_id`,
		`DROP INDEX IF EXISTS idx_verification_links_expires_at`,
		`DROP INDEX IF EXISTS idx_meeting_setting_key`,
		`DROP INDEX IF EXISTS idx_attendance_meeting_shareholder`,
		`DROP INDEX IF EXISTS idx_registration_meeting_shareholder`,
		`DROP INDEX IF EXISTS idx_verification_links_code`,
		`DROP INDEX IF EXISTS idx_vote_resolution_shareholder`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
