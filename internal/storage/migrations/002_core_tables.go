package migrations

import (
	"gorm.io/gorm"
)

// migration002Up creates the core tables from the domain models
func migration002Up(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

// migration002Down drops the core tables in reverse dependency order
func migration002Down(db *gorm.DB) error {
	statements := []string{
		`DROP TABLE IF EXISTS votes`,
		`DROP TABLE IF EXISTS resolution_candidates`,
		`DROP TABLE IF EXISTS resolution_options`,
		`DROP TABLE IF EXISTS resolutions`,
		`DROP TABLE IF EXISTS verification_logs`,
		`DROP TABLE IF EXISTS verification_links`,
		`DROP TABLE IF EXISTS attendances`,
		`DROP TABLE IF EXISTS registrations`,
		`DROP TABLE IF EXISTS meeting_settings`,
		`DROP TABLE IF EXISTS meetings`,
		`DROP TABLE IF EXISTS shareholders`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
