package migrations

import (
	"gorm.io/gorm"
)

// migration001Up creates PostgreSQL extensions and enum types
func migration001Up(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}

	statements := []string{
		`DO $$ BEGIN
            CREATE TYPE meeting_status AS ENUM ('draft', 'scheduled', 'ongoing', 'completed', 'cancelled');
        EXCEPTION
            WHEN duplicate_object THEN null;
        END $$`,
		`DO $$ BEGIN
            CREATE TYPE registration_status AS ENUM ('pending', 'approved', 'rejected', 'cancelled');
        EXCEPTION
            WHEN duplicate_object THEN null;
        END $$`,
		`DO $$ BEGIN
            CREATE TYPE verification_type AS ENUM ('registration', 'attendance');
        EXCEPTION
            WHEN duplicate_object THEN null;
        END $$`,
		`DO $$ BEGIN
            CREATE TYPE voting_method AS ENUM ('yes_no', 'multiple_choice', 'ranking');
        EXCEPTION
            WHEN duplicate_object THEN null;
        END $$`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}

// migration001Down drops the enum types
func migration001Down(db *gorm.DB) error {
	statements := []string{
		`DROP TYPE IF EXISTS voting_method`,
		`DROP TYPE IF EXISTS verification_type`,
		`DROP TYPE IF EXISTS registration_status`,
		`DROP TYPE IF EXISTS meeting_status`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
