package migrations

import (
	"gorm.io/gorm"
)

// migration004Up adds server-side defaults and integrity checks
func migration004Up(db *gorm.DB) error {
	statements := []string{
		`ALTER TABLE shareholders ALTER COLUMN id SET DEFAULT uuid_generate_v4()`,
		`ALTER TABLE meetings ALTER COLUMN id SET DEFAULT uuid_generate_v4()`,
		`ALTER TABLE meeting_settings ALTER COLUMN id SET DEFAULT uuid_generate_v4()`,
		`ALTER TABLE registrations ALTER COLUMN id SET DEFAULT uuid_generate_v4()`,
		`ALTER TABLE attendances ALTER COLUMN id SET DEFAULT uuid_generate_v4()`,
		`ALTER TABLE verification_links ALTER COLUMN id SET DEFAULT uuid_generate_v4()`,
		`ALTER TABLE verification_logs ALTER COLUMN id SET DEFAULT uuid_generate_v4()`,
		`ALTER TABLE resolutions ALTER COLUMN id SET DEFAULT uuid_generate_v4()`,
		`ALTER TABLE resolution_options ALTER COLUMN id SET DEFAULT uuid_generate_v4()`,
		`ALTER TABLE resolution_candidates ALTER COLUMN id SET DEFAULT uuid_generate_v4()`,
		`ALTER TABLE votes ALTER COLUMN id SET DEFAULT uuid_generate_v4()`,

		`DO $$ BEGIN
            ALTER TABLE shareholders ADD CONSTRAINT chk_shareholders_total_shares
                CHECK (total_shares > 0);
        EXCEPTION
            WHEN duplicate_object THEN null;
        END $$`,
		`DO $$ BEGIN
            ALTER TABLE registrations ADD CONSTRAINT chk_registrations_shares
                CHECK (shares_registered > 0);
        EXCEPTION
            WHEN duplicate_object THEN null;
        END $$`,
		`DO $$ BEGIN
            ALTER TABLE votes ADD CONSTRAINT chk_votes_shares_used
                CHECK (shares_used > 0);
        EXCEPTION
            WHEN duplicate_object THEN null;
        END $$`,
		`DO $$ BEGIN
            ALTER TABLE resolutions ADD CONSTRAINT chk_resolutions_counters
                CHECK (total_votes >= 0 AND yes_votes >= 0 AND no_votes >= 0 AND abstain_votes >= 0);
        EXCEPTION
            WHEN duplicate_object THEN null;
        END $$`,
		`DO $$ BEGIN
            ALTER TABLE attendances ADD CONSTRAINT chk_attendances_checkout_after_checkin
                CHECK (checkout_time IS NULL OR checkout_time >= checkin_time);
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

// migration004Down removes the defaults and checks
func migration004Down(db *gorm.DB) error {
	statements := []string{
		`ALTER TABLE attendances DROP CONSTRAINT IF EXISTS chk_attendances_checkout_after_checkin`,
		`ALTER TABLE resolutions DROP CONSTRAINT IF EXISTS chk_resolutions_counters`,
		`ALTER TABLE votes DROP CONSTRAINT IF EXISTS chk_votes_shares_used`,
		`ALTER TABLE registrations DROP CONSTRAINT IF EXISTS chk_registrations_shares`,
		`ALTER TABLE shareholders DROP CONSTRAINT IF EXISTS chk_shareholders_total_shares`,

		`ALTER TABLE votes ALTER COLUMN id DROP DEFAULT`,
		`ALTER TABLE resolution_candidates ALTER COLUMN id DROP DEFAULT`,
		`ALTER TABLE resolution_options ALTER COLUMN id DROP DEFAULT`,
		`ALTER TABLE resolutions ALTER COLUMN id DROP DEFAULT`,
		`ALTER TABLE verification_logs ALTER COLUMN id DROP DEFAULT`,
		`ALTER TABLE verification_links ALTER COLUMN id DROP DEFAULT`,
		`ALTER TABLE attendances ALTER COLUMN id DROP DEFAULT`,
		`ALTER TABLE registrations ALTER COLUMN id DROP DEFAULT`,
		`ALTER TABLE meeting_settings ALTER COLUMN id DROP DEFAULT`,
		`ALTER TABLE meetings ALTER COLUMN id DROP DEFAULT`,
		`ALTER TABLE shareholders ALTER COLUMN id DROP DEFAULT`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
