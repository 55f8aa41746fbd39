package postgres

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quorumdesk/agm-api/internal/domain/meeting"
	"github.com/quorumdesk/agm-api/internal/domain/resolution"
	"github.com/quorumdesk/agm-api/internal/domain/shareholder"
	"github.com/quorumdesk/agm-api/internal/domain/verification"
	"github.com/quorumdesk/agm-api/internal/storage/migrations"
)

// openTestDB creates an isolated in-memory database with the full schema.
// TranslateError matches the production connection so unique violations
// surface as gorm.ErrDuplicatedKey here too.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(migrations.AllModels()...))
	return db
}

// seedVotingFixture creates a meeting, an eligible shareholder and an active
// yes/no resolution, returning the pieces tests need most often.
type votingFixture struct {
	Meeting      *meeting.Meeting
	Shareholder  *shareholder.Shareholder
	Registration *shareholder.Registration
	Attendance   *shareholder.Attendance
	Link         *verification.Link
	Resolution   *resolution.Resolution
}

func seedVotingFixture(t *testing.T, db *gorm.DB, shares int64) *votingFixture {
	t.Helper()

	m := meeting.NewMeeting("Annual General Meeting 2026", "", time.Now().Add(-time.Hour))
	m.Status = meeting.StatusOngoing
	require.NoError(t, db.Create(m).Error)

	holder := &shareholder.Shareholder{
		ID:          uuid.New(),
		Name:        "Ada Example",
		Email:       uuid.NewString() + "@example.com",
		TotalShares: shares,
	}
	require.NoError(t, db.Create(holder).Error)

	reg := shareholder.NewRegistration(m.ID, holder.ID, shares)
	reg.Status = shareholder.RegistrationApproved
	require.NoError(t, db.Create(reg).Error)

	att := shareholder.NewAttendance(m.ID, holder.ID, time.Now())
	require.NoError(t, db.Create(att).Error)

	link, err := verification.NewLink(m.ID, holder.ID, verification.TypeAttendance, 72*time.Hour, 16)
	require.NoError(t, err)
	now := time.Now()
	link.IsUsed = true
	link.UsedAt = &now
	require.NoError(t, db.Create(link).Error)

	res := &resolution.Resolution{
		ID:           uuid.New(),
		MeetingID:    m.ID,
		Title:        "Approve the annual accounts",
		VotingMethod: resolution.MethodYesNo,
		MaxChoices:   1,
		IsActive:     true,
	}
	require.NoError(t, db.Create(res).Error)

	return &votingFixture{
		Meeting:      m,
		Shareholder:  holder,
		Registration: reg,
		Attendance:   att,
		Link:         link,
		Resolution:   res,
	}
}
