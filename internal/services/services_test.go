package services

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
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

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

// gateFixture seeds a shareholder part-way through the eligibility gate.
// Each test advances or breaks exactly the step it exercises.
type gateFixture struct {
	db *gorm.DB

	Meeting     *meeting.Meeting
	Shareholder *shareholder.Shareholder
	Link        *verification.Link
	Resolution  *resolution.Resolution

	Eligibility *EligibilityService
	Voting      *VotingService
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastVoteCast(uuid.UUID, int64) {}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	db := openTestDB(t)

	m := meeting.NewMeeting("Annual General Meeting 2026", "", time.Now().Add(-time.Hour))
	m.Status = meeting.StatusOngoing
	require.NoError(t, db.Create(m).Error)

	holder := &shareholder.Shareholder{
		ID:          uuid.New(),
		Name:        "Ada Example",
		Email:       uuid.NewString() + "@example.com",
		TotalShares: 100,
	}
	require.NoError(t, db.Create(holder).Error)

	link, err := verification.NewLink(m.ID, holder.ID, verification.TypeAttendance, 72*time.Hour, 16)
	require.NoError(t, err)
	require.NoError(t, db.Create(link).Error)

	res := &resolution.Resolution{
		ID:           uuid.New(),
		MeetingID:    m.ID,
		Title:        "Approve the dividend",
		VotingMethod: resolution.MethodYesNo,
		MaxChoices:   1,
		IsActive:     true,
	}
	require.NoError(t, db.Create(res).Error)

	verificationRepo := postgres.NewVerificationRepository(db)
	registrationRepo := postgres.NewRegistrationRepository(db)
	attendanceRepo := postgres.NewAttendanceRepository(db)
	resolutionRepo := postgres.NewResolutionRepository(db)
	voteRepo := postgres.NewVoteRepository(db)

	eligibility := NewEligibilityService(verificationRepo, registrationRepo, attendanceRepo)
	voting := NewVotingService(eligibility, resolutionRepo, voteRepo, nopBroadcaster{})

	return &gateFixture{
		db:          db,
		Meeting:     m,
		Shareholder: holder,
		Link:        link,
		Resolution:  res,
		Eligibility: eligibility,
		Voting:      voting,
	}
}

// redeemLink marks the link as redeemed
func (fx *gateFixture) redeemLink(t *testing.T) {
	t.Helper()

	now := time.Now()
	require.NoError(t, fx.db.Model(&verification.Link{}).
		Where("id = ?", fx.Link.ID).
		Updates(map[string]interface{}{"is_used": true, "used_at": now}).Error)
}

// register creates a registration with the given status
func (fx *gateFixture) register(t *testing.T, status shareholder.RegistrationStatus) *shareholder.Registration {
	t.Helper()

	reg := shareholder.NewRegistration(fx.Meeting.ID, fx.Shareholder.ID, fx.Shareholder.TotalShares)
	reg.Status = status
	require.NoError(t, fx.db.Create(reg).Error)
	return reg
}

// checkIn creates an open attendance
func (fx *gateFixture) checkIn(t *testing.T) *shareholder.Attendance {
	t.Helper()

	att := shareholder.NewAttendance(fx.Meeting.ID, fx.Shareholder.ID, time.Now())
	require.NoError(t, fx.db.Create(att).Error)
	return att
}

// makeEligible walks the shareholder through the whole gate
func (fx *gateFixture) makeEligible(t *testing.T) {
	t.Helper()

	fx.redeemLink(t)
	fx.register(t, shareholder.RegistrationApproved)
	fx.checkIn(t)
}
