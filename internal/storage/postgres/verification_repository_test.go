package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/meeting"
	"github.com/quorumdesk/agm-api/internal/domain/shareholder"
	"github.com/quorumdesk/agm-api/internal/domain/verification"
)

func seedLink(t *testing.T, db *gorm.DB, linkType verification.LinkType, ttl time.Duration) (*verification.Link, *shareholder.Shareholder) {
	t.Helper()

	m := meeting.NewMeeting("Extraordinary General Meeting", "", time.Now().Add(time.Hour))
	m.Status = meeting.StatusScheduled
	require.NoError(t, db.Create(m).Error)

	holder := &shareholder.Shareholder{
		ID:          uuid.New(),
		Name:        "Grace Example",
		Email:       uuid.NewString() + "@example.com",
		TotalShares: 500,
	}
	require.NoError(t, db.Create(holder).Error)

	link, err := verification.NewLink(m.ID, holder.ID, linkType, ttl, 16)
	require.NoError(t, err)
	require.NoError(t, db.Create(link).Error)

	return link, holder
}

func TestRedeemRegistrationLinkCreatesPendingRegistration(t *testing.T) {
	db := openTestDB(t)
	repo := NewVerificationRepository(db)
	link, holder := seedLink(t, db, verification.TypeRegistration, 72*time.Hour)

	result, err := repo.Redeem(link, "203.0.113.7", "test-agent", time.Now())
	require.NoError(t, err)

	require.NotNil(t, result.Registration)
	assert.Equal(t, shareholder.RegistrationPending, result.Registration.Status)
	assert.Equal(t, holder.TotalShares, result.Registration.SharesRegistered)

	require.NotNil(t, result.Link)
	assert.True(t, result.Link.IsUsed)
	require.NotNil(t, result.Link.UsedAt)
	assert.Equal(t, "203.0.113.7", result.Link.UsedIP)
}

func TestRedeemAttendanceLinkChecksIn(t *testing.T) {
	db := openTestDB(t)
	repo := NewVerificationRepository(db)
	link, _ := seedLink(t, db, verification.TypeAttendance, 72*time.Hour)

	now := time.Now()
	result, err := repo.Redeem(link, "", "", now)
	require.NoError(t, err)

	require.NotNil(t, result.Attendance)
	assert.True(t, result.Created)
	assert.True(t, result.Attendance.IsPresent())
	assert.WithinDuration(t, now, result.Attendance.CheckinTime, time.Second)
}

func TestRedeemIsSingleUse(t *testing.T) {
	db := openTestDB(t)
	repo := NewVerificationRepository(db)
	link, _ := seedLink(t, db, verification.TypeRegistration, 72*time.Hour)

	_, err := repo.Redeem(link, "", "", time.Now())
	require.NoError(t, err)

	_, err = repo.Redeem(link, "", "", time.Now())
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestRedeemExpiredLink(t *testing.T) {
	db := openTestDB(t)
	repo := NewVerificationRepository(db)
	link, _ := seedLink(t, db, verification.TypeRegistration, 72*time.Hour)

	_, err := repo.Redeem(link, "", "", time.Now().Add(73*time.Hour))
	assert.ErrorIs(t, err, common.ErrExpired)

	// The failed redemption left the link unused.
	reloaded, err := repo.GetByID(link.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsUsed)
}

func TestRedeemDoesNotDuplicateExistingAttendance(t *testing.T) {
	db := openTestDB(t)
	repo := NewVerificationRepository(db)
	link, holder := seedLink(t, db, verification.TypeAttendance, 72*time.Hour)

	existing := shareholder.NewAttendance(link.MeetingID, holder.ID, time.Now().Add(-time.Hour))
	require.NoError(t, db.Create(existing).Error)

	result, err := repo.Redeem(link, "", "", time.Now())
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Equal(t, existing.ID, result.Attendance.ID)
}

func TestRedeemAppendsAuditLog(t *testing.T) {
	db := openTestDB(t)
	repo := NewVerificationRepository(db)
	link, _ := seedLink(t, db, verification.TypeRegistration, 72*time.Hour)

	_, err := repo.Redeem(link, "198.51.100.4", "agent", time.Now())
	require.NoError(t, err)

	var entries []verification.Log
	require.NoError(t, db.Where("verification_id = ?", link.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, verification.ActionRedeem, entries[0].Action)
	assert.True(t, entries[0].Success)
	assert.Equal(t, "198.51.100.4", entries[0].IP)
}

func TestRevokeUnusedLink(t *testing.T) {
	db := openTestDB(t)
	repo := NewVerificationRepository(db)
	link, _ := seedLink(t, db, verification.TypeRegistration, 72*time.Hour)

	require.NoError(t, repo.Revoke(link.ID, time.Now()))

	// A revoked link can never be redeemed.
	reloaded, err := repo.GetByID(link.ID)
	require.NoError(t, err)
	_, err = repo.Redeem(reloaded, "", "", time.Now())
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestRevokeUsedLinkFails(t *testing.T) {
	db := openTestDB(t)
	repo := NewVerificationRepository(db)
	link, _ := seedLink(t, db, verification.TypeRegistration, 72*time.Hour)

	_, err := repo.Redeem(link, "", "", time.Now())
	require.NoError(t, err)

	err = repo.Revoke(link.ID, time.Now())
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestRevokeUnknownLink(t *testing.T) {
	db := openTestDB(t)
	repo := NewVerificationRepository(db)

	err := repo.Revoke(uuid.New(), time.Now())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByCode(t *testing.T) {
	db := openTestDB(t)
	repo := NewVerificationRepository(db)
	link, _ := seedLink(t, db, verification.TypeRegistration, 72*time.Hour)

	found, err := repo.GetByCode(link.Code)
	require.NoError(t, err)
	assert.Equal(t, link.ID, found.ID)

	_, err = repo.GetByCode("nosuchcode")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
