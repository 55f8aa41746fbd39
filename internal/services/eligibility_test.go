package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/shareholder"
)

func requireNotEligible(t *testing.T, err error, step string) {
	t.Helper()

	require.Error(t, err)
	ne, ok := common.IsNotEligible(err)
	require.True(t, ok, "expected a NotEligibleError, got %v", err)
	assert.Equal(t, step, ne.Step)
}

func TestCheckUnknownCodeFailsVerificationStep(t *testing.T) {
	fx := newGateFixture(t)

	_, err := fx.Eligibility.Check("nosuchcode")
	requireNotEligible(t, err, common.StepVerification)
}

func TestCheckUnredeemedLinkFailsVerificationStep(t *testing.T) {
	fx := newGateFixture(t)
	fx.register(t, shareholder.RegistrationApproved)
	fx.checkIn(t)

	// Link exists but was never redeemed.
	_, err := fx.Eligibility.Check(fx.Link.Code)
	requireNotEligible(t, err, common.StepVerification)
}

func TestCheckRevokedLinkFailsVerificationStep(t *testing.T) {
	fx := newGateFixture(t)
	fx.register(t, shareholder.RegistrationApproved)
	fx.checkIn(t)

	// Revocation flips is_used without a used_at; it must not pass as a
	// redemption.
	require.NoError(t, fx.db.Model(fx.Link).
		Updates(map[string]interface{}{"is_used": true, "expires_at": time.Now()}).Error)

	_, err := fx.Eligibility.Check(fx.Link.Code)
	requireNotEligible(t, err, common.StepVerification)
}

func TestCheckLapsedLinkFailsVerificationStep(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	// Redemption happened in time, but the link has since lapsed. A redeemed
	// link only stays an authorization while it is unexpired.
	require.NoError(t, fx.db.Model(fx.Link).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err := fx.Eligibility.Check(fx.Link.Code)
	requireNotEligible(t, err, common.StepVerification)
}

func TestCheckMissingRegistrationFailsRegistrationStep(t *testing.T) {
	fx := newGateFixture(t)
	fx.redeemLink(t)
	fx.checkIn(t)

	_, err := fx.Eligibility.Check(fx.Link.Code)
	requireNotEligible(t, err, common.StepRegistration)
}

func TestCheckPendingRegistrationFailsApprovalStep(t *testing.T) {
	fx := newGateFixture(t)
	fx.redeemLink(t)
	fx.register(t, shareholder.RegistrationPending)
	fx.checkIn(t)

	_, err := fx.Eligibility.Check(fx.Link.Code)
	requireNotEligible(t, err, common.StepApproval)
}

func TestCheckRejectedRegistrationFailsApprovalStep(t *testing.T) {
	fx := newGateFixture(t)
	fx.redeemLink(t)
	fx.register(t, shareholder.RegistrationRejected)
	fx.checkIn(t)

	_, err := fx.Eligibility.Check(fx.Link.Code)
	requireNotEligible(t, err, common.StepApproval)
}

func TestCheckMissingAttendanceFailsAttendanceStep(t *testing.T) {
	fx := newGateFixture(t)
	fx.redeemLink(t)
	fx.register(t, shareholder.RegistrationApproved)

	_, err := fx.Eligibility.Check(fx.Link.Code)
	requireNotEligible(t, err, common.StepAttendance)
}

func TestCheckClosedAttendanceFailsAttendanceStep(t *testing.T) {
	fx := newGateFixture(t)
	fx.redeemLink(t)
	fx.register(t, shareholder.RegistrationApproved)
	att := fx.checkIn(t)

	now := time.Now()
	require.NoError(t, fx.db.Model(att).Update("checkout_time", now).Error)

	_, err := fx.Eligibility.Check(fx.Link.Code)
	requireNotEligible(t, err, common.StepAttendance)
}

func TestCheckFullGatePasses(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	claim, err := fx.Eligibility.Check(fx.Link.Code)
	require.NoError(t, err)

	assert.Equal(t, fx.Shareholder.ID, claim.Link.ShareholderID)
	assert.Equal(t, shareholder.RegistrationApproved, claim.Registration.Status)
	assert.Equal(t, fx.Shareholder.TotalShares, claim.Registration.SharesRegistered)
	assert.True(t, claim.Attendance.IsPresent())
}
