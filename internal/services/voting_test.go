package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/resolution"
)

func TestCastHappyPath(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	vote, err := fx.Voting.Cast(CastRequest{
		VerificationCode: fx.Link.Code,
		ResolutionID:     fx.Resolution.ID.String(),
		Ballot:           json.RawMessage(`"YES"`),
	})
	require.NoError(t, err)

	// Identity and share weight come from the gate, not the request.
	assert.Equal(t, fx.Shareholder.ID, vote.ShareholderID)
	assert.Equal(t, fx.Shareholder.TotalShares, vote.SharesUsed)
	assert.Equal(t, "YES", vote.VoteValue)

	var res resolution.Resolution
	require.NoError(t, fx.db.First(&res, "id = ?", fx.Resolution.ID).Error)
	assert.Equal(t, int64(100), res.YesVotes)
	assert.Equal(t, int64(1), res.TotalVotes)
}

func TestCastIneligibleShareholderNeverReachesTally(t *testing.T) {
	fx := newGateFixture(t)
	fx.redeemLink(t)
	// No registration: the gate stops the vote.

	_, err := fx.Voting.Cast(CastRequest{
		VerificationCode: fx.Link.Code,
		ResolutionID:     fx.Resolution.ID.String(),
		Ballot:           json.RawMessage(`"YES"`),
	})
	requireNotEligible(t, err, common.StepRegistration)

	var count int64
	require.NoError(t, fx.db.Model(&resolution.Vote{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCastInactiveResolution(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	require.NoError(t, fx.db.Model(fx.Resolution).Update("is_active", false).Error)

	_, err := fx.Voting.Cast(CastRequest{
		VerificationCode: fx.Link.Code,
		ResolutionID:     fx.Resolution.ID.String(),
		Ballot:           json.RawMessage(`"YES"`),
	})
	assert.ErrorIs(t, err, common.ErrInactiveResolution)
}

func TestCastMalformedBallot(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	_, err := fx.Voting.Cast(CastRequest{
		VerificationCode: fx.Link.Code,
		ResolutionID:     fx.Resolution.ID.String(),
		Ballot:           json.RawMessage(`"MAYBE"`),
	})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)
}

func TestCastLapsedLinkCannotVote(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	require.NoError(t, fx.db.Model(fx.Link).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err := fx.Voting.Cast(CastRequest{
		VerificationCode: fx.Link.Code,
		ResolutionID:     fx.Resolution.ID.String(),
		Ballot:           json.RawMessage(`"YES"`),
	})
	requireNotEligible(t, err, common.StepVerification)

	var count int64
	require.NoError(t, fx.db.Model(&resolution.Vote{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCastTwiceConflicts(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	req := CastRequest{
		VerificationCode: fx.Link.Code,
		ResolutionID:     fx.Resolution.ID.String(),
		Ballot:           json.RawMessage(`"YES"`),
	}

	_, err := fx.Voting.Cast(req)
	require.NoError(t, err)

	req.Ballot = json.RawMessage(`"NO"`)
	_, err = fx.Voting.Cast(req)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestCastResolutionFromOtherMeetingRejected(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	other := &resolution.Resolution{
		MeetingID:    fx.Shareholder.ID, // any uuid that is not the verified meeting
		Title:        "Unrelated resolution",
		VotingMethod: resolution.MethodYesNo,
		MaxChoices:   1,
		IsActive:     true,
	}
	require.NoError(t, fx.db.Create(other).Error)

	_, err := fx.Voting.Cast(CastRequest{
		VerificationCode: fx.Link.Code,
		ResolutionID:     other.ID.String(),
		Ballot:           json.RawMessage(`"YES"`),
	})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)
}

func TestCastBatchIsolatesFailures(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	second := &resolution.Resolution{
		MeetingID:    fx.Meeting.ID,
		Title:        "Elect the auditor",
		VotingMethod: resolution.MethodYesNo,
		MaxChoices:   1,
		IsActive:     true,
	}
	require.NoError(t, fx.db.Create(second).Error)

	results := fx.Voting.CastBatch(fx.Link.Code, []CastRequest{
		{ResolutionID: fx.Resolution.ID.String(), Ballot: json.RawMessage(`"YES"`)},
		{ResolutionID: second.ID.String(), Ballot: json.RawMessage(`"MAYBE"`)},
	})

	require.Len(t, results, 2)
	assert.Empty(t, results[0].Error)
	assert.NotNil(t, results[0].Vote)
	assert.NotEmpty(t, results[1].Error)

	// The rejected ballot did not roll back the accepted one.
	var res resolution.Resolution
	require.NoError(t, fx.db.First(&res, "id = ?", fx.Resolution.ID).Error)
	assert.Equal(t, int64(1), res.TotalVotes)
}

func TestGetResultsYesNo(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	_, err := fx.Voting.Cast(CastRequest{
		VerificationCode: fx.Link.Code,
		ResolutionID:     fx.Resolution.ID.String(),
		Ballot:           json.RawMessage(`"YES"`),
	})
	require.NoError(t, err)

	results, err := fx.Voting.GetResults(fx.Resolution.ID.String())
	require.NoError(t, err)

	require.NotNil(t, results.YesNo)
	assert.Equal(t, int64(100), results.YesNo.YesShares)
	assert.Equal(t, int64(0), results.YesNo.NoShares)
	assert.True(t, results.YesNo.Approved)
	assert.Equal(t, int64(1), results.TotalVotes)
}

func TestGetResultsNoDecisiveVotesIsNotApproved(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	// Only an abstention: nothing decisive, so no approval.
	_, err := fx.Voting.Cast(CastRequest{
		VerificationCode: fx.Link.Code,
		ResolutionID:     fx.Resolution.ID.String(),
		Ballot:           json.RawMessage(`"ABSTAIN"`),
	})
	require.NoError(t, err)

	results, err := fx.Voting.GetResults(fx.Resolution.ID.String())
	require.NoError(t, err)

	require.NotNil(t, results.YesNo)
	assert.Equal(t, int64(100), results.YesNo.AbstainShares)
	assert.False(t, results.YesNo.Approved)
}

func TestDeleteVoteAllowsRecast(t *testing.T) {
	fx := newGateFixture(t)
	fx.makeEligible(t)

	vote, err := fx.Voting.Cast(CastRequest{
		VerificationCode: fx.Link.Code,
		ResolutionID:     fx.Resolution.ID.String(),
		Ballot:           json.RawMessage(`"YES"`),
	})
	require.NoError(t, err)

	require.NoError(t, fx.Voting.Delete(vote.ID))

	recast, err := fx.Voting.Cast(CastRequest{
		VerificationCode: fx.Link.Code,
		ResolutionID:     fx.Resolution.ID.String(),
		Ballot:           json.RawMessage(`"NO"`),
	})
	require.NoError(t, err)

	var res resolution.Resolution
	require.NoError(t, fx.db.First(&res, "id = ?", fx.Resolution.ID).Error)
	assert.Equal(t, int64(0), res.YesVotes)
	assert.Equal(t, int64(100), res.NoVotes)
	assert.Equal(t, int64(1), res.TotalVotes)
	assert.Equal(t, "NO", recast.VoteValue)
}
