package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quorumdesk/agm-api/internal/domain/ballot"
	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/resolution"
	"github.com/quorumdesk/agm-api/internal/domain/shareholder"
	"github.com/quorumdesk/agm-api/internal/domain/verification"
)

func castYesNo(t *testing.T, repo *PostgresVoteRepository, fx *votingFixture, holderID uuid.UUID, shares int64, value string) {
	t.Helper()

	b := ballot.YesNo{Value: value}
	v := resolution.NewVote(fx.Resolution.ID, holderID, fx.Meeting.ID, b.Canonical(), shares)
	require.NoError(t, repo.CastVote(v, b, fx.Link.ID))
}

func addShareholder(t *testing.T, db *gorm.DB, fx *votingFixture, shares int64) uuid.UUID {
	t.Helper()

	holder := &shareholder.Shareholder{
		ID:          uuid.New(),
		Name:        "Extra Holder",
		Email:       uuid.NewString() + "@example.com",
		TotalShares: shares,
	}
	require.NoError(t, db.Create(holder).Error)
	return holder.ID
}

func TestCastVoteAppliesShareWeightedTally(t *testing.T) {
	db := openTestDB(t)
	fx := seedVotingFixture(t, db, 100)
	repo := NewVoteRepository(db)

	second := addShareholder(t, db, fx, 200)
	third := addShareholder(t, db, fx, 300)

	castYesNo(t, repo, fx, fx.Shareholder.ID, 100, ballot.ValueYes)
	castYesNo(t, repo, fx, second, 200, ballot.ValueNo)
	castYesNo(t, repo, fx, third, 300, ballot.ValueYes)

	var res resolution.Resolution
	require.NoError(t, db.First(&res, "id = ?", fx.Resolution.ID).Error)

	// Counters are share-weighted; total_votes counts ballots.
	assert.Equal(t, int64(400), res.YesVotes)
	assert.Equal(t, int64(200), res.NoVotes)
	assert.Equal(t, int64(0), res.AbstainVotes)
	assert.Equal(t, int64(3), res.TotalVotes)
}

func TestCastVoteEnforcesAtMostOnce(t *testing.T) {
	db := openTestDB(t)
	fx := seedVotingFixture(t, db, 100)
	repo := NewVoteRepository(db)

	castYesNo(t, repo, fx, fx.Shareholder.ID, 100, ballot.ValueYes)

	b := ballot.YesNo{Value: ballot.ValueNo}
	dup := resolution.NewVote(fx.Resolution.ID, fx.Shareholder.ID, fx.Meeting.ID, b.Canonical(), 100)
	err := repo.CastVote(dup, b, fx.Link.ID)
	assert.ErrorIs(t, err, common.ErrConflict)

	// The rejected cast must not have moved any counter.
	var res resolution.Resolution
	require.NoError(t, db.First(&res, "id = ?", fx.Resolution.ID).Error)
	assert.Equal(t, int64(100), res.YesVotes)
	assert.Equal(t, int64(0), res.NoVotes)
	assert.Equal(t, int64(1), res.TotalVotes)
}

func TestCastVoteWritesAuditEntry(t *testing.T) {
	db := openTestDB(t)
	fx := seedVotingFixture(t, db, 100)
	repo := NewVoteRepository(db)

	castYesNo(t, repo, fx, fx.Shareholder.ID, 100, ballot.ValueAbstain)

	var entries []verification.Log
	require.NoError(t, db.Where("verification_id = ?", fx.Link.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, verification.ActionVoteCast, entries[0].Action)
	assert.True(t, entries[0].Success)
}

func TestDeleteVoteRestoresCounters(t *testing.T) {
	db := openTestDB(t)
	fx := seedVotingFixture(t, db, 100)
	repo := NewVoteRepository(db)

	second := addShareholder(t, db, fx, 250)

	castYesNo(t, repo, fx, fx.Shareholder.ID, 100, ballot.ValueYes)
	castYesNo(t, repo, fx, second, 250, ballot.ValueNo)

	var v resolution.Vote
	require.NoError(t, db.First(&v, "shareholder_id = ?", second).Error)
	require.NoError(t, repo.DeleteVote(v.ID))

	var res resolution.Resolution
	require.NoError(t, db.First(&res, "id = ?", fx.Resolution.ID).Error)
	assert.Equal(t, int64(100), res.YesVotes)
	assert.Equal(t, int64(0), res.NoVotes)
	assert.Equal(t, int64(1), res.TotalVotes)

	// The shareholder can vote again after the correction.
	castYesNo(t, repo, fx, second, 250, ballot.ValueYes)
	require.NoError(t, db.First(&res, "id = ?", fx.Resolution.ID).Error)
	assert.Equal(t, int64(350), res.YesVotes)
	assert.Equal(t, int64(2), res.TotalVotes)
}

func TestDeleteVoteNotFound(t *testing.T) {
	db := openTestDB(t)
	seedVotingFixture(t, db, 100)
	repo := NewVoteRepository(db)

	err := repo.DeleteVote(uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCastVoteMultipleChoiceUpdatesOptionCounters(t *testing.T) {
	db := openTestDB(t)
	fx := seedVotingFixture(t, db, 150)
	repo := NewVoteRepository(db)

	optA := resolution.Option{ID: uuid.New(), ResolutionID: fx.Resolution.ID, OptionValue: "Expand the board"}
	optB := resolution.Option{ID: uuid.New(), ResolutionID: fx.Resolution.ID, OptionValue: "Keep the board"}
	require.NoError(t, db.Create(&optA).Error)
	require.NoError(t, db.Create(&optB).Error)
	require.NoError(t, db.Model(&resolution.Resolution{}).
		Where("id = ?", fx.Resolution.ID).
		Updates(map[string]interface{}{"voting_method": resolution.MethodMultipleChoice, "max_choices": 2}).Error)

	b := ballot.MultipleChoice{OptionIDs: []uuid.UUID{optA.ID, optB.ID}}
	v := resolution.NewVote(fx.Resolution.ID, fx.Shareholder.ID, fx.Meeting.ID, b.Canonical(), 150)
	require.NoError(t, repo.CastVote(v, b, fx.Link.ID))

	var gotA resolution.Option
	require.NoError(t, db.First(&gotA, "id = ?", optA.ID).Error)
	assert.Equal(t, int64(150), gotA.VoteCount)
	var gotB resolution.Option
	require.NoError(t, db.First(&gotB, "id = ?", optB.ID).Error)
	assert.Equal(t, int64(150), gotB.VoteCount)

	// Deleting reverses both option counters.
	require.NoError(t, repo.DeleteVote(v.ID))
	var gotAfter resolution.Option
	require.NoError(t, db.First(&gotAfter, "id = ?", optA.ID).Error)
	assert.Equal(t, int64(0), gotAfter.VoteCount)
}

func TestCastVoteRankingUpdatesCandidateCounters(t *testing.T) {
	db := openTestDB(t)
	fx := seedVotingFixture(t, db, 80)
	repo := NewVoteRepository(db)

	candA := resolution.Candidate{ID: uuid.New(), ResolutionID: fx.Resolution.ID, CandidateCode: "ALPHA"}
	candB := resolution.Candidate{ID: uuid.New(), ResolutionID: fx.Resolution.ID, CandidateCode: "BETA"}
	require.NoError(t, db.Create(&candA).Error)
	require.NoError(t, db.Create(&candB).Error)
	require.NoError(t, db.Model(&resolution.Resolution{}).
		Where("id = ?", fx.Resolution.ID).
		Updates(map[string]interface{}{"voting_method": resolution.MethodRanking, "max_choices": 2}).Error)

	b := ballot.Ranking{Ranks: map[string]int{"ALPHA": 1, "BETA": 2}}
	v := resolution.NewVote(fx.Resolution.ID, fx.Shareholder.ID, fx.Meeting.ID, b.Canonical(), 80)
	require.NoError(t, repo.CastVote(v, b, fx.Link.ID))

	var gotA resolution.Candidate
	require.NoError(t, db.First(&gotA, "id = ?", candA.ID).Error)
	assert.Equal(t, int64(80), gotA.VoteCount)
	var gotB resolution.Candidate
	require.NoError(t, db.First(&gotB, "id = ?", candB.ID).Error)
	assert.Equal(t, int64(80), gotB.VoteCount)
}

func TestCastVoteRejectsForeignOptionAtomically(t *testing.T) {
	db := openTestDB(t)
	fx := seedVotingFixture(t, db, 100)
	repo := NewVoteRepository(db)

	require.NoError(t, db.Model(&resolution.Resolution{}).
		Where("id = ?", fx.Resolution.ID).
		Updates(map[string]interface{}{"voting_method": resolution.MethodMultipleChoice, "max_choices": 2}).Error)

	b := ballot.MultipleChoice{OptionIDs: []uuid.UUID{uuid.New()}}
	v := resolution.NewVote(fx.Resolution.ID, fx.Shareholder.ID, fx.Meeting.ID, b.Canonical(), 100)
	err := repo.CastVote(v, b, fx.Link.ID)
	assert.ErrorIs(t, err, common.ErrInvalidBallot)

	// The whole transaction rolled back: no vote row, no counter movement.
	var count int64
	require.NoError(t, db.Model(&resolution.Vote{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	var res resolution.Resolution
	require.NoError(t, db.First(&res, "id = ?", fx.Resolution.ID).Error)
	assert.Equal(t, int64(0), res.TotalVotes)
}

func TestHasVoted(t *testing.T) {
	db := openTestDB(t)
	fx := seedVotingFixture(t, db, 100)
	repo := NewVoteRepository(db)

	voted, err := repo.HasVoted(fx.Resolution.ID, fx.Shareholder.ID)
	require.NoError(t, err)
	assert.False(t, voted)

	castYesNo(t, repo, fx, fx.Shareholder.ID, 100, ballot.ValueYes)

	voted, err = repo.HasVoted(fx.Resolution.ID, fx.Shareholder.ID)
	require.NoError(t, err)
	assert.True(t, voted)
}

func TestGetByResolutionPaginated(t *testing.T) {
	db := openTestDB(t)
	fx := seedVotingFixture(t, db, 100)
	repo := NewVoteRepository(db)

	castYesNo(t, repo, fx, fx.Shareholder.ID, 100, ballot.ValueYes)
	for i := 0; i < 4; i++ {
		id := addShareholder(t, db, fx, 50)
		castYesNo(t, repo, fx, id, 50, ballot.ValueNo)
		time.Sleep(time.Millisecond)
	}

	result, err := repo.GetByResolutionPaginated(fx.Resolution.ID, PaginationParams{Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 2, result.TotalPages)
	assert.Len(t, result.Data.([]*resolution.Vote), 3)
}
