package postgres

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quorumdesk/agm-api/internal/domain/ballot"
	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/resolution"
	"github.com/quorumdesk/agm-api/internal/domain/verification"
	"github.com/quorumdesk/agm-api/internal/logger"
)

// PostgresVoteRepository implements VoteRepository using GORM
type PostgresVoteRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewVoteRepository creates a new PostgreSQL vote repository
func NewVoteRepository(db *gorm.DB) *PostgresVoteRepository {
	return &PostgresVoteRepository{
		db:  db,
		log: logger.Repository("vote"),
	}
}

// CastVote applies a validated ballot as one transaction: insert the vote
// row, bump the share-weighted counters, append the audit entry. The unique
// index on (resolution_id, shareholder_id) is the authoritative at-most-once
// guard; a violating insert aborts the whole transaction so no partial
// counter mutation ever persists.
func (r *PostgresVoteRepository) CastVote(v *resolution.Vote, b ballot.Ballot, verificationID uuid.UUID) error {
	r.log.Debug("casting vote", "vote_id", v.ID, "resolution_id", v.ResolutionID,
		"shareholder_id", v.ShareholderID, "shares_used", v.SharesUsed)

	if err := v.Validate(); err != nil {
		r.log.Error("vote validation failed", "error", err, "vote_id", v.ID)
		return fmt.Errorf("vote validation failed: %w", err)
	}

	tx := r.db.Begin()
	if tx.Error != nil {
		r.log.Error("failed to start vote transaction", "vote_id", v.ID, "error", tx.Error)
		return fmt.Errorf("failed to start transaction: %w", tx.Error)
	}

	if err := tx.Create(v).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("shareholder has already voted on resolution",
				"resolution_id", v.ResolutionID, "shareholder_id", v.ShareholderID)
			return fmt.Errorf("shareholder has already voted on this resolution: %w", common.ErrConflict)
		}
		r.log.Error("failed to insert vote", "error", err, "vote_id", v.ID)
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	if err := r.applyTally(tx, v, b, 1); err != nil {
		tx.Rollback()
		r.log.Error("failed to apply tally", "error", err, "vote_id", v.ID)
		return err
	}

	entry := &verification.Log{
		VerificationID: verificationID,
		Action:         verification.ActionVoteCast,
		Success:        true,
	}
	if err := tx.Create(entry).Error; err != nil {
		tx.Rollback()
		r.log.Error("failed to append vote audit entry", "error", err, "vote_id", v.ID)
		return fmt.Errorf("failed to append vote audit entry: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		r.log.Error("failed to commit vote transaction", "vote_id", v.ID, "error", err)
		return fmt.Errorf("failed to commit vote transaction: %w", err)
	}

	r.log.Info("vote cast successfully", "vote_id", v.ID, "resolution_id", v.ResolutionID,
		"shareholder_id", v.ShareholderID, "shares_used", v.SharesUsed)
	return nil
}

// DeleteVote is the exact inverse of CastVote for administrative
// corrections: decrement the same counters by the same shares, remove the
// per-option and per-candidate contributions, then delete the vote row.
func (r *PostgresVoteRepository) DeleteVote(id uuid.UUID) error {
	r.log.Debug("deleting vote", "vote_id", id)

	tx := r.db.Begin()
	if tx.Error != nil {
		r.log.Error("failed to start vote deletion transaction", "vote_id", id, "error", tx.Error)
		return fmt.Errorf("failed to start transaction: %w", tx.Error)
	}

	var v resolution.Vote
	if err := tx.First(&v, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("attempted to delete non-existent vote", "vote_id", id)
			return fmt.Errorf("vote %s: %w", id, common.ErrNotFound)
		}
		r.log.Error("failed to load vote for deletion", "vote_id", id, "error", err)
		return fmt.Errorf("failed to load vote: %w", err)
	}

	var res resolution.Resolution
	if err := tx.First(&res, "id = ?", v.ResolutionID).Error; err != nil {
		tx.Rollback()
		r.log.Error("failed to load resolution for vote deletion", "vote_id", id, "error", err)
		return fmt.Errorf("failed to load resolution: %w", err)
	}

	b, err := ballot.DecodeCanonical(res.VotingMethod, v.VoteValue)
	if err != nil {
		tx.Rollback()
		r.log.Error("failed to decode stored vote value", "vote_id", id, "error", err)
		return fmt.Errorf("failed to decode stored vote value: %w", err)
	}

	if err := r.applyTally(tx, &v, b, -1); err != nil {
		tx.Rollback()
		r.log.Error("failed to reverse tally", "error", err, "vote_id", id)
		return err
	}

	if err := tx.Delete(&v).Error; err != nil {
		tx.Rollback()
		r.log.Error("failed to delete vote row", "vote_id", id, "error", err)
		return fmt.Errorf("failed to delete vote: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		r.log.Error("failed to commit vote deletion", "vote_id", id, "error", err)
		return fmt.Errorf("failed to commit vote deletion: %w", err)
	}

	r.log.Info("vote deleted and counters restored", "vote_id", id,
		"resolution_id", v.ResolutionID, "shares_used", v.SharesUsed)
	return nil
}

// applyTally bumps the resolution counters for one vote. direction is +1
// when casting and -1 when deleting. total_votes moves by one vote, the
// method counters move by the vote's full share balance.
func (r *PostgresVoteRepository) applyTally(tx *gorm.DB, v *resolution.Vote, b ballot.Ballot, direction int64) error {
	shares := v.SharesUsed * direction

	updates := map[string]interface{}{
		"total_votes": gorm.Expr("total_votes + ?", direction),
	}

	switch bt := b.(type) {
	case ballot.YesNo:
		switch bt.Value {
		case ballot.ValueYes:
			updates["yes_votes"] = gorm.Expr("yes_votes + ?", shares)
		case ballot.ValueNo:
			updates["no_votes"] = gorm.Expr("no_votes + ?", shares)
		case ballot.ValueAbstain:
			updates["abstain_votes"] = gorm.Expr("abstain_votes + ?", shares)
		default:
			return fmt.Errorf("%w: unexpected canonical value %q", common.ErrInvalidBallot, bt.Value)
		}

	case ballot.MultipleChoice:
		for _, optionID := range bt.OptionIDs {
			result := tx.Model(&resolution.Option{}).
				Where("id = ? AND resolution_id = ?", optionID, v.ResolutionID).
				Update("vote_count", gorm.Expr("vote_count + ?", shares))
			if result.Error != nil {
				return fmt.Errorf("failed to update option counter: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: option %s does not belong to resolution %s",
					common.ErrInvalidBallot, optionID, v.ResolutionID)
			}
		}

	case ballot.Ranking:
		for code := range bt.Ranks {
			result := tx.Model(&resolution.Candidate{}).
				Where("resolution_id = ? AND candidate_code = ?", v.ResolutionID, code).
				Update("vote_count", gorm.Expr("vote_count + ?", shares))
			if result.Error != nil {
				return fmt.Errorf("failed to update candidate counter: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: candidate %q does not belong to resolution %s",
					common.ErrInvalidBallot, code, v.ResolutionID)
			}
		}

	default:
		return fmt.Errorf("%w: unsupported ballot type %T", common.ErrInvalidBallot, b)
	}

	result := tx.Model(&resolution.Resolution{}).
		Where("id = ?", v.ResolutionID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update resolution counters: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("resolution %s: %w", v.ResolutionID, common.ErrNotFound)
	}

	return nil
}

func (r *PostgresVoteRepository) GetByID(id string) (*resolution.Vote, error) {
	r.log.Debug("retrieving vote by ID", "vote_id", id)

	voteID, err := uuid.Parse(id)
	if err != nil {
		r.log.Error("invalid vote ID format", "vote_id", id, "error", err)
		return nil, fmt.Errorf("invalid vote ID format: %w", err)
	}

	var v resolution.Vote
	if err := r.db.First(&v, "id = ?", voteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("vote not found", "vote_id", id)
			return nil, fmt.Errorf("vote %s: %w", id, common.ErrNotFound)
		}
		r.log.Error("failed to retrieve vote", "vote_id", id, "error", err)
		return nil, fmt.Errorf("failed to retrieve vote: %w", err)
	}

	return &v, nil
}

func (r *PostgresVoteRepository) HasVoted(resolutionID, shareholderID uuid.UUID) (bool, error) {
	r.log.Debug("checking if shareholder has voted", "resolution_id", resolutionID, "shareholder_id", shareholderID)

	var count int64
	err := r.db.Model(&resolution.Vote{}).
		Where("resolution_id = ? AND shareholder_id = ?", resolutionID, shareholderID).
		Count(&count).Error
	if err != nil {
		r.log.Error("failed to check voting status", "resolution_id", resolutionID,
			"shareholder_id", shareholderID, "error", err)
		return false, fmt.Errorf("failed to check voting status: %w", err)
	}

	return count > 0, nil
}

func (r *PostgresVoteRepository) GetByResolutionPaginated(resolutionID uuid.UUID, params PaginationParams) (*PaginatedResult, error) {
	r.log.Debug("retrieving votes by resolution with pagination",
		"resolution_id", resolutionID, "page", params.Page, "page_size", params.PageSize)

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 10
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	offset := (params.Page - 1) * params.PageSize

	var total int64
	if err := r.db.Model(&resolution.Vote{}).Where("resolution_id = ?", resolutionID).Count(&total).Error; err != nil {
		r.log.Error("failed to count votes by resolution", "resolution_id", resolutionID, "error", err)
		return nil, fmt.Errorf("failed to count votes by resolution: %w", err)
	}

	var votes []*resolution.Vote
	err := r.db.Where("resolution_id = ?", resolutionID).
		Offset(offset).Limit(params.PageSize).
		Order("created_at DESC").
		Find(&votes).Error
	if err != nil {
		r.log.Error("failed to retrieve paginated votes", "resolution_id", resolutionID, "error", err)
		return nil, fmt.Errorf("failed to retrieve paginated votes: %w", err)
	}

	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))

	return &PaginatedResult{
		Data:       votes,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}
