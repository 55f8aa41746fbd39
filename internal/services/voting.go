package services

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/domain/ballot"
	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/resolution"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/notify"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

// VotingService orchestrates ballot casting: eligibility gate, ballot
// validation, then the repository's atomic tally transaction
type VotingService struct {
	eligibility *EligibilityService
	resolutions postgres.ResolutionRepository
	votes       postgres.VoteRepository
	broadcaster notify.Broadcaster
	log         *log.Logger
}

// NewVotingService creates a new voting service
func NewVotingService(
	eligibility *EligibilityService,
	resolutions postgres.ResolutionRepository,
	votes postgres.VoteRepository,
	broadcaster notify.Broadcaster,
) *VotingService {
	return &VotingService{
		eligibility: eligibility,
		resolutions: resolutions,
		votes:       votes,
		broadcaster: broadcaster,
		log:         logger.Service("voting"),
	}
}

// CastRequest is one ballot to cast, authenticated by a verification code
type CastRequest struct {
	VerificationCode string          `json:"verification_code" binding:"required"`
	ResolutionID     string          `json:"resolution_id" binding:"required"`
	Ballot           json.RawMessage `json:"ballot" binding:"required"`
}

// CastResult reports the outcome of one cast in a batch
type CastResult struct {
	ResolutionID string           `json:"resolution_id"`
	Vote         *resolution.Vote `json:"vote,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// Cast runs the full voting pipeline for one ballot. The shareholder
// identity and share weight come from the eligibility claim, never from the
// request. Returns the persisted vote row.
func (s *VotingService) Cast(req CastRequest) (*resolution.Vote, error) {
	claim, err := s.eligibility.Check(req.VerificationCode)
	if err != nil {
		return nil, err
	}

	res, err := s.resolutions.GetByID(req.ResolutionID)
	if err != nil {
		return nil, err
	}

	if res.MeetingID != claim.Link.MeetingID {
		return nil, fmt.Errorf("%w: resolution %s does not belong to the verified meeting",
			common.ErrInvalidBallot, req.ResolutionID)
	}

	b, err := ballot.Decode(res.VotingMethod, req.Ballot)
	if err != nil {
		return nil, err
	}

	if err := ballot.Validate(res, b); err != nil {
		return nil, err
	}

	v := resolution.NewVote(res.ID, claim.Link.ShareholderID, res.MeetingID,
		b.Canonical(), claim.Registration.SharesRegistered)

	if err := s.votes.CastVote(v, b, claim.Link.ID); err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastVoteCast(res.ID, res.TotalVotes+1)

	s.log.Info("ballot cast", "resolution_id", res.ID, "shareholder_id", claim.Link.ShareholderID,
		"method", res.VotingMethod.String(), "shares_used", v.SharesUsed)
	return v, nil
}

// CastBatch casts several ballots under one verification code. Each cast is
// independent: one rejected ballot does not roll back the others.
func (s *VotingService) CastBatch(verificationCode string, items []CastRequest) []CastResult {
	results := make([]CastResult, 0, len(items))

	for _, item := range items {
		item.VerificationCode = verificationCode

		result := CastResult{ResolutionID: item.ResolutionID}
		vote, err := s.Cast(item)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Vote = vote
		}
		results = append(results, result)
	}

	return results
}

// Delete administratively removes a vote and restores every counter it
// touched
func (s *VotingService) Delete(id uuid.UUID) error {
	return s.votes.DeleteVote(id)
}

// Results is the method-specific tally summary of a resolution
type Results struct {
	ResolutionID uuid.UUID               `json:"resolution_id"`
	Title        string                  `json:"title"`
	VotingMethod resolution.VotingMethod `json:"voting_method"`
	IsActive     bool                    `json:"is_active"`
	TotalVotes   int64                   `json:"total_votes"`

	YesNo      *YesNoResults     `json:"yes_no,omitempty"`
	Options    []OptionResult    `json:"options,omitempty"`
	Candidates []CandidateResult `json:"candidates,omitempty"`
}

// YesNoResults summarizes a yes/no resolution in shares
type YesNoResults struct {
	YesShares     int64   `json:"yes_shares"`
	NoShares      int64   `json:"no_shares"`
	AbstainShares int64   `json:"abstain_shares"`
	Threshold     float64 `json:"approval_threshold"`
	Approved      bool    `json:"approved"`
}

// OptionResult is one option's share-weighted count
type OptionResult struct {
	OptionID    uuid.UUID `json:"option_id"`
	OptionValue string    `json:"option_value"`
	VoteCount   int64     `json:"vote_count"`
}

// CandidateResult is one candidate's share-weighted count
type CandidateResult struct {
	CandidateCode string `json:"candidate_code"`
	CandidateName string `json:"candidate_name"`
	VoteCount     int64  `json:"vote_count"`
	IsElected     bool   `json:"is_elected"`
}

// GetResults builds the tally summary for a resolution. Abstentions never
// count toward the approval threshold: a yes/no resolution is approved when
// yes shares reach the threshold fraction of yes+no shares.
func (s *VotingService) GetResults(resolutionID string) (*Results, error) {
	res, err := s.resolutions.GetByID(resolutionID)
	if err != nil {
		return nil, err
	}

	results := &Results{
		ResolutionID: res.ID,
		Title:        res.Title,
		VotingMethod: res.VotingMethod,
		IsActive:     res.IsActive,
		TotalVotes:   res.TotalVotes,
	}

	switch res.VotingMethod {
	case resolution.MethodYesNo:
		decisive := res.YesVotes + res.NoVotes
		approved := decisive > 0 && float64(res.YesVotes) >= res.ApprovalThreshold*float64(decisive)
		results.YesNo = &YesNoResults{
			YesShares:     res.YesVotes,
			NoShares:      res.NoVotes,
			AbstainShares: res.AbstainVotes,
			Threshold:     res.ApprovalThreshold,
			Approved:      approved,
		}

	case resolution.MethodMultipleChoice:
		options := make([]OptionResult, 0, len(res.Options))
		for _, opt := range res.Options {
			options = append(options, OptionResult{
				OptionID:    opt.ID,
				OptionValue: opt.OptionValue,
				VoteCount:   opt.VoteCount,
			})
		}
		sort.Slice(options, func(i, j int) bool {
			return options[i].VoteCount > options[j].VoteCount
		})
		results.Options = options

	case resolution.MethodRanking:
		candidates := make([]CandidateResult, 0, len(res.Candidates))
		for _, c := range res.Candidates {
			candidates = append(candidates, CandidateResult{
				CandidateCode: c.CandidateCode,
				CandidateName: c.CandidateName,
				VoteCount:     c.VoteCount,
				IsElected:     c.IsElected,
			})
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].VoteCount > candidates[j].VoteCount
		})
		results.Candidates = candidates
	}

	return results, nil
}
