// Package ballot models the method-specific vote payloads as a tagged union
// so the validator and the tally aggregator operate on structured data
// instead of re-parsing an untyped string at each layer.
package ballot

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/resolution"
)

// Yes/no ballot values
const (
	ValueYes     = "YES"
	ValueNo      = "NO"
	ValueAbstain = "ABSTAIN"
)

// Ballot is one of YesNo, MultipleChoice or Ranking
type Ballot interface {
	// Method returns the voting method this ballot is valid for
	Method() resolution.VotingMethod
	// Canonical returns the deterministic string form stored on the vote row
	Canonical() string
}

// YesNo is a ballot for a yes/no resolution
type YesNo struct {
	Value string
}

// MultipleChoice is a ballot selecting option ids of a multiple-choice resolution
type MultipleChoice struct {
	OptionIDs []uuid.UUID
}

// Ranking is a ballot mapping candidate codes to rank positions
type Ranking struct {
	Ranks map[string]int
}

// Method implements Ballot
func (b YesNo) Method() resolution.VotingMethod { return resolution.MethodYesNo }

// Method implements Ballot
func (b MultipleChoice) Method() resolution.VotingMethod { return resolution.MethodMultipleChoice }

// Method implements Ballot
func (b Ranking) Method() resolution.VotingMethod { return resolution.MethodRanking }

// Canonical implements Ballot
func (b YesNo) Canonical() string { return b.Value }

// Canonical implements Ballot. Option ids are sorted so the same selection
// always serializes identically.
func (b MultipleChoice) Canonical() string {
	ids := make([]string, len(b.OptionIDs))
	for i, id := range b.OptionIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)

	data, _ := json.Marshal(ids)
	return string(data)
}

// Canonical implements Ballot. json.Marshal sorts map keys, so the encoding
// is deterministic.
func (b Ranking) Canonical() string {
	data, _ := json.Marshal(b.Ranks)
	return string(data)
}

// Decode parses a raw ballot payload for the given voting method.
// It checks structure only; Validate checks the ballot against a resolution.
func Decode(method resolution.VotingMethod, raw json.RawMessage) (Ballot, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", common.ErrInvalidBallot)
	}

	switch method {
	case resolution.MethodYesNo:
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("%w: yes/no ballot must be a string: %v", common.ErrInvalidBallot, err)
		}
		return YesNo{Value: value}, nil

	case resolution.MethodMultipleChoice:
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, fmt.Errorf("%w: multiple-choice ballot must be a list of option ids: %v", common.ErrInvalidBallot, err)
		}

		optionIDs := make([]uuid.UUID, 0, len(ids))
		for _, id := range ids {
			parsed, err := uuid.Parse(id)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid option id %q", common.ErrInvalidBallot, id)
			}
			optionIDs = append(optionIDs, parsed)
		}
		return MultipleChoice{OptionIDs: optionIDs}, nil

	case resolution.MethodRanking:
		var ranks map[string]int
		if err := json.Unmarshal(raw, &ranks); err != nil {
			return nil, fmt.Errorf("%w: ranking ballot must map candidate codes to ranks: %v", common.ErrInvalidBallot, err)
		}
		return Ranking{Ranks: ranks}, nil

	default:
		return nil, fmt.Errorf("%w: unknown voting method %s", common.ErrInvalidBallot, method)
	}
}

// DecodeCanonical parses a stored canonical vote value back into a ballot.
// Used by the administrative vote deletion to compute the inverse tally.
func DecodeCanonical(method resolution.VotingMethod, voteValue string) (Ballot, error) {
	switch method {
	case resolution.MethodYesNo:
		return YesNo{Value: voteValue}, nil
	case resolution.MethodMultipleChoice, resolution.MethodRanking:
		return Decode(method, json.RawMessage(voteValue))
	default:
		return nil, fmt.Errorf("%w: unknown voting method %s", common.ErrInvalidBallot, method)
	}
}

// Validate checks a decoded ballot against its resolution. The resolution
// must be active regardless of ballot well-formedness.
func Validate(res *resolution.Resolution, b Ballot) error {
	if !res.IsActive {
		return common.ErrInactiveResolution
	}

	if b.Method() != res.VotingMethod {
		return fmt.Errorf("%w: ballot method %s does not match resolution method %s",
			common.ErrInvalidBallot, b.Method(), res.VotingMethod)
	}

	switch ballot := b.(type) {
	case YesNo:
		return validateYesNo(ballot)
	case MultipleChoice:
		return validateMultipleChoice(res, ballot)
	case Ranking:
		return validateRanking(res, ballot)
	default:
		return fmt.Errorf("%w: unsupported ballot type %T", common.ErrInvalidBallot, b)
	}
}

func validateYesNo(b YesNo) error {
	switch b.Value {
	case ValueYes, ValueNo, ValueAbstain:
		return nil
	default:
		return fmt.Errorf("%w: vote value must be YES, NO or ABSTAIN, got %q", common.ErrInvalidBallot, b.Value)
	}
}

func validateMultipleChoice(res *resolution.Resolution, b MultipleChoice) error {
	if len(b.OptionIDs) == 0 {
		return fmt.Errorf("%w: at least one option must be selected", common.ErrInvalidBallot)
	}
	if len(b.OptionIDs) > res.MaxChoices {
		return fmt.Errorf("%w: %d options selected, at most %d allowed",
			common.ErrInvalidBallot, len(b.OptionIDs), res.MaxChoices)
	}

	seen := make(map[uuid.UUID]bool, len(b.OptionIDs))
	for _, id := range b.OptionIDs {
		if seen[id] {
			return fmt.Errorf("%w: option %s selected more than once", common.ErrInvalidBallot, id)
		}
		seen[id] = true

		if _, ok := res.OptionByID(id); !ok {
			return fmt.Errorf("%w: option %s does not belong to this resolution", common.ErrInvalidBallot, id)
		}
	}
	return nil
}

func validateRanking(res *resolution.Resolution, b Ranking) error {
	if len(b.Ranks) == 0 {
		return fmt.Errorf("%w: at least one candidate must be ranked", common.ErrInvalidBallot)
	}
	if len(b.Ranks) > res.MaxChoices {
		return fmt.Errorf("%w: %d candidates ranked, at most %d allowed",
			common.ErrInvalidBallot, len(b.Ranks), res.MaxChoices)
	}

	// Ranks must form a permutation of 1..n: positive, within [1, n], and
	// never shared between two candidates. Duplicate ranks are the most
	// common ballot-spoiling mistake.
	usedRanks := make(map[int]string, len(b.Ranks))
	for code, rank := range b.Ranks {
		if _, ok := res.CandidateByCode(code); !ok {
			return fmt.Errorf("%w: candidate %q does not belong to this resolution", common.ErrInvalidBallot, code)
		}
		if rank < 1 || rank > len(b.Ranks) {
			return fmt.Errorf("%w: rank %d for candidate %q is outside [1, %d]",
				common.ErrInvalidBallot, rank, code, len(b.Ranks))
		}
		if other, dup := usedRanks[rank]; dup {
			return fmt.Errorf("%w: candidates %q and %q share rank %d",
				common.ErrInvalidBallot, other, code, rank)
		}
		usedRanks[rank] = code
	}
	return nil
}
