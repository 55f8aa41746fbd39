package ballot

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/resolution"
)

func yesNoResolution() *resolution.Resolution {
	return &resolution.Resolution{
		ID:           uuid.New(),
		VotingMethod: resolution.MethodYesNo,
		MaxChoices:   1,
		IsActive:     true,
	}
}

func multipleChoiceResolution(maxChoices int, optionIDs ...uuid.UUID) *resolution.Resolution {
	res := &resolution.Resolution{
		ID:           uuid.New(),
		VotingMethod: resolution.MethodMultipleChoice,
		MaxChoices:   maxChoices,
		IsActive:     true,
	}
	for _, id := range optionIDs {
		res.Options = append(res.Options, resolution.Option{ID: id, ResolutionID: res.ID})
	}
	return res
}

func rankingResolution(maxChoices int, codes ...string) *resolution.Resolution {
	res := &resolution.Resolution{
		ID:           uuid.New(),
		VotingMethod: resolution.MethodRanking,
		MaxChoices:   maxChoices,
		IsActive:     true,
	}
	for _, code := range codes {
		res.Candidates = append(res.Candidates, resolution.Candidate{
			ID: uuid.New(), ResolutionID: res.ID, CandidateCode: code,
		})
	}
	return res
}

func TestDecodeYesNo(t *testing.T) {
	b, err := Decode(resolution.MethodYesNo, json.RawMessage(`"YES"`))
	require.NoError(t, err)
	assert.Equal(t, YesNo{Value: "YES"}, b)
	assert.Equal(t, "YES", b.Canonical())
}

func TestDecodeYesNoRejectsNonString(t *testing.T) {
	_, err := Decode(resolution.MethodYesNo, json.RawMessage(`42`))
	assert.ErrorIs(t, err, common.ErrInvalidBallot)
}

func TestDecodeEmptyPayload(t *testing.T) {
	_, err := Decode(resolution.MethodYesNo, nil)
	assert.ErrorIs(t, err, common.ErrInvalidBallot)
}

func TestValidateYesNoValues(t *testing.T) {
	res := yesNoResolution()

	for _, value := range []string{"YES", "NO", "ABSTAIN"} {
		assert.NoError(t, Validate(res, YesNo{Value: value}), value)
	}

	err := Validate(res, YesNo{Value: "yes"})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)

	err = Validate(res, YesNo{Value: "MAYBE"})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)
}

func TestValidateInactiveResolutionWinsOverBallotErrors(t *testing.T) {
	res := yesNoResolution()
	res.IsActive = false

	// Even a malformed ballot reports the inactive resolution first.
	err := Validate(res, YesNo{Value: "MAYBE"})
	assert.ErrorIs(t, err, common.ErrInactiveResolution)
}

func TestValidateMethodMismatch(t *testing.T) {
	res := yesNoResolution()

	err := Validate(res, Ranking{Ranks: map[string]int{"A": 1}})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)
}

func TestValidateMultipleChoice(t *testing.T) {
	optA, optB, optC := uuid.New(), uuid.New(), uuid.New()
	res := multipleChoiceResolution(2, optA, optB, optC)

	assert.NoError(t, Validate(res, MultipleChoice{OptionIDs: []uuid.UUID{optA}}))
	assert.NoError(t, Validate(res, MultipleChoice{OptionIDs: []uuid.UUID{optA, optC}}))

	// Over max_choices.
	err := Validate(res, MultipleChoice{OptionIDs: []uuid.UUID{optA, optB, optC}})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)

	// Duplicate selection.
	err = Validate(res, MultipleChoice{OptionIDs: []uuid.UUID{optA, optA}})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)

	// Foreign option.
	err = Validate(res, MultipleChoice{OptionIDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)

	// Empty selection.
	err = Validate(res, MultipleChoice{OptionIDs: nil})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)
}

func TestValidateRanking(t *testing.T) {
	res := rankingResolution(3, "ALPHA", "BETA", "GAMMA")

	assert.NoError(t, Validate(res, Ranking{Ranks: map[string]int{"ALPHA": 1, "BETA": 2, "GAMMA": 3}}))
	assert.NoError(t, Validate(res, Ranking{Ranks: map[string]int{"BETA": 1}}))

	// Duplicate rank.
	err := Validate(res, Ranking{Ranks: map[string]int{"ALPHA": 1, "BETA": 1}})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)

	// Rank outside [1, n].
	err = Validate(res, Ranking{Ranks: map[string]int{"ALPHA": 3}})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)

	err = Validate(res, Ranking{Ranks: map[string]int{"ALPHA": 0}})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)

	// Unknown candidate.
	err = Validate(res, Ranking{Ranks: map[string]int{"DELTA": 1}})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)

	// More candidates than max_choices.
	res.MaxChoices = 2
	err = Validate(res, Ranking{Ranks: map[string]int{"ALPHA": 1, "BETA": 2, "GAMMA": 3}})
	assert.ErrorIs(t, err, common.ErrInvalidBallot)
}

func TestMultipleChoiceCanonicalIsSorted(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	first := MultipleChoice{OptionIDs: []uuid.UUID{b, a}}.Canonical()
	second := MultipleChoice{OptionIDs: []uuid.UUID{a, b}}.Canonical()

	assert.Equal(t, first, second)
	assert.Equal(t, `["00000000-0000-0000-0000-000000000001","00000000-0000-0000-0000-000000000002"]`, first)
}

func TestRankingCanonicalIsDeterministic(t *testing.T) {
	canonical := Ranking{Ranks: map[string]int{"BETA": 2, "ALPHA": 1}}.Canonical()
	assert.Equal(t, `{"ALPHA":1,"BETA":2}`, canonical)
}

func TestDecodeCanonicalRoundTrip(t *testing.T) {
	optA, optB := uuid.New(), uuid.New()

	cases := []struct {
		method resolution.VotingMethod
		ballot Ballot
	}{
		{resolution.MethodYesNo, YesNo{Value: "ABSTAIN"}},
		{resolution.MethodMultipleChoice, MultipleChoice{OptionIDs: []uuid.UUID{optA, optB}}},
		{resolution.MethodRanking, Ranking{Ranks: map[string]int{"ALPHA": 1, "BETA": 2}}},
	}

	for _, tc := range cases {
		decoded, err := DecodeCanonical(tc.method, tc.ballot.Canonical())
		require.NoError(t, err, tc.method.String())
		assert.Equal(t, tc.ballot.Canonical(), decoded.Canonical(), tc.method.String())
	}
}
