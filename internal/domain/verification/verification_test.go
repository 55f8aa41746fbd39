package verification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(16)
	require.NoError(t, err)

	// 16 bytes of entropy base32-encode to 26 characters.
	assert.Len(t, code, 26)

	for _, r := range code {
		assert.Contains(t, "abcdefghijklmnopqrstuvwxyz234567", string(r))
	}
}

func TestGenerateCodeEnforcesMinimumEntropy(t *testing.T) {
	code, err := GenerateCode(4)
	require.NoError(t, err)

	// Requests below 12 bytes are raised to 12.
	assert.GreaterOrEqual(t, len(code), 19)
}

func TestGenerateCodeUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode(16)
		require.NoError(t, err)
		assert.False(t, seen[code], "generated a duplicate code")
		seen[code] = true
	}
}

func TestDeepLink(t *testing.T) {
	meetingID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	reg := &Link{Code: "abc123", Type: TypeRegistration, MeetingID: meetingID}
	assert.Equal(t, "https://vote.example.com/verify/abc123", reg.DeepLink("https://vote.example.com"))
	assert.Equal(t, "https://vote.example.com/verify/abc123", reg.DeepLink("https://vote.example.com/"))

	att := &Link{Code: "abc123", Type: TypeAttendance, MeetingID: meetingID}
	assert.Equal(t,
		"https://vote.example.com/verify/abc123/meetings/11111111-2222-3333-4444-555555555555",
		att.DeepLink("https://vote.example.com"))
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	link := &Link{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, link.IsExpired(now))
	assert.False(t, link.IsExpired(now.Add(time.Hour)))
	assert.True(t, link.IsExpired(now.Add(time.Hour+time.Second)))
}

func TestNewLink(t *testing.T) {
	meetingID, shareholderID := uuid.New(), uuid.New()

	link, err := NewLink(meetingID, shareholderID, TypeAttendance, 72*time.Hour, 16)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, link.ID)
	assert.Equal(t, meetingID, link.MeetingID)
	assert.Equal(t, shareholderID, link.ShareholderID)
	assert.Equal(t, TypeAttendance, link.Type)
	assert.False(t, link.IsUsed)
	assert.NotEmpty(t, link.Code)
	assert.NoError(t, link.Validate())
}

func TestLinkTypeRoundTrip(t *testing.T) {
	for _, lt := range []LinkType{TypeRegistration, TypeAttendance} {
		parsed, ok := LinkTypeFromString(lt.String())
		require.True(t, ok)
		assert.Equal(t, lt, parsed)
	}

	_, ok := LinkTypeFromString("voting")
	assert.False(t, ok)
}
