package verification

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Link is a single-use, time-bounded capability binding a shareholder to a
// meeting for either registration or attendance confirmation.
// It transitions is_used=false -> true exactly once; once used or past
// expires_at it is terminal and rejects further redemption.
type Link struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	MeetingID     uuid.UUID  `json:"meeting_id" gorm:"type:uuid;not null"`
	ShareholderID uuid.UUID  `json:"shareholder_id" gorm:"type:uuid;not null"`
	Code          string     `json:"code" gorm:"not null;uniqueIndex"`
	Type          LinkType   `json:"type" gorm:"type:verification_type;not null"`
	ExpiresAt     time.Time  `json:"expires_at" gorm:"not null"`
	IsUsed        bool       `json:"is_used" gorm:"not null;default:false"`
	UsedAt        *time.Time `json:"used_at"`
	UsedIP        string     `json:"used_ip"`
	UsedDevice    string     `json:"used_device"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// Log is an immutable audit entry for a verification attempt or action
type Log struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	VerificationID uuid.UUID `json:"verification_id" gorm:"type:uuid;not null;index"`
	Action         string    `json:"action" gorm:"not null"`
	IP             string    `json:"ip"`
	UserAgent      string    `json:"user_agent"`
	Success        bool      `json:"success" gorm:"not null"`
	ErrorMessage   string    `json:"error_message"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Audit log actions
const (
	ActionRedeem   = "REDEEM"
	ActionRevoke   = "REVOKE"
	ActionVoteCast = "VOTE_CAST"
	ActionEligible = "ELIGIBILITY_CHECK"
)

// TableName overrides the table name
func (Link) TableName() string {
	return "verification_links"
}

// TableName overrides the table name
func (Log) TableName() string {
	return "verification_logs"
}

// BeforeCreate sets a UUID before creating the record
func (l *Link) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// BeforeCreate sets a UUID before creating the record
func (l *Log) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// NewLink creates an unused verification link with a freshly generated code
func NewLink(meetingID, shareholderID uuid.UUID, linkType LinkType, ttl time.Duration, codeBytes int) (*Link, error) {
	code, err := GenerateCode(codeBytes)
	if err != nil {
		return nil, err
	}

	return &Link{
		ID:            uuid.New(),
		MeetingID:     meetingID,
		ShareholderID: shareholderID,
		Code:          code,
		Type:          linkType,
		ExpiresAt:     time.Now().Add(ttl),
		CreatedAt:     time.Now(),
	}, nil
}

// GenerateCode produces a URL-safe verification code with at least n bytes of
// entropy. n below 12 is raised to 12.
func GenerateCode(n int) (string, error) {
	if n < 12 {
		n = 12
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	code := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
	return strings.ToLower(code), nil
}

// DeepLink builds the method-specific verification URL for this link
func (l *Link) DeepLink(baseURL string) string {
	base := strings.TrimSuffix(baseURL, "/")
	if l.Type == TypeAttendance {
		return fmt.Sprintf("%s/verify/%s/meetings/%s", base, l.Code, l.MeetingID)
	}
	return fmt.Sprintf("%s/verify/%s", base, l.Code)
}

// IsExpired reports whether the link is past its expiry at the given time
func (l *Link) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Validate checks if the link data is valid
func (l *Link) Validate() error {
	if l.MeetingID == uuid.Nil {
		return fmt.Errorf("meeting_id is required")
	}
	if l.ShareholderID == uuid.Nil {
		return fmt.Errorf("shareholder_id is required")
	}
	if l.Code == "" {
		return fmt.Errorf("code is required")
	}
	if l.ExpiresAt.IsZero() {
		return fmt.Errorf("expires_at is required")
	}
	return nil
}

// LinkType distinguishes registration links from attendance links
type LinkType byte

const (
	TypeRegistration LinkType = iota
	TypeAttendance
)

func (t LinkType) String() string {
	switch t {
	case TypeRegistration:
		return "registration"
	case TypeAttendance:
		return "attendance"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaler interface
func (t LinkType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (t *LinkType) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	linkType, valid := LinkTypeFromString(str)
	if !valid {
		return fmt.Errorf("invalid verification type: %s", str)
	}
	*t = linkType
	return nil
}

// LinkTypeFromString converts a string to a LinkType
func LinkTypeFromString(s string) (LinkType, bool) {
	switch s {
	case "registration":
		return TypeRegistration, true
	case "attendance":
		return TypeAttendance, true
	default:
		return TypeRegistration, false
	}
}

// Scan implements the sql.Scanner interface for database deserialization
func (t *LinkType) Scan(value interface{}) error {
	if value == nil {
		*t = TypeRegistration
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into LinkType", value)
	}

	linkType, valid := LinkTypeFromString(str)
	if !valid {
		return fmt.Errorf("invalid verification type value: %s", str)
	}
	*t = linkType
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (t LinkType) Value() (driver.Value, error) {
	return t.String(), nil
}
