package resolution

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resolution represents a question put to the vote at a meeting, together
// with its share-weighted tally counters. The counter invariants are
// maintained exclusively by the vote repository's tally transaction.
type Resolution struct {
	ID                uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	MeetingID         uuid.UUID    `json:"meeting_id" gorm:"type:uuid;not null;index"`
	Title             string       `json:"title" gorm:"not null"`
	Description       string       `json:"description"`
	VotingMethod      VotingMethod `json:"voting_method" gorm:"type:voting_method;not null"`
	MaxChoices        int          `json:"max_choices" gorm:"not null;default:1"`
	ApprovalThreshold float64      `json:"approval_threshold" gorm:"not null;default:0.5"`
	TotalVotes        int64        `json:"total_votes" gorm:"not null;default:0"`
	YesVotes          int64        `json:"yes_votes" gorm:"not null;default:0"`
	NoVotes           int64        `json:"no_votes" gorm:"not null;default:0"`
	AbstainVotes      int64        `json:"abstain_votes" gorm:"not null;default:0"`
	IsActive          bool         `json:"is_active" gorm:"not null;default:false"`
	CreatedAt         time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"autoUpdateTime"`

	Options    []Option    `json:"options,omitempty" gorm:"foreignKey:ResolutionID"`
	Candidates []Candidate `json:"candidates,omitempty" gorm:"foreignKey:ResolutionID"`
}

// Option is a selectable choice for a multiple-choice resolution
type Option struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ResolutionID uuid.UUID `json:"resolution_id" gorm:"type:uuid;not null;index"`
	OptionValue  string    `json:"option_value" gorm:"not null"`
	VoteCount    int64     `json:"vote_count" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Candidate is a rankable entry for a ranking resolution
type Candidate struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ResolutionID  uuid.UUID `json:"resolution_id" gorm:"type:uuid;not null;index"`
	CandidateCode string    `json:"candidate_code" gorm:"not null"`
	CandidateName string    `json:"candidate_name"`
	VoteCount     int64     `json:"vote_count" gorm:"not null;default:0"`
	IsElected     bool      `json:"is_elected" gorm:"not null;default:false"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Vote is one shareholder's cast ballot for one resolution. The unique
// index on (resolution_id, shareholder_id) is the authoritative
// at-most-once guard; there is no update path.
type Vote struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ResolutionID  uuid.UUID `json:"resolution_id" gorm:"type:uuid;not null;uniqueIndex:idx_vote_resolution_shareholder"`
	ShareholderID uuid.UUID `json:"shareholder_id" gorm:"type:uuid;not null;uniqueIndex:idx_vote_resolution_shareholder"`
	MeetingID     uuid.UUID `json:"meeting_id" gorm:"type:uuid;not null;index"`
	VoteValue     string    `json:"vote_value" gorm:"not null"`
	SharesUsed    int64     `json:"shares_used" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name
func (Resolution) TableName() string {
	return "resolutions"
}

// TableName overrides the table name
func (Option) TableName() string {
	return "resolution_options"
}

// TableName overrides the table name
func (Candidate) TableName() string {
	return "resolution_candidates"
}

// TableName overrides the table name
func (Vote) TableName() string {
	return "votes"
}

// BeforeCreate sets a UUID before creating the record
func (r *Resolution) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeCreate sets a UUID before creating the record
func (o *Option) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// BeforeCreate sets a UUID before creating the record
func (c *Candidate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BeforeCreate sets a UUID before creating the record
func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// NewVote creates a vote row for a validated, canonical ballot value
func NewVote(resolutionID, shareholderID, meetingID uuid.UUID, voteValue string, sharesUsed int64) *Vote {
	return &Vote{
		ID:            uuid.New(),
		ResolutionID:  resolutionID,
		ShareholderID: shareholderID,
		MeetingID:     meetingID,
		VoteValue:     voteValue,
		SharesUsed:    sharesUsed,
		CreatedAt:     time.Now(),
	}
}

// OptionByID returns the owned option with the given id, if any
func (r *Resolution) OptionByID(id uuid.UUID) (*Option, bool) {
	for i := range r.Options {
		if r.Options[i].ID == id {
			return &r.Options[i], true
		}
	}
	return nil, false
}

// CandidateByCode returns the owned candidate with the given code, if any
func (r *Resolution) CandidateByCode(code string) (*Candidate, bool) {
	for i := range r.Candidates {
		if r.Candidates[i].CandidateCode == code {
			return &r.Candidates[i], true
		}
	}
	return nil, false
}

// Validate checks if the resolution data is valid
func (r *Resolution) Validate() error {
	if r.MeetingID == uuid.Nil {
		return fmt.Errorf("meeting_id is required")
	}
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if r.MaxChoices <= 0 {
		return fmt.Errorf("max_choices must be positive")
	}
	if r.ApprovalThreshold < 0 || r.ApprovalThreshold > 1 {
		return fmt.Errorf("approval_threshold must be in [0, 1]")
	}
	return nil
}

// Validate checks if the vote data is valid
func (v *Vote) Validate() error {
	if v.ResolutionID == uuid.Nil {
		return fmt.Errorf("resolution_id is required")
	}
	if v.ShareholderID == uuid.Nil {
		return fmt.Errorf("shareholder_id is required")
	}
	if v.MeetingID == uuid.Nil {
		return fmt.Errorf("meeting_id is required")
	}
	if v.VoteValue == "" {
		return fmt.Errorf("vote_value is required")
	}
	if v.SharesUsed <= 0 {
		return fmt.Errorf("shares_used must be positive")
	}
	return nil
}

// VotingMethod selects the ballot format and tally semantics of a resolution
type VotingMethod byte

const (
	MethodYesNo VotingMethod = iota
	MethodMultipleChoice
	MethodRanking
)

func (m VotingMethod) String() string {
	switch m {
	case MethodYesNo:
		return "yes_no"
	case MethodMultipleChoice:
		return "multiple_choice"
	case MethodRanking:
		return "ranking"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaler interface
func (m VotingMethod) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (m *VotingMethod) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	method, valid := VotingMethodFromString(str)
	if !valid {
		return fmt.Errorf("invalid voting method: %s", str)
	}
	*m = method
	return nil
}

// VotingMethodFromString converts a string to a VotingMethod
func VotingMethodFromString(s string) (VotingMethod, bool) {
	switch s {
	case "yes_no":
		return MethodYesNo, true
	case "multiple_choice":
		return MethodMultipleChoice, true
	case "ranking":
		return MethodRanking, true
	default:
		return MethodYesNo, false
	}
}

// Scan implements the sql.Scanner interface for database deserialization
func (m *VotingMethod) Scan(value interface{}) error {
	if value == nil {
		*m = MethodYesNo
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into VotingMethod", value)
	}

	method, valid := VotingMethodFromString(str)
	if !valid {
		return fmt.Errorf("invalid voting method value: %s", str)
	}
	*m = method
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (m VotingMethod) Value() (driver.Value, error) {
	return m.String(), nil
}
