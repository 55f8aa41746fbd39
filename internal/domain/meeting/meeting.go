package meeting

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettingMeetingDuration is the settings key holding the meeting duration in minutes
const SettingMeetingDuration = "MEETING_DURATION"

// Meeting represents a shareholder meeting
type Meeting struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	MeetingDate time.Time `json:"meeting_date" gorm:"not null"`
	Location    string    `json:"location"`
	Status      Status    `json:"status" gorm:"type:meeting_status;not null;default:'draft'"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Settings []Setting `json:"settings,omitempty" gorm:"foreignKey:MeetingID"`
}

// Setting is a per-meeting configuration entry
type Setting struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	MeetingID uuid.UUID `json:"meeting_id" gorm:"type:uuid;not null;uniqueIndex:idx_meeting_setting_key"`
	Key       string    `json:"key" gorm:"not null;uniqueIndex:idx_meeting_setting_key"`
	Value     string    `json:"value" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name
func (Meeting) TableName() string {
	return "meetings"
}

// TableName overrides the table name
func (Setting) TableName() string {
	return "meeting_settings"
}

// BeforeCreate sets a UUID before creating the record
func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeCreate sets a UUID before creating the record
func (s *Setting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// NewMeeting creates a new meeting in draft status
func NewMeeting(title, description string, meetingDate time.Time) *Meeting {
	return &Meeting{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		MeetingDate: meetingDate,
		Status:      StatusDraft,
		CreatedAt:   time.Now(),
	}
}

// Duration parses the MEETING_DURATION setting. Returns zero when the
// setting is missing so a meeting without a duration completes immediately
// once started; callers should always configure a duration.
func (m *Meeting) Duration() (time.Duration, error) {
	for _, s := range m.Settings {
		if s.Key == SettingMeetingDuration {
			return ParseDuration(s.Value)
		}
	}
	return 0, nil
}

// ParseDuration converts a MEETING_DURATION setting value (minutes) to a duration
func ParseDuration(value string) (time.Duration, error) {
	minutes, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid meeting duration %q: %w", value, err)
	}
	if minutes < 0 {
		return 0, fmt.Errorf("invalid meeting duration %q: must not be negative", value)
	}
	return time.Duration(minutes) * time.Minute, nil
}

// DeriveStatus computes the time-derived status of a meeting. Only
// scheduled and ongoing meetings derive; draft, cancelled and completed are
// explicit states and are returned unchanged. The function is pure so it can
// back both the periodic sweep and synchronous reads.
func DeriveStatus(now, meetingDate time.Time, duration time.Duration, stored Status) Status {
	if stored != StatusScheduled && stored != StatusOngoing {
		return stored
	}

	meetingEnd := meetingDate.Add(duration)
	switch {
	case now.Before(meetingDate):
		return StatusScheduled
	case now.Before(meetingEnd):
		return StatusOngoing
	default:
		return StatusCompleted
	}
}

// Validate checks if the meeting data is valid
func (m *Meeting) Validate() error {
	if m.Title == "" {
		return fmt.Errorf("title is required")
	}
	if m.MeetingDate.IsZero() {
		return fmt.Errorf("meeting_date is required")
	}
	return nil
}

// Status represents the lifecycle status of a meeting
type Status byte

const (
	StatusDraft Status = iota
	StatusScheduled
	StatusOngoing
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusScheduled:
		return "scheduled"
	case StatusOngoing:
		return "ongoing"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaler interface
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *Status) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	status, valid := StatusFromString(str)
	if !valid {
		return fmt.Errorf("invalid meeting status: %s", str)
	}
	*s = status
	return nil
}

// StatusFromString converts a string to a Status
func StatusFromString(s string) (Status, bool) {
	switch s {
	case "draft":
		return StatusDraft, true
	case "scheduled":
		return StatusScheduled, true
	case "ongoing":
		return StatusOngoing, true
	case "completed":
		return StatusCompleted, true
	case "cancelled":
		return StatusCancelled, true
	default:
		return StatusDraft, false
	}
}

// Scan implements the sql.Scanner interface for database deserialization
func (s *Status) Scan(value interface{}) error {
	if value == nil {
		*s = StatusDraft
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Status", value)
	}

	status, valid := StatusFromString(str)
	if !valid {
		return fmt.Errorf("invalid meeting status value: %s", str)
	}
	*s = status
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}
