package shareholder

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shareholder represents a holder of shares eligible to attend meetings
type Shareholder struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Email       string    `json:"email" gorm:"not null;uniqueIndex"`
	TotalShares int64     `json:"total_shares" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Registration records a shareholder's intent to attend a meeting.
// One per (meeting, shareholder) pair, enforced by a unique index.
type Registration struct {
	ID               uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	MeetingID        uuid.UUID          `json:"meeting_id" gorm:"type:uuid;not null;uniqueIndex:idx_registration_meeting_shareholder"`
	ShareholderID    uuid.UUID          `json:"shareholder_id" gorm:"type:uuid;not null;uniqueIndex:idx_registration_meeting_shareholder"`
	Status           RegistrationStatus `json:"status" gorm:"type:registration_status;not null;default:'pending'"`
	SharesRegistered int64              `json:"shares_registered" gorm:"not null;default:0"`
	CreatedAt        time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time          `json:"updated_at" gorm:"autoUpdateTime"`

	Shareholder Shareholder `json:"shareholder,omitempty" gorm:"foreignKey:ShareholderID"`
}

// Attendance records a shareholder's presence at a meeting.
// A null CheckoutTime means currently present; it is set exactly once, by
// explicit checkout or by the attendance expiry sweep.
type Attendance struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	MeetingID     uuid.UUID  `json:"meeting_id" gorm:"type:uuid;not null;uniqueIndex:idx_attendance_meeting_shareholder"`
	ShareholderID uuid.UUID  `json:"shareholder_id" gorm:"type:uuid;not null;uniqueIndex:idx_attendance_meeting_shareholder"`
	CheckinTime   time.Time  `json:"checkin_time" gorm:"not null"`
	CheckoutTime  *time.Time `json:"checkout_time"`
	CheckoutNote  string     `json:"checkout_note"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Shareholder Shareholder `json:"shareholder,omitempty" gorm:"foreignKey:ShareholderID"`
}

// TableName overrides the table name
func (Shareholder) TableName() string {
	return "shareholders"
}

// TableName overrides the table name
func (Registration) TableName() string {
	return "registrations"
}

// TableName overrides the table name
func (Attendance) TableName() string {
	return "attendances"
}

// BeforeCreate sets a UUID before creating the record
func (s *Shareholder) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// BeforeCreate sets a UUID before creating the record
func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeCreate sets a UUID before creating the record
func (a *Attendance) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// NewRegistration creates a pending registration carrying the shareholder's
// current share balance
func NewRegistration(meetingID, shareholderID uuid.UUID, shares int64) *Registration {
	return &Registration{
		ID:               uuid.New(),
		MeetingID:        meetingID,
		ShareholderID:    shareholderID,
		Status:           RegistrationPending,
		SharesRegistered: shares,
		CreatedAt:        time.Now(),
	}
}

// NewAttendance creates an attendance record checked in at the given time
func NewAttendance(meetingID, shareholderID uuid.UUID, checkin time.Time) *Attendance {
	return &Attendance{
		ID:            uuid.New(),
		MeetingID:     meetingID,
		ShareholderID: shareholderID,
		CheckinTime:   checkin,
		CreatedAt:     checkin,
	}
}

// IsPresent reports whether the attendance is still open
func (a *Attendance) IsPresent() bool {
	return a.CheckoutTime == nil
}

// Validate checks if the registration data is valid
func (r *Registration) Validate() error {
	if r.MeetingID == uuid.Nil {
		return fmt.Errorf("meeting_id is required")
	}
	if r.ShareholderID == uuid.Nil {
		return fmt.Errorf("shareholder_id is required")
	}
	if r.SharesRegistered < 0 {
		return fmt.Errorf("shares_registered must not be negative")
	}
	return nil
}

// RegistrationStatus represents the approval state of a registration
type RegistrationStatus byte

const (
	RegistrationPending RegistrationStatus = iota
	RegistrationApproved
	RegistrationRejected
	RegistrationCancelled
)

func (s RegistrationStatus) String() string {
	switch s {
	case RegistrationPending:
		return "pending"
	case RegistrationApproved:
		return "approved"
	case RegistrationRejected:
		return "rejected"
	case RegistrationCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaler interface
func (s RegistrationStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *RegistrationStatus) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	status, valid := RegistrationStatusFromString(str)
	if !valid {
		return fmt.Errorf("invalid registration status: %s", str)
	}
	*s = status
	return nil
}

// RegistrationStatusFromString converts a string to a RegistrationStatus
func RegistrationStatusFromString(s string) (RegistrationStatus, bool) {
	switch s {
	case "pending":
		return RegistrationPending, true
	case "approved":
		return RegistrationApproved, true
	case "rejected":
		return RegistrationRejected, true
	case "cancelled":
		return RegistrationCancelled, true
	default:
		return RegistrationPending, false
	}
}

// Scan implements the sql.Scanner interface for database deserialization
func (s *RegistrationStatus) Scan(value interface{}) error {
	if value == nil {
		*s = RegistrationPending
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into RegistrationStatus", value)
	}

	status, valid := RegistrationStatusFromString(str)
	if !valid {
		return fmt.Errorf("invalid registration status value: %s", str)
	}
	*s = status
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (s RegistrationStatus) Value() (driver.Value, error) {
	return s.String(), nil
}
