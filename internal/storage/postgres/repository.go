package postgres

import (
	"time"

	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/domain/ballot"
	"github.com/quorumdesk/agm-api/internal/domain/meeting"
	"github.com/quorumdesk/agm-api/internal/domain/resolution"
	"github.com/quorumdesk/agm-api/internal/domain/shareholder"
	"github.com/quorumdesk/agm-api/internal/domain/verification"
)

// PaginationParams controls paginated list queries
type PaginationParams struct {
	Page     int
	PageSize int
}

// PaginatedResult wraps a page of results with pagination metadata
type PaginatedResult struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// MeetingRepository defines storage operations for meetings and their settings
type MeetingRepository interface {
	Create(m *meeting.Meeting) error
	GetByID(id string) (*meeting.Meeting, error)
	ListByStatuses(statuses ...meeting.Status) ([]*meeting.Meeting, error)
	ListWithDurationSetting() ([]*meeting.Meeting, error)
	// UpdateStatusIf transitions a meeting's status only when the stored
	// status still matches from; returns false when another writer won.
	UpdateStatusIf(id uuid.UUID, from, to meeting.Status) (bool, error)
	GetDuration(meetingID uuid.UUID) (time.Duration, bool, error)
	SetSetting(meetingID uuid.UUID, key, value string) error
}

// ShareholderRepository defines storage operations for shareholders
type ShareholderRepository interface {
	Create(s *shareholder.Shareholder) error
	GetByID(id string) (*shareholder.Shareholder, error)
	GetByEmail(email string) (*shareholder.Shareholder, error)
}

// RegistrationRepository defines storage operations for meeting registrations
type RegistrationRepository interface {
	Create(r *shareholder.Registration) error
	GetByMeetingAndShareholder(meetingID, shareholderID uuid.UUID) (*shareholder.Registration, error)
	UpdateStatus(id uuid.UUID, status shareholder.RegistrationStatus) error
}

// AttendanceRepository defines storage operations for meeting attendance
type AttendanceRepository interface {
	Create(a *shareholder.Attendance) error
	GetByMeetingAndShareholder(meetingID, shareholderID uuid.UUID) (*shareholder.Attendance, error)
	ListOpenByMeeting(meetingID uuid.UUID) ([]*shareholder.Attendance, error)
	// Checkout closes an open attendance; the update is conditional on
	// checkout_time still being null so a concurrent explicit checkout and
	// the expiry sweep cannot both win. Returns false when already closed.
	Checkout(id uuid.UUID, at time.Time, note string) (bool, error)
}

// VerificationRepository defines storage operations for verification links
// and their audit trail
type VerificationRepository interface {
	Create(link *verification.Link) error
	GetByCode(code string) (*verification.Link, error)
	GetByID(id uuid.UUID) (*verification.Link, error)
	// Redeem atomically flips is_used and creates the associated
	// registration or attendance row when missing. The conditional update on
	// is_used is the serialization point for concurrent redemptions.
	Redeem(link *verification.Link, ip, device string, now time.Time) (*RedeemResult, error)
	// Revoke terminally disables an unused link.
	Revoke(id uuid.UUID, now time.Time) error
	AppendLog(entry *verification.Log) error
}

// RedeemResult reports what a successful redemption created or confirmed
type RedeemResult struct {
	Link         *verification.Link
	Registration *shareholder.Registration
	Attendance   *shareholder.Attendance
	Created      bool
}

// ResolutionRepository defines storage operations for resolutions
type ResolutionRepository interface {
	Create(r *resolution.Resolution) error
	GetByID(id string) (*resolution.Resolution, error)
	ListByMeeting(meetingID uuid.UUID) ([]*resolution.Resolution, error)
}

// VoteRepository defines storage operations for votes and the share-weighted
// tally counters they drive
type VoteRepository interface {
	// CastVote inserts the vote and applies all counter increments in one
	// transaction; the unique (resolution, shareholder) index is the
	// authoritative at-most-once guard.
	CastVote(v *resolution.Vote, b ballot.Ballot, verificationID uuid.UUID) error
	// DeleteVote is the exact inverse of CastVote, in one transaction.
	DeleteVote(id uuid.UUID) error
	GetByID(id string) (*resolution.Vote, error)
	HasVoted(resolutionID, shareholderID uuid.UUID) (bool, error)
	GetByResolutionPaginated(resolutionID uuid.UUID, params PaginationParams) (*PaginatedResult, error)
}
