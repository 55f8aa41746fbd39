package services

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/shareholder"
	"github.com/quorumdesk/agm-api/internal/domain/verification"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

// EligibilityService is the four-step gate every vote passes before it
// reaches the tally: verified link, existing registration, approved
// registration, open attendance. Steps run in order and the first failure
// names itself, so the client can route the shareholder to the right
// remediation.
type EligibilityService struct {
	verifications postgres.VerificationRepository
	registrations postgres.RegistrationRepository
	attendances   postgres.AttendanceRepository
	log           *log.Logger
}

// NewEligibilityService creates a new eligibility service
func NewEligibilityService(
	verifications postgres.VerificationRepository,
	registrations postgres.RegistrationRepository,
	attendances postgres.AttendanceRepository,
) *EligibilityService {
	return &EligibilityService{
		verifications: verifications,
		registrations: registrations,
		attendances:   attendances,
		log:           logger.Service("eligibility"),
	}
}

// Claim is the proven identity and share context of an eligible shareholder.
// The shareholder identity always comes from the verification link, never
// from client-supplied fields.
type Claim struct {
	Link         *verification.Link
	Registration *shareholder.Registration
	Attendance   *shareholder.Attendance
}

// Check runs the eligibility gate for the given verification code. It
// returns a Claim on success and a NotEligibleError naming the failed step
// otherwise.
func (s *EligibilityService) Check(code string) (*Claim, error) {
	link, err := s.verifications.GetByCode(code)
	if err != nil {
		s.log.Debug("eligibility failed: unknown verification code")
		return nil, common.NotEligible(common.StepVerification, "verification code not recognized")
	}

	// A used link with no used_at was revoked, not redeemed.
	if !link.IsUsed || link.UsedAt == nil {
		s.auditFailure(link, "verification link has not been redeemed")
		return nil, common.NotEligible(common.StepVerification, "identity has not been verified")
	}

	// A redeemed link only authorizes actions while it is still live.
	if link.IsExpired(time.Now()) {
		s.auditFailure(link, "verification link has expired")
		return nil, common.NotEligible(common.StepVerification, "verification link has expired")
	}

	reg, err := s.registrations.GetByMeetingAndShareholder(link.MeetingID, link.ShareholderID)
	if err != nil {
		s.auditFailure(link, "no registration for meeting")
		return nil, common.NotEligible(common.StepRegistration, "shareholder is not registered for this meeting")
	}

	if reg.Status != shareholder.RegistrationApproved {
		s.auditFailure(link, "registration not approved")
		return nil, common.NotEligible(common.StepApproval, "registration has not been approved")
	}

	att, err := s.attendances.GetByMeetingAndShareholder(link.MeetingID, link.ShareholderID)
	if err != nil || !att.IsPresent() {
		s.auditFailure(link, "shareholder not present at meeting")
		return nil, common.NotEligible(common.StepAttendance, "shareholder is not checked in to the meeting")
	}

	s.log.Debug("eligibility check passed", "verification_id", link.ID,
		"shareholder_id", link.ShareholderID, "meeting_id", link.MeetingID)

	return &Claim{Link: link, Registration: reg, Attendance: att}, nil
}

func (s *EligibilityService) auditFailure(link *verification.Link, reason string) {
	entry := &verification.Log{
		VerificationID: link.ID,
		Action:         verification.ActionEligible,
		Success:        false,
		ErrorMessage:   reason,
	}
	if err := s.verifications.AppendLog(entry); err != nil {
		s.log.Error("failed to append eligibility audit entry",
			"verification_id", link.ID, "error", err)
	}
}
