package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/config"
	"github.com/quorumdesk/agm-api/internal/domain/common"
	"github.com/quorumdesk/agm-api/internal/domain/meeting"
	"github.com/quorumdesk/agm-api/internal/domain/shareholder"
	"github.com/quorumdesk/agm-api/internal/domain/verification"
	"github.com/quorumdesk/agm-api/internal/logger"
	"github.com/quorumdesk/agm-api/internal/notify"
	"github.com/quorumdesk/agm-api/internal/storage/postgres"
)

// VerificationService orchestrates issuing, redeeming and revoking
// verification links
type VerificationService struct {
	verifications postgres.VerificationRepository
	shareholders  postgres.ShareholderRepository
	meetings      postgres.MeetingRepository
	mailer        notify.Mailer
	cfg           *config.Config
	log           *log.Logger
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	verifications postgres.VerificationRepository,
	shareholders postgres.ShareholderRepository,
	meetings postgres.MeetingRepository,
	mailer notify.Mailer,
	cfg *config.Config,
) *VerificationService {
	return &VerificationService{
		verifications: verifications,
		shareholders:  shareholders,
		meetings:      meetings,
		mailer:        mailer,
		cfg:           cfg,
		log:           logger.Service("verification"),
	}
}

// IssueResult reports the outcome of issuing one link in a batch
type IssueResult struct {
	ShareholderID uuid.UUID          `json:"shareholder_id"`
	Link          *verification.Link `json:"link,omitempty"`
	DeepLink      string             `json:"deep_link,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// IssueBatch creates one verification link per shareholder and mails out the
// deep links. Each shareholder is processed independently so one bad id does
// not sink the batch.
func (s *VerificationService) IssueBatch(meetingID uuid.UUID, shareholderIDs []uuid.UUID, linkType verification.LinkType) []IssueResult {
	results := make([]IssueResult, 0, len(shareholderIDs))

	for _, shareholderID := range shareholderIDs {
		result := IssueResult{ShareholderID: shareholderID}

		link, deepLink, err := s.Issue(meetingID, shareholderID, linkType)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Link = link
			result.DeepLink = deepLink
		}

		results = append(results, result)
	}

	s.log.Info("verification batch issued", "meeting_id", meetingID,
		"requested", len(shareholderIDs), "type", linkType.String())
	return results
}

// Issue creates a single verification link and sends its deep link to the
// shareholder. Mail delivery is fire-and-forget.
func (s *VerificationService) Issue(meetingID, shareholderID uuid.UUID, linkType verification.LinkType) (*verification.Link, string, error) {
	holder, err := s.shareholders.GetByID(shareholderID.String())
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve shareholder: %w", err)
	}

	link, err := verification.NewLink(meetingID, shareholderID, linkType,
		s.cfg.Verification.LinkTTL, s.cfg.Verification.CodeSize)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build verification link: %w", err)
	}

	if err := s.verifications.Create(link); err != nil {
		return nil, "", err
	}

	deepLink := link.DeepLink(s.cfg.Verification.BaseURL)

	go func() {
		if err := s.mailer.SendVerificationLink(holder.Email, holder.Name, deepLink); err != nil {
			s.log.Error("failed to send verification link", "verification_id", link.ID, "error", err)
		}
	}()

	return link, deepLink, nil
}

// RedeemOutcome is the full read model a successful redemption returns: the
// consumed link, the meeting and shareholder it binds, the registration or
// attendance it created or confirmed, and the redirect target for the client.
type RedeemOutcome struct {
	Link         *verification.Link        `json:"link"`
	Meeting      *meeting.Meeting          `json:"meeting"`
	Shareholder  *shareholder.Shareholder  `json:"shareholder"`
	Registration *shareholder.Registration `json:"registration,omitempty"`
	Attendance   *shareholder.Attendance   `json:"attendance,omitempty"`
	Created      bool                      `json:"created"`
	RedirectURL  string                    `json:"redirect_url"`
}

// Redeem resolves a code and consumes it. Failed attempts are recorded in the
// audit log when the link itself could be resolved; an unknown code has no
// link to log against. A confirmation mail goes out after the redemption
// commits; its delivery never rolls anything back.
func (s *VerificationService) Redeem(code, ip, device string) (*RedeemOutcome, error) {
	now := time.Now()

	link, err := s.verifications.GetByCode(code)
	if err != nil {
		return nil, err
	}

	result, err := s.verifications.Redeem(link, ip, device, now)
	if err != nil {
		s.auditFailure(link.ID, verification.ActionRedeem, ip, device, err)
		return nil, err
	}

	m, err := s.meetings.GetByID(link.MeetingID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve meeting for redeemed link: %w", err)
	}

	holder, err := s.shareholders.GetByID(link.ShareholderID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve shareholder for redeemed link: %w", err)
	}

	go func() {
		if err := s.mailer.SendRedemptionConfirmation(holder.Email, holder.Name, result.Link.Type.String()); err != nil {
			s.log.Error("failed to send redemption confirmation", "verification_id", link.ID, "error", err)
		}
	}()

	return &RedeemOutcome{
		Link:         result.Link,
		Meeting:      m,
		Shareholder:  holder,
		Registration: result.Registration,
		Attendance:   result.Attendance,
		Created:      result.Created,
		RedirectURL:  result.Link.DeepLink(s.cfg.Verification.BaseURL),
	}, nil
}

// Revoke terminally disables an unused verification link
func (s *VerificationService) Revoke(id uuid.UUID) error {
	now := time.Now()

	if err := s.verifications.Revoke(id, now); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.auditFailure(id, verification.ActionRevoke, "", "", err)
		}
		return err
	}

	entry := &verification.Log{
		VerificationID: id,
		Action:         verification.ActionRevoke,
		Success:        true,
	}
	if err := s.verifications.AppendLog(entry); err != nil {
		s.log.Error("failed to log revocation", "verification_id", id, "error", err)
	}

	return nil
}

// auditFailure appends a failed-attempt entry; the audit trail is best-effort
// for failures and must never mask the original error.
func (s *VerificationService) auditFailure(verificationID uuid.UUID, action, ip, device string, cause error) {
	entry := &verification.Log{
		VerificationID: verificationID,
		Action:         action,
		IP:             ip,
		UserAgent:      device,
		Success:        false,
		ErrorMessage:   cause.Error(),
	}
	if err := s.verifications.AppendLog(entry); err != nil {
		s.log.Error("failed to append failure audit entry",
			"verification_id", verificationID, "action", action, "error", err)
	}
}
