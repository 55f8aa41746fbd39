// Package notify defines the outbound notification surfaces of the voting
// engine. Delivery is fire-and-forget: a failed notification never fails the
// operation that triggered it.
package notify

import (
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/quorumdesk/agm-api/internal/logger"
)

// Mailer delivers verification deep links and redemption confirmations to
// shareholders
type Mailer interface {
	SendVerificationLink(email, name, deepLink string) error
	SendRedemptionConfirmation(email, name, linkType string) error
}

// Broadcaster pushes live tally updates to connected result views
type Broadcaster interface {
	BroadcastVoteCast(resolutionID uuid.UUID, totalVotes int64)
}

// LogMailer writes outbound mail to the log instead of delivering it.
// Stands in until an SMTP or provider-backed mailer is wired up.
type LogMailer struct {
	log *log.Logger
}

// NewLogMailer creates a log-backed mailer
func NewLogMailer() *LogMailer {
	return &LogMailer{log: logger.Service("mailer")}
}

// SendVerificationLink implements Mailer
func (m *LogMailer) SendVerificationLink(email, name, deepLink string) error {
	m.log.Info("verification link issued", "email", email, "name", name, "link", deepLink)
	return nil
}

// SendRedemptionConfirmation implements Mailer
func (m *LogMailer) SendRedemptionConfirmation(email, name, linkType string) error {
	m.log.Info("verification redeemed", "email", email, "name", name, "type", linkType)
	return nil
}

// LogBroadcaster writes tally updates to the log instead of pushing them
type LogBroadcaster struct {
	log *log.Logger
}

// NewLogBroadcaster creates a log-backed broadcaster
func NewLogBroadcaster() *LogBroadcaster {
	return &LogBroadcaster{log: logger.Service("broadcaster")}
}

// BroadcastVoteCast implements Broadcaster
func (b *LogBroadcaster) BroadcastVoteCast(resolutionID uuid.UUID, totalVotes int64) {
	b.log.Info("tally updated", "resolution_id", resolutionID, "total_votes", totalVotes)
}
