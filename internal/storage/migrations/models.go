package migrations

import (
	"github.com/quorumdesk/agm-api/internal/domain/meeting"
	"github.com/quorumdesk/agm-api/internal/domain/resolution"
	"github.com/quorumdesk/agm-api/internal/domain/shareholder"
	"github.com/quorumdesk/agm-api/internal/domain/verification"
)

// AllModels returns every model managed by the schema, in dependency order
func AllModels() []interface{} {
	return []interface{}{
		&shareholder.Shareholder{},
		&meeting.Meeting{},
		&meeting.Setting{},
		&shareholder.Registration{},
		&shareholder.Attendance{},
		&verification.Link{},
		&verification.Log{},
		&resolution.Resolution{},
		&resolution.Option{},
		&resolution.Candidate{},
		&resolution.Vote{},
	}
}
