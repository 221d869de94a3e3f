// internal/workers/pipeline/update-status/models.go
package updatestatus

import (
	"hiring-referrals-workers/internal/notify"
	"hiring-referrals-workers/internal/pipeline"
)

type Input struct {
	ApplicationID string `json:"applicationId"`
	NewStatus     string `json:"newStatus"`
	ChangedBy     string `json:"changedBy,omitempty"`
	Reason        string `json:"reason,omitempty"`

	// CandidatePhone enables the SMS channel when present; email comes from
	// the application record.
	CandidatePhone string `json:"candidatePhone,omitempty"`
}

type Output struct {
	ApplicationID string          `json:"applicationId"`
	OldStatus     string          `json:"oldStatus"`
	NewStatus     string          `json:"newStatus"`
	Event         *pipeline.Event `json:"event"`
	Notification  *notify.Result  `json:"notification,omitempty"`

	// PointsAwarded is the total gamification credit issued by this
	// transition, zero for anything but a hire.
	PointsAwarded int `json:"pointsAwarded"`
}

type applicationRow struct {
	ID             string
	JobID          string
	CandidateID    string
	RecruiterID    string
	ReferrerID     string
	CandidateEmail string
	Status         string
}
