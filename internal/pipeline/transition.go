// internal/pipeline/transition.go
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"hiring-referrals-workers/internal/common/errors"
	"hiring-referrals-workers/internal/models"
)

// EventStatusChanged is the type carried by every transition event.
const EventStatusChanged = "application.status_changed"

// Event describes one applied transition for downstream dispatchers
// (notifications, gamification, referral sync). Producing it has no side
// effects; the caller decides what to do with it.
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	ApplicationID string    `json:"applicationId"`
	JobID         string    `json:"jobId"`
	CandidateID   string    `json:"candidateId"`
	OldStatus     Status    `json:"oldStatus"`
	NewStatus     Status    `json:"newStatus"`
	Actor         string    `json:"actor"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Transition applies one status change. The input application is not
// mutated; on success the returned copy carries the new status, a fresh
// history entry and an event descriptor. An unreachable target returns a
// structured error listing the valid alternatives.
func Transition(app models.Application, to Status, actor, reason string) (models.Application, *Event, error) {
	from, err := ParseStatus(app.Status)
	if err != nil {
		return app, nil, errors.NewValidationFailedError(err.Error())
	}

	if !CanTransition(from, to) {
		return app, nil, errors.NewInvalidTransitionError(string(from), string(to), statusStrings(ValidTransitions(from)))
	}

	now := time.Now().UTC()
	change := models.StatusChange{
		ID:        uuid.New().String(),
		OldStatus: string(from),
		NewStatus: string(to),
		ChangedBy: actor,
		Reason:    reason,
		Timestamp: now,
	}

	updated := app
	updated.StatusHistory = make([]models.StatusChange, len(app.StatusHistory), len(app.StatusHistory)+1)
	copy(updated.StatusHistory, app.StatusHistory)
	updated.StatusHistory = append(updated.StatusHistory, change)
	updated.Status = string(to)
	updated.UpdatedAt = now

	event := &Event{
		ID:            uuid.New().String(),
		Type:          EventStatusChanged,
		ApplicationID: app.ID,
		JobID:         app.JobID,
		CandidateID:   app.CandidateID,
		OldStatus:     from,
		NewStatus:     to,
		Actor:         actor,
		Reason:        reason,
		OccurredAt:    now,
	}
	return updated, event, nil
}

func statusStrings(in []Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
