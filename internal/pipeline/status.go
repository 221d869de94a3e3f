// internal/pipeline/status.go
package pipeline

import "fmt"

// Status is one application lifecycle state.
type Status string

const (
	StatusSubmitted          Status = "submitted"
	StatusScreening          Status = "screening"
	StatusShortlisted        Status = "shortlisted"
	StatusInterviewScheduled Status = "interview_scheduled"
	StatusInterviewCompleted Status = "interview_completed"
	StatusAssessment         Status = "assessment"
	StatusOfferPending       Status = "offer_pending"
	StatusOfferSent          Status = "offer_sent"
	StatusOfferAccepted      Status = "offer_accepted"
	StatusHired              Status = "hired"
	StatusRejected           Status = "rejected"
	StatusWithdrawn          Status = "withdrawn"
	StatusOnHold             Status = "on_hold"
)

// AllStatuses lists every status in funnel order.
var AllStatuses = []Status{
	StatusSubmitted,
	StatusScreening,
	StatusShortlisted,
	StatusInterviewScheduled,
	StatusInterviewCompleted,
	StatusAssessment,
	StatusOfferPending,
	StatusOfferSent,
	StatusOfferAccepted,
	StatusHired,
	StatusRejected,
	StatusWithdrawn,
	StatusOnHold,
}

// transitions is the exhaustive adjacency table. A pair absent here is
// invalid; terminal states have no entry.
var transitions = map[Status][]Status{
	StatusSubmitted:          {StatusScreening, StatusRejected, StatusWithdrawn},
	StatusScreening:          {StatusShortlisted, StatusRejected, StatusOnHold},
	StatusShortlisted:        {StatusInterviewScheduled, StatusRejected, StatusWithdrawn},
	StatusInterviewScheduled: {StatusInterviewCompleted, StatusRejected, StatusWithdrawn},
	StatusInterviewCompleted: {StatusAssessment, StatusOfferPending, StatusRejected},
	StatusAssessment:         {StatusOfferPending, StatusRejected},
	StatusOfferPending:       {StatusOfferSent, StatusRejected},
	StatusOfferSent:          {StatusOfferAccepted, StatusRejected, StatusWithdrawn},
	StatusOfferAccepted:      {StatusHired, StatusWithdrawn},
	StatusOnHold:             {StatusScreening, StatusShortlisted, StatusRejected},
}

var valid = func() map[Status]bool {
	m := make(map[Status]bool, len(AllStatuses))
	for _, s := range AllStatuses {
		m[s] = true
	}
	return m
}()

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !valid[st] {
		return "", fmt.Errorf("unknown application status %q", s)
	}
	return st, nil
}

// ValidTransitions returns a copy of the allowed targets from s. Empty for
// terminal or unknown states.
func ValidTransitions(s Status) []Status {
	targets := transitions[s]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	return valid[s] && len(transitions[s]) == 0
}
