// internal/models/application.go
package models

import "time"

// StatusChange is one entry in an application's audit history.
type StatusChange struct {
	ID        string    `json:"id"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	ChangedBy string    `json:"changedBy"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Application is the subject of the status pipeline. StatusHistory is
// append-only; Status always equals the last entry's NewStatus.
type Application struct {
	ID             string         `json:"id"`
	JobID          string         `json:"jobId"`
	CandidateID    string         `json:"candidateId"`
	ResumeID       string         `json:"resumeId,omitempty"`
	RecruiterID    string         `json:"recruiterId,omitempty"`
	ReferrerID     string         `json:"referrerId,omitempty"`
	CandidateEmail string         `json:"candidateEmail,omitempty"`
	Status         string         `json:"status"`
	StatusHistory  []StatusChange `json:"statusHistory,omitempty"`
	ScreeningScore float64        `json:"screeningScore,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}
