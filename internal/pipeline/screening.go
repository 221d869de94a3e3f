// internal/pipeline/screening.go
package pipeline

import (
	"time"

	"hiring-referrals-workers/internal/matching"
	"hiring-referrals-workers/internal/models"
)

// ScreeningConfig carries the auto-decision thresholds. Scores between the
// two bounds go to a human.
type ScreeningConfig struct {
	AutoShortlistThreshold float64 `mapstructure:"auto_shortlist_threshold" json:"autoShortlistThreshold"`
	AutoRejectThreshold    float64 `mapstructure:"auto_reject_threshold" json:"autoRejectThreshold"`
}

// DefaultScreeningConfig returns the production thresholds.
func DefaultScreeningConfig() ScreeningConfig {
	return ScreeningConfig{
		AutoShortlistThreshold: 70,
		AutoRejectThreshold:    30,
	}
}

// Screening recommendations.
const (
	ScreenAutoShortlist = "auto_shortlist"
	ScreenAutoReject    = "auto_reject"
	ScreenManualReview  = "manual_review"
)

// ScreeningResult is the outcome of one automatic screen. Match always
// carries the full factor breakdown so the decision is auditable.
type ScreeningResult struct {
	ApplicationID  string                `json:"applicationId"`
	Score          float64               `json:"score"`
	Recommendation string                `json:"recommendation"`
	TargetStatus   Status                `json:"targetStatus"`
	AutoProcessed  bool                  `json:"autoProcessed"`
	Match          *matching.MatchResult `json:"match"`
	ScreenedAt     time.Time             `json:"screenedAt"`
}

// Screener runs the matcher over a fresh application and decides whether it
// can skip human review.
type Screener struct {
	matcher *matching.Matcher
	cfg     ScreeningConfig
}

// NewScreener builds a Screener around an existing Matcher.
func NewScreener(m *matching.Matcher, cfg ScreeningConfig) *Screener {
	return &Screener{matcher: m, cfg: cfg}
}

// AutoScreen scores the candidate against the job and picks a target
// status: shortlisted above the upper bound, rejected below the lower one,
// screening (manual review) in between.
func (s *Screener) AutoScreen(app models.Application, job models.JobPosting, candidate models.CandidateProfile) (*ScreeningResult, error) {
	match, err := s.matcher.Score(candidate, job)
	if err != nil {
		return nil, err
	}

	out := &ScreeningResult{
		ApplicationID: app.ID,
		Score:         match.OverallScore,
		Match:         match,
		ScreenedAt:    time.Now().UTC(),
	}
	switch {
	case match.OverallScore >= s.cfg.AutoShortlistThreshold:
		out.Recommendation = ScreenAutoShortlist
		out.TargetStatus = StatusShortlisted
		out.AutoProcessed = true
	case match.OverallScore <= s.cfg.AutoRejectThreshold:
		out.Recommendation = ScreenAutoReject
		out.TargetStatus = StatusRejected
		out.AutoProcessed = true
	default:
		out.Recommendation = ScreenManualReview
		out.TargetStatus = StatusScreening
	}
	return out, nil
}
