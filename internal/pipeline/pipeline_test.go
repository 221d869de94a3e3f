// internal/pipeline/pipeline_test.go
package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-referrals-workers/internal/common/errors"
	"hiring-referrals-workers/internal/matching"
	"hiring-referrals-workers/internal/models"
)

// ============================================================================
// Status table
// ============================================================================

func TestStatusTable(t *testing.T) {
	t.Run("thirteen statuses", func(t *testing.T) {
		assert.Len(t, AllStatuses, 13)
	})

	t.Run("terminal states have no outgoing edges", func(t *testing.T) {
		for _, s := range []Status{StatusHired, StatusRejected, StatusWithdrawn} {
			assert.True(t, IsTerminal(s), "%s", s)
			assert.Empty(t, ValidTransitions(s))
		}
		assert.False(t, IsTerminal(StatusSubmitted))
		assert.False(t, IsTerminal(Status("bogus")))
	})

	t.Run("edge count matches the table", func(t *testing.T) {
		total := 0
		for _, s := range AllStatuses {
			total += len(ValidTransitions(s))
		}
		assert.Equal(t, 27, total)
	})

	t.Run("spot checks", func(t *testing.T) {
		assert.True(t, CanTransition(StatusSubmitted, StatusScreening))
		assert.True(t, CanTransition(StatusOfferAccepted, StatusHired))
		assert.True(t, CanTransition(StatusOnHold, StatusShortlisted))
		assert.False(t, CanTransition(StatusSubmitted, StatusHired))
		assert.False(t, CanTransition(StatusScreening, StatusWithdrawn))
		assert.False(t, CanTransition(StatusHired, StatusRejected))
	})

	t.Run("parse", func(t *testing.T) {
		s, err := ParseStatus("interview_scheduled")
		require.NoError(t, err)
		assert.Equal(t, StatusInterviewScheduled, s)

		_, err = ParseStatus("INTERVIEWING")
		assert.Error(t, err)
	})
}

// ============================================================================
// Transition
// ============================================================================

func TestTransition(t *testing.T) {
	base := models.Application{
		ID:          "app-1",
		JobID:       "job-1",
		CandidateID: "cand-1",
		Status:      string(StatusSubmitted),
		StatusHistory: []models.StatusChange{
			{NewStatus: string(StatusSubmitted)},
		},
	}

	t.Run("valid transition appends history and emits event", func(t *testing.T) {
		updated, event, err := Transition(base, StatusScreening, "system", "auto screen queued")
		require.NoError(t, err)

		assert.Equal(t, string(StatusScreening), updated.Status)
		require.Len(t, updated.StatusHistory, 2)
		last := updated.StatusHistory[1]
		assert.NotEmpty(t, last.ID)
		assert.Equal(t, string(StatusSubmitted), last.OldStatus)
		assert.Equal(t, string(StatusScreening), last.NewStatus)
		assert.Equal(t, "system", last.ChangedBy)
		assert.Equal(t, "auto screen queued", last.Reason)
		assert.WithinDuration(t, time.Now().UTC(), last.Timestamp, time.Minute)

		require.NotNil(t, event)
		assert.Equal(t, EventStatusChanged, event.Type)
		assert.Equal(t, "app-1", event.ApplicationID)
		assert.Equal(t, "job-1", event.JobID)
		assert.Equal(t, "cand-1", event.CandidateID)
		assert.Equal(t, StatusSubmitted, event.OldStatus)
		assert.Equal(t, StatusScreening, event.NewStatus)
		assert.NotEmpty(t, event.ID)

		// the input value stays untouched
		assert.Equal(t, string(StatusSubmitted), base.Status)
		assert.Len(t, base.StatusHistory, 1)
	})

	t.Run("offer accepted to hired", func(t *testing.T) {
		app := base
		app.Status = string(StatusOfferAccepted)

		updated, event, err := Transition(app, StatusHired, "recruiter-7", "")
		require.NoError(t, err)
		assert.Equal(t, string(StatusHired), updated.Status)
		assert.Equal(t, StatusHired, event.NewStatus)
	})

	t.Run("invalid transition lists the alternatives", func(t *testing.T) {
		_, event, err := Transition(base, StatusHired, "system", "")
		require.Error(t, err)
		assert.Nil(t, event)

		se, ok := err.(*errors.StandardError)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeInvalidTransition, se.Code)
		assert.ElementsMatch(t,
			[]string{"screening", "rejected", "withdrawn"},
			se.Metadata["validTransitions"],
		)
	})

	t.Run("terminal state rejects everything", func(t *testing.T) {
		app := base
		app.Status = string(StatusHired)
		_, _, err := Transition(app, StatusRejected, "system", "")
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTransition))
	})

	t.Run("corrupt stored status is a validation error", func(t *testing.T) {
		app := base
		app.Status = "archived"
		_, _, err := Transition(app, StatusScreening, "system", "")
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
	})
}

// ============================================================================
// Auto screening
// ============================================================================

func TestAutoScreen(t *testing.T) {
	m, err := matching.New(matching.DefaultConfig())
	require.NoError(t, err)
	screener := NewScreener(m, DefaultScreeningConfig())

	app := models.Application{ID: "app-9"}

	t.Run("strong match is auto shortlisted", func(t *testing.T) {
		res, err := screener.AutoScreen(app,
			models.JobPosting{
				RequiredSkills: []string{"python", "django"},
				ExperienceMin:  2, ExperienceMax: 6,
				Location: "Bangalore",
			},
			models.CandidateProfile{
				Skills:          []string{"python", "django"},
				ExperienceYears: 4,
				Location:        "Bangalore",
			})
		require.NoError(t, err)

		assert.Equal(t, ScreenAutoShortlist, res.Recommendation)
		assert.Equal(t, StatusShortlisted, res.TargetStatus)
		assert.True(t, res.AutoProcessed)
		assert.Equal(t, "app-9", res.ApplicationID)
		require.NotNil(t, res.Match)
		assert.Equal(t, res.Match.OverallScore, res.Score)
	})

	t.Run("weak match is auto rejected", func(t *testing.T) {
		res, err := screener.AutoScreen(app,
			models.JobPosting{
				RequiredSkills:    []string{"rust"},
				ExperienceMin:     10, ExperienceMax: 12,
				EducationRequired: "phd",
				Location:          "Kochi",
			},
			models.CandidateProfile{
				Skills:          []string{"cobol"},
				ExperienceYears: 0,
				Location:        "Surat",
			})
		require.NoError(t, err)

		assert.Equal(t, ScreenAutoReject, res.Recommendation)
		assert.Equal(t, StatusRejected, res.TargetStatus)
		assert.True(t, res.AutoProcessed)
		assert.LessOrEqual(t, res.Score, 30.0)
	})

	t.Run("middle band goes to manual review", func(t *testing.T) {
		res, err := screener.AutoScreen(app,
			models.JobPosting{
				RequiredSkills: []string{"rust"},
				ExperienceMin:  2, ExperienceMax: 6,
				Location:       "Chennai",
			},
			models.CandidateProfile{
				Skills:          []string{"cobol"},
				ExperienceYears: 4,
				Location:        "Chennai",
			})
		require.NoError(t, err)

		assert.Equal(t, ScreenManualReview, res.Recommendation)
		assert.Equal(t, StatusScreening, res.TargetStatus)
		assert.False(t, res.AutoProcessed)
		assert.Greater(t, res.Score, 30.0)
		assert.Less(t, res.Score, 70.0)
	})

	t.Run("matcher errors pass through", func(t *testing.T) {
		_, err := screener.AutoScreen(app, models.JobPosting{},
			models.CandidateProfile{ExperienceYears: -3})
		assert.ErrorIs(t, err, matching.ErrInvalidProfile)
	})
}

// ============================================================================
// Stats
// ============================================================================

func TestStats(t *testing.T) {
	t.Run("from counts", func(t *testing.T) {
		stats := ComputeStatsFromCounts("job-1", map[string]int{
			"screening":           10,
			"shortlisted":         4,
			"interview_scheduled": 2,
			"offer_sent":          1,
			"hired":               1,
			"legacy_status":       99, // unknown rows are dropped
		})

		assert.Equal(t, "job-1", stats.JobID)
		assert.Equal(t, 18, stats.TotalApplications)
		assert.Len(t, stats.ByStatus, 13)
		assert.Equal(t, 0, stats.ByStatus[StatusAssessment])

		assert.Equal(t, "40.0%", stats.ConversionRates.ScreeningToShortlist)
		assert.Equal(t, "50.0%", stats.ConversionRates.ShortlistToInterview)
		assert.Equal(t, "N/A", stats.ConversionRates.InterviewToOffer)
		assert.Equal(t, "100.0%", stats.ConversionRates.OfferToHire)
		assert.WithinDuration(t, time.Now().UTC(), stats.CalculatedAt, time.Minute)
	})

	t.Run("from applications", func(t *testing.T) {
		stats := ComputeStats("", []models.Application{
			{Status: "screening"},
			{Status: "screening"},
			{Status: "shortlisted"},
		})
		assert.Equal(t, 3, stats.TotalApplications)
		assert.Equal(t, "50.0%", stats.ConversionRates.ScreeningToShortlist)
	})

	t.Run("empty pipeline is all not applicable", func(t *testing.T) {
		stats := ComputeStatsFromCounts("", nil)
		assert.Zero(t, stats.TotalApplications)
		assert.Equal(t, "N/A", stats.ConversionRates.ScreeningToShortlist)
		assert.Equal(t, "N/A", stats.ConversionRates.OfferToHire)
	})
}
