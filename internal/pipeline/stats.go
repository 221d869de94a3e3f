// internal/pipeline/stats.go
package pipeline

import (
	"fmt"
	"time"

	"hiring-referrals-workers/internal/models"
)

// ConversionRates are the funnel ratios between adjacent stages, formatted
// as "12.5%" or "N/A" when the denominator stage is empty.
type ConversionRates struct {
	ScreeningToShortlist string `json:"screeningToShortlist"`
	ShortlistToInterview string `json:"shortlistToInterview"`
	InterviewToOffer     string `json:"interviewToOffer"`
	OfferToHire          string `json:"offerToHire"`
}

// Stats is a snapshot of the pipeline, optionally scoped to one job.
type Stats struct {
	JobID             string          `json:"jobId,omitempty"`
	TotalApplications int             `json:"totalApplications"`
	ByStatus          map[Status]int  `json:"byStatus"`
	ConversionRates   ConversionRates `json:"conversionRates"`
	CalculatedAt      time.Time       `json:"calculatedAt"`
}

// ComputeStats summarizes a slice of applications. Rows carrying a status
// outside the known table are dropped from both ByStatus and the total.
func ComputeStats(jobID string, apps []models.Application) *Stats {
	counts := make(map[string]int, len(AllStatuses))
	for _, app := range apps {
		counts[app.Status]++
	}
	return ComputeStatsFromCounts(jobID, counts)
}

// ComputeStatsFromCounts builds the snapshot from pre-aggregated per-status
// counts, e.g. a GROUP BY result. Every known status appears in ByStatus
// even when zero.
func ComputeStatsFromCounts(jobID string, counts map[string]int) *Stats {
	byStatus := make(map[Status]int, len(AllStatuses))
	total := 0
	for _, s := range AllStatuses {
		byStatus[s] = counts[string(s)]
		total += counts[string(s)]
	}
	return &Stats{
		JobID:             jobID,
		TotalApplications: total,
		ByStatus:          byStatus,
		ConversionRates: ConversionRates{
			ScreeningToShortlist: rate(byStatus, StatusScreening, StatusShortlisted),
			ShortlistToInterview: rate(byStatus, StatusShortlisted, StatusInterviewScheduled),
			InterviewToOffer:     rate(byStatus, StatusInterviewCompleted, StatusOfferSent),
			OfferToHire:          rate(byStatus, StatusOfferSent, StatusHired),
		},
		CalculatedAt: time.Now().UTC(),
	}
}

func rate(byStatus map[Status]int, from, to Status) string {
	fromCount := byStatus[from]
	if fromCount == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", float64(byStatus[to])/float64(fromCount)*100)
}
