// internal/workers/matching/rank-candidates/models.go
package rankcandidates

import (
	"hiring-referrals-workers/internal/matching"
	"hiring-referrals-workers/internal/models"
)

type Input struct {
	JobID    string  `json:"jobId"`
	Limit    int     `json:"limit,omitempty"`
	MinScore float64 `json:"minScore,omitempty"`
}

// RankedCandidate is one row of the ranking, best first.
type RankedCandidate struct {
	CandidateID    string                `json:"candidateId"`
	ResumeID       string                `json:"resumeId"`
	Name           string                `json:"name,omitempty"`
	Score          float64               `json:"score"`
	Recommendation string                `json:"recommendation"`
	Match          *matching.MatchResult `json:"match"`
}

type Output struct {
	JobID           string            `json:"jobId"`
	TotalCandidates int               `json:"totalCandidates"`
	Returned        int               `json:"returned"`
	Matches         []RankedCandidate `json:"matches"`
}

// resumeDoc is the indexed shape of a parsed resume.
type resumeDoc struct {
	CandidateID       string             `json:"candidateId"`
	Name              string             `json:"name"`
	Skills            []string           `json:"skills"`
	ExperienceYears   int                `json:"experienceYears"`
	Education         []models.Education `json:"education"`
	Location          string             `json:"location"`
	ExpectedSalary    float64            `json:"expectedSalary"`
	WillingToRelocate bool               `json:"willingToRelocate"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string    `json:"_id"`
			Source resumeDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
