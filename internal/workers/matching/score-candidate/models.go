// internal/workers/matching/score-candidate/models.go
package scorecandidate

import (
	"hiring-referrals-workers/internal/matching"
)

type Input struct {
	CandidateID string `json:"candidateId"`
	JobID       string `json:"jobId"`
}

type Output struct {
	MatchScore     float64               `json:"matchScore"`
	Recommendation string                `json:"recommendation"`
	AutoShortlist  bool                  `json:"autoShortlist"`
	Match          *matching.MatchResult `json:"match"`
	FromCache      bool                  `json:"fromCache"`
}

// candidateRow mirrors the candidate_profiles table; the list-valued
// columns are stored as JSON text.
type candidateRow struct {
	ID                string
	SkillsJSON        []byte
	ExperienceYears   int
	EducationJSON     []byte
	Location          string
	ExpectedSalary    float64
	WillingToRelocate bool
	DomainExperience  *bool
}

// jobRow mirrors the job_postings table.
type jobRow struct {
	ID                 string
	Title              string
	CompanyName        string
	RequiredSkillsJSON []byte
	PreferredJSON      []byte
	ExperienceMin      int
	ExperienceMax      int
	EducationRequired  string
	PreferredFieldsJSON []byte
	Location           string
	RemoteAvailable    bool
	SalaryMin          float64
	SalaryMax          float64
}
