// internal/workers/pipeline/auto-screen/models.go
package autoscreen

import "hiring-referrals-workers/internal/pipeline"

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	Result *pipeline.ScreeningResult `json:"result"`

	// NewStatus is the application status after screening. StatusChanged is
	// false only when screening left the application where it was.
	NewStatus     string `json:"newStatus"`
	StatusChanged bool   `json:"statusChanged"`
}

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

type jobRow struct {
	ID                  string
	Title               string
	CompanyName         string
	RequiredSkillsJSON  []byte
	PreferredJSON       []byte
	ExperienceMin       int
	ExperienceMax       int
	EducationRequired   string
	PreferredFieldsJSON []byte
	Location            string
	RemoteAvailable     bool
	SalaryMin           float64
	SalaryMax           float64
}
