// internal/models/job.go
package models

// JobPosting holds the requirement side of a match computation.
type JobPosting struct {
	ID                string   `json:"id"`
	Title             string   `json:"title,omitempty"`
	CompanyName       string   `json:"companyName,omitempty"`
	RequiredSkills    []string `json:"requiredSkills"`
	PreferredSkills   []string `json:"preferredSkills,omitempty"`
	ExperienceMin     int      `json:"experienceMin"`
	ExperienceMax     int      `json:"experienceMax,omitempty"`
	EducationRequired string   `json:"educationRequired,omitempty"`
	PreferredFields   []string `json:"preferredFields,omitempty"`
	Location          string   `json:"location"`
	RemoteAvailable   bool     `json:"remoteAvailable,omitempty"`
	SalaryMin         float64  `json:"salaryMin,omitempty"`
	SalaryMax         float64  `json:"salaryMax,omitempty"`
}
