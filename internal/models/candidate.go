// internal/models/candidate.go
package models

// Education is a single education record parsed from a resume.
type Education struct {
	Level       string `json:"level"`
	Field       string `json:"field,omitempty"`
	Institution string `json:"institution,omitempty"`
}

// CandidateProfile is the candidate side of a match computation. It is
// typically assembled from a parsed resume rather than stored as-is.
type CandidateProfile struct {
	ID                string      `json:"id"`
	Skills            []string    `json:"skills"`
	ExperienceYears   int         `json:"experienceYears"`
	Education         []Education `json:"education"`
	Location          string      `json:"location"`
	ExpectedSalary    float64     `json:"expectedSalary,omitempty"`
	WillingToRelocate bool        `json:"willingToRelocate,omitempty"`

	// DomainExperience marks whether the candidate's experience is in the
	// job's domain. Nil means unknown and is treated as relevant.
	DomainExperience *bool `json:"domainExperience,omitempty"`
}
