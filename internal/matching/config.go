// internal/matching/config.go
package matching

// Weights are the factor weights applied to the five sub-scores. They are
// expected to sum to 1.0; Config.Validate enforces it.
type Weights struct {
	Skills     float64 `mapstructure:"skills" json:"skills"`
	Experience float64 `mapstructure:"experience" json:"experience"`
	Education  float64 `mapstructure:"education" json:"education"`
	Location   float64 `mapstructure:"location" json:"location"`
	Salary     float64 `mapstructure:"salary" json:"salary"`
}

// Config carries everything the Matcher consults: weights, recommendation
// thresholds, the related-skill adjacency map, the education hierarchy and
// the metro list. All of it is injectable so deployments can tune scoring
// without a code change.
type Config struct {
	Weights Weights `mapstructure:"weights" json:"weights"`

	AutoShortlistThreshold float64 `mapstructure:"auto_shortlist_threshold" json:"autoShortlistThreshold"`
	ManualReviewThreshold  float64 `mapstructure:"manual_review_threshold" json:"manualReviewThreshold"`
	ConsiderThreshold      float64 `mapstructure:"consider_threshold" json:"considerThreshold"`

	// RelatedSkills maps a skill to skills considered adjacent to it. The
	// relation is applied symmetrically at match time.
	RelatedSkills map[string][]string `mapstructure:"related_skills" json:"relatedSkills"`

	// EducationLevels orders level names; higher value means higher level.
	EducationLevels map[string]int `mapstructure:"education_levels" json:"educationLevels"`

	// MetroCities get partial location credit when both sides are metros.
	MetroCities []string `mapstructure:"metro_cities" json:"metroCities"`
}

// DefaultConfig returns the production scoring table.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Skills:     0.40,
			Experience: 0.25,
			Education:  0.15,
			Location:   0.10,
			Salary:     0.10,
		},
		AutoShortlistThreshold: 70,
		ManualReviewThreshold:  60,
		ConsiderThreshold:      40,
		RelatedSkills: map[string][]string{
			"python":     {"django", "flask", "fastapi", "pandas", "numpy"},
			"javascript": {"typescript", "react", "angular", "vue", "node.js"},
			"java":       {"spring", "spring boot", "hibernate", "kotlin"},
			"react":      {"react native", "next.js", "redux"},
			"aws":        {"azure", "gcp", "cloud computing"},
			"sql":        {"mysql", "postgresql", "oracle", "mongodb"},
			"docker":     {"kubernetes", "containerization", "devops"},
			"machine learning": {"deep learning", "tensorflow", "pytorch", "data science"},
		},
		EducationLevels: map[string]int{
			"phd":         5,
			"masters":     4,
			"bachelors":   3,
			"diploma":     2,
			"high_school": 1,
		},
		MetroCities: []string{
			"bangalore", "mumbai", "delhi", "hyderabad", "chennai", "pune", "kolkata",
		},
	}
}

// Validate rejects configs that would make scores meaningless.
func (c Config) Validate() error {
	sum := c.Weights.Skills + c.Weights.Experience + c.Weights.Education +
		c.Weights.Location + c.Weights.Salary
	if sum < 0.999 || sum > 1.001 {
		return errWeightsSum
	}
	if c.AutoShortlistThreshold < c.ManualReviewThreshold ||
		c.ManualReviewThreshold < c.ConsiderThreshold {
		return errThresholdOrder
	}
	return nil
}
