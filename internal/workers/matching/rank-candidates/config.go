// internal/workers/matching/rank-candidates/config.go
package rankcandidates

import (
	"time"

	"hiring-referrals-workers/internal/common/config"
	"hiring-referrals-workers/internal/matching"
)

type Config struct {
	Timeout     time.Duration
	ResumeIndex string
	// FetchSize caps how many resumes one ranking pass pulls from the index.
	FetchSize int
	Matching  matching.Config
}

func LoadConfig(app *config.Config) *Config {
	wc := config.WorkerConfig{Timeout: 30000}
	index := "resumes"
	if app != nil {
		wc = config.GetWorkerConfig(app, TaskType)
		if app.Database.Elasticsearch.ResumeIndex != "" {
			index = app.Database.Elasticsearch.ResumeIndex
		}
	}

	mc := matching.DefaultConfig()
	if app != nil && app.Matching.Weights.Skills > 0 {
		mc.Weights.Skills = app.Matching.Weights.Skills
		mc.Weights.Experience = app.Matching.Weights.Experience
		mc.Weights.Education = app.Matching.Weights.Education
		mc.Weights.Location = app.Matching.Weights.Location
		mc.Weights.Salary = app.Matching.Weights.Salary
	}

	return &Config{
		Timeout:     config.GetDuration(wc.Timeout),
		ResumeIndex: index,
		FetchSize:   200,
		Matching:    mc,
	}
}
