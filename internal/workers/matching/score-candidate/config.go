// internal/workers/matching/score-candidate/config.go
package scorecandidate

import (
	"time"

	"hiring-referrals-workers/internal/common/config"
	"hiring-referrals-workers/internal/matching"
)

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	Matching matching.Config
}

// LoadConfig builds the worker config, applying any scoring overrides from
// the application config on top of the matcher defaults.
func LoadConfig(app *config.Config) *Config {
	wc := config.WorkerConfig{Timeout: 30000}
	if app != nil {
		wc = config.GetWorkerConfig(app, TaskType)
	}

	mc := matching.DefaultConfig()
	if app != nil {
		if w := app.Matching.Weights; w.Skills > 0 {
			mc.Weights.Skills = w.Skills
			mc.Weights.Experience = w.Experience
			mc.Weights.Education = w.Education
			mc.Weights.Location = w.Location
			mc.Weights.Salary = w.Salary
		}
		if app.Matching.AutoShortlistThreshold > 0 {
			mc.AutoShortlistThreshold = app.Matching.AutoShortlistThreshold
		}
		if app.Matching.ManualReviewThreshold > 0 {
			mc.ManualReviewThreshold = app.Matching.ManualReviewThreshold
		}
		if app.Matching.ConsiderThreshold > 0 {
			mc.ConsiderThreshold = app.Matching.ConsiderThreshold
		}
	}

	cacheTTL := 15 * time.Minute
	if app != nil && app.Matching.CacheTTL > 0 {
		cacheTTL = time.Duration(app.Matching.CacheTTL) * time.Second
	}

	return &Config{
		Timeout:  config.GetDuration(wc.Timeout),
		CacheTTL: cacheTTL,
		Matching: mc,
	}
}
