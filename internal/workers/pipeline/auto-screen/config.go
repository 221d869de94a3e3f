// internal/workers/pipeline/auto-screen/config.go
package autoscreen

import (
	"time"

	"hiring-referrals-workers/internal/common/config"
	"hiring-referrals-workers/internal/matching"
	"hiring-referrals-workers/internal/pipeline"
)

type Config struct {
	Timeout   time.Duration
	Matching  matching.Config
	Screening pipeline.ScreeningConfig
}

// LoadConfig builds the worker config, applying scoring and threshold
// overrides from the application config.
func LoadConfig(app *config.Config) *Config {
	wc := config.WorkerConfig{Timeout: 30000}
	if app != nil {
		wc = config.GetWorkerConfig(app, TaskType)
	}

	mc := matching.DefaultConfig()
	sc := pipeline.DefaultScreeningConfig()
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
			sc.AutoShortlistThreshold = app.Matching.AutoShortlistThreshold
		}
		if app.Matching.AutoRejectThreshold > 0 {
			sc.AutoRejectThreshold = app.Matching.AutoRejectThreshold
		}
	}

	return &Config{
		Timeout:   config.GetDuration(wc.Timeout),
		Matching:  mc,
		Screening: sc,
	}
}
