// internal/workers/pipeline/pipeline-stats/config.go
package pipelinestats

import (
	"time"

	"hiring-referrals-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(app *config.Config) *Config {
	wc := config.WorkerConfig{Timeout: 30000}
	if app != nil {
		wc = config.GetWorkerConfig(app, TaskType)
	}
	return &Config{Timeout: config.GetDuration(wc.Timeout)}
}
