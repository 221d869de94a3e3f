// internal/workers/pipeline/update-status/config.go
package updatestatus

import (
	"time"

	"hiring-referrals-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration

	// PlacementPoints is credited to the recruiter and the referrer when an
	// application reaches hired.
	PlacementPoints int

	Notifications config.NotificationConfig
}

func LoadConfig(app *config.Config) *Config {
	wc := config.WorkerConfig{Timeout: 30000}
	points := 500
	var nc config.NotificationConfig

	if app != nil {
		wc = config.GetWorkerConfig(app, TaskType)
		if app.Gamification.PlacementPoints > 0 {
			points = app.Gamification.PlacementPoints
		}
		nc = app.Notifications
	}

	return &Config{
		Timeout:         config.GetDuration(wc.Timeout),
		PlacementPoints: points,
		Notifications:   nc,
	}
}
