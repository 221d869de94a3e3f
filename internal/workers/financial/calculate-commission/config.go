// internal/workers/financial/calculate-commission/config.go
package calculatecommission

import (
	"time"

	"hiring-referrals-workers/internal/commission"
	"hiring-referrals-workers/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	TierCacheTTL time.Duration
	Commission   commission.Config
}

// LoadConfig builds the worker config, layering application overrides over
// the default rate tables.
func LoadConfig(app *config.Config) *Config {
	wc := config.WorkerConfig{Timeout: 30000}
	cc := commission.DefaultConfig()
	tierTTL := 5 * time.Minute

	if app != nil {
		wc = config.GetWorkerConfig(app, TaskType)
		if app.Commission.PlatformFeeRate > 0 {
			cc.PlatformFeeRate = app.Commission.PlatformFeeRate
		}
		if app.Commission.TDSRate > 0 {
			cc.TDSRate = app.Commission.TDSRate
		}
		if app.Commission.TDSThreshold > 0 {
			cc.TDSThreshold = app.Commission.TDSThreshold
		}
		for currency, rate := range app.Commission.ExchangeRates {
			cc.ExchangeRates[currency] = rate
		}
		if app.Commission.TierCacheTTL > 0 {
			tierTTL = time.Duration(app.Commission.TierCacheTTL) * time.Second
		}
	}

	return &Config{
		Timeout:      config.GetDuration(wc.Timeout),
		TierCacheTTL: tierTTL,
		Commission:   cc,
	}
}
