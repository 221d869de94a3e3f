// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Matching      MatchingConfig          `mapstructure:"matching"`
	Commission    CommissionConfig        `mapstructure:"commission"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Gamification  GamificationConfig      `mapstructure:"gamification"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	SSLEnabled  bool     `mapstructure:"ssl_enabled"`
	ResumeIndex string   `mapstructure:"resume_index"`
	URL         string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Specific Configuration Sections ---

// MatchingConfig tunes the candidate/job scoring without a code change.
// Zero values fall back to the matcher's built-in defaults.
type MatchingConfig struct {
	Weights struct {
		Skills     float64 `mapstructure:"skills"`
		Experience float64 `mapstructure:"experience"`
		Education  float64 `mapstructure:"education"`
		Location   float64 `mapstructure:"location"`
		Salary     float64 `mapstructure:"salary"`
	} `mapstructure:"weights"`

	AutoShortlistThreshold float64 `mapstructure:"auto_shortlist_threshold"`
	ManualReviewThreshold  float64 `mapstructure:"manual_review_threshold"`
	ConsiderThreshold      float64 `mapstructure:"consider_threshold"`
	AutoRejectThreshold    float64 `mapstructure:"auto_reject_threshold"`

	// CacheTTL is the candidate profile cache lifetime in seconds.
	CacheTTL int `mapstructure:"cache_ttl"`
}

// CommissionConfig overrides the statutory parameters of the calculator.
type CommissionConfig struct {
	PlatformFeeRate float64            `mapstructure:"platform_fee_rate"`
	TDSRate         float64            `mapstructure:"tds_rate"`
	TDSThreshold    float64            `mapstructure:"tds_threshold"`
	ExchangeRates   map[string]float64 `mapstructure:"exchange_rates"`

	// TierCacheTTL is the placement-count cache lifetime in seconds.
	TierCacheTTL int `mapstructure:"tier_cache_ttl"`
}

// NotificationConfig holds settings for status-change notification dispatch.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled            bool   `mapstructure:"enabled"`
		DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// GamificationConfig holds the point awards credited on placement.
type GamificationConfig struct {
	PlacementPoints int `mapstructure:"placement_points"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
