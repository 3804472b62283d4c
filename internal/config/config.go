package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Slack          SlackConfig
	Redis          RedisConfig
	Deduplication  DeduplicationConfig
	Extraction     ExtractionConfig
	Delivery       DeliveryConfig
	Summarizer     SummarizerConfig
	Rules          RulesConfig
	Logging        LoggingConfig
	CircuitBreaker CircuitBreakerConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type SlackConfig struct {
	SigningSecret       string `mapstructure:"signing_secret"`
	BotToken            string `mapstructure:"bot_token"`
	APIBaseURL          string `mapstructure:"api_base_url"`
	ReplayWindowSeconds int    `mapstructure:"replay_window_seconds"`
	// AllowUnverified honors the skip-verification header. Test deployments only.
	AllowUnverified bool `mapstructure:"allow_unverified"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a dedup backend is configured at all. Without one
// the pipeline runs with deduplication disabled rather than failing.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type DeduplicationConfig struct {
	TTLSeconds   int    `mapstructure:"ttl_seconds"`
	OnRedisError string `mapstructure:"on_redis_error"`
}

type ExtractionConfig struct {
	MaxURLs int `mapstructure:"max_urls"`
}

type DeliveryConfig struct {
	MinInterval     time.Duration `mapstructure:"min_interval"`
	QueueMaxAge     time.Duration `mapstructure:"queue_max_age"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

type SummarizerConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	Endpoint       string        `mapstructure:"endpoint"`
	TargetLanguage string        `mapstructure:"target_language"`
	Timeout        time.Duration `mapstructure:"timeout"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
}

type RulesConfig struct {
	// Ignore lists CEL expressions; an event matching any of them is skipped.
	Ignore []string `mapstructure:"ignore"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CircuitBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
