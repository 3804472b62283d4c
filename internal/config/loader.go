package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"linksum/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("slack.signing_secret", "SLACK_SIGNING_SECRET")
	viper.BindEnv("slack.bot_token", "SLACK_BOT_TOKEN")
	viper.BindEnv("slack.api_base_url", "SLACK_API_BASE_URL")

	viper.BindEnv("summarizer.api_key", "SUMMARIZER_API_KEY")
	viper.BindEnv("summarizer.model", "SUMMARIZER_MODEL")
	viper.BindEnv("summarizer.endpoint", "SUMMARIZER_ENDPOINT")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 10
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 10
	}

	if cfg.Slack.APIBaseURL == "" {
		cfg.Slack.APIBaseURL = constants.DefaultSlackAPIBaseURL
	}
	if cfg.Slack.ReplayWindowSeconds <= 0 {
		cfg.Slack.ReplayWindowSeconds = constants.DefaultReplayWindowSecs
	}

	if cfg.Deduplication.TTLSeconds <= 0 {
		cfg.Deduplication.TTLSeconds = constants.DefaultDedupTTLSeconds
	}
	if cfg.Deduplication.OnRedisError == "" {
		cfg.Deduplication.OnRedisError = constants.FallbackAllow
	}

	if cfg.Extraction.MaxURLs <= 0 {
		cfg.Extraction.MaxURLs = constants.DefaultMaxURLs
	}

	if cfg.Delivery.MinInterval <= 0 {
		cfg.Delivery.MinInterval = constants.DefaultMinIntervalMillis * time.Millisecond
	}
	if cfg.Delivery.QueueMaxAge <= 0 {
		cfg.Delivery.QueueMaxAge = constants.DefaultQueueMaxAge
	}
	if cfg.Delivery.JanitorInterval <= 0 {
		cfg.Delivery.JanitorInterval = constants.DefaultJanitorInterval
	}

	if cfg.Summarizer.Endpoint == "" {
		cfg.Summarizer.Endpoint = constants.DefaultSummarizerEndpoint
	}
	if cfg.Summarizer.TargetLanguage == "" {
		cfg.Summarizer.TargetLanguage = constants.DefaultTargetLanguage
	}
	if cfg.Summarizer.Timeout <= 0 {
		cfg.Summarizer.Timeout = constants.DefaultSummarizerTimeout
	}
	if cfg.Summarizer.FetchTimeout <= 0 {
		cfg.Summarizer.FetchTimeout = constants.DefaultFetchTimeout
	}
}
