package config

import (
	"fmt"

	"linksum/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateSlack(cfg.Slack); err != nil {
		errors = append(errors, err)
	}

	if err := validateDeduplication(cfg.Deduplication); err != nil {
		errors = append(errors, err)
	}

	if err := validateSummarizer(cfg.Summarizer); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateSlack(cfg SlackConfig) error {
	if cfg.SigningSecret == "" && !cfg.AllowUnverified {
		return &ValidationError{
			Field:   "slack.signing_secret",
			Message: "signing secret is required unless allow_unverified is set",
		}
	}

	if cfg.BotToken == "" {
		return &ValidationError{
			Field:   "slack.bot_token",
			Message: "bot token is required",
		}
	}

	return nil
}

func validateDeduplication(cfg DeduplicationConfig) error {
	if cfg.OnRedisError != constants.FallbackAllow && cfg.OnRedisError != constants.FallbackDeny {
		return &ValidationError{
			Field:   "deduplication.on_redis_error",
			Message: fmt.Sprintf("must be %q or %q, got %q", constants.FallbackAllow, constants.FallbackDeny, cfg.OnRedisError),
		}
	}

	return nil
}

func validateSummarizer(cfg SummarizerConfig) error {
	if cfg.APIKey == "" {
		return &ValidationError{
			Field:   "summarizer.api_key",
			Message: "api key is required",
		}
	}

	if cfg.Model == "" {
		return &ValidationError{
			Field:   "summarizer.model",
			Message: "model is required",
		}
	}

	return nil
}
