package config

import (
	"fmt"
	"strings"
)

// Validate checks high-impact runtime configuration constraints.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug|info|warn|error, got %q", c.LogLevel)
	}

	mode := strings.ToLower(strings.TrimSpace(c.Mode))
	if mode != "" && mode != "paper" && mode != "live" {
		return fmt.Errorf("mode must be 'paper' or 'live', got %q", c.Mode)
	}

	if err := c.Pricing.Params().Validate(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	if c.Market.ListLimit <= 0 {
		return fmt.Errorf("market.list_limit must be > 0, got %d", c.Market.ListLimit)
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver must be 'sqlite' or 'postgres', got %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("storage.dsn is required")
	}

	if c.Gateway() == "live" {
		if strings.TrimSpace(c.Registration.Endpoint) == "" {
			return fmt.Errorf("registration.endpoint is required in live mode")
		}
		if strings.TrimSpace(c.Registration.PrivateKey) == "" {
			return fmt.Errorf("registration.private_key is required in live mode")
		}
	}
	if c.Registration.Timeout < 0 {
		return fmt.Errorf("registration.timeout must be >= 0, got %s", c.Registration.Timeout)
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id are required when telegram is enabled")
	}

	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must be >= 0, got %f", c.API.RateLimit)
	}
	if c.API.RateLimit > 0 && c.API.Burst <= 0 {
		return fmt.Errorf("api.burst must be > 0 when api.rate_limit is set, got %d", c.API.Burst)
	}

	return nil
}
