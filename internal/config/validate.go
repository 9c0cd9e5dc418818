package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateCredits(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAnalysis() error {
	parsed, err := url.Parse(c.Analysis.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("analysis.base_url must be an absolute URL, got %q", c.Analysis.BaseURL)
	}
	if c.Analysis.RetryAttempts > 5 {
		return errors.New("analysis.retry_attempts must be between 1 and 5")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.MaxDurationSeconds <= 0 {
		return errors.New("fetch.max_duration_seconds must be positive")
	}
	if len(c.Fetch.AllowedHosts) == 0 {
		return errors.New("fetch.allowed_hosts must list at least one host")
	}
	return nil
}

func (c *Config) validateCredits() error {
	if c.Credits.SignupBalance < 0 {
		return errors.New("credits.signup_balance must not be negative")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.SubmitRatePerMinute < 0 {
		return errors.New("api.submit_rate_per_minute must not be negative (0 disables limiting)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
