package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGemini() error {
	if c.Gemini.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/minutes/config.toml"
		}
		return fmt.Errorf("gemini.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'minutes config init')", defaultPath)
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		return errors.New("gemini.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.SegmentSeconds <= 0 {
		return errors.New("pipeline.segment_seconds must be positive")
	}
	switch c.Pipeline.ReprocessPolicy {
	case ReprocessReplace, ReprocessSkip:
	default:
		return fmt.Errorf("pipeline.reprocess_policy must be %q or %q", ReprocessReplace, ReprocessSkip)
	}
	if c.Pipeline.TagMaxAttempts <= 0 {
		return errors.New("pipeline.tag_max_attempts must be positive")
	}
	if c.Pipeline.TagRetryDelaySeconds <= 0 {
		return errors.New("pipeline.tag_retry_delay_seconds must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
