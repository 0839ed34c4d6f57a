package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLark(); err != nil {
		return err
	}
	c.normalizeGemini()
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeLark() error {
	if c.Lark.AppID == "" {
		if value, ok := os.LookupEnv("LARK_APP_ID"); ok {
			c.Lark.AppID = strings.TrimSpace(value)
		}
	}
	if c.Lark.AppSecret == "" {
		if value, ok := os.LookupEnv("LARK_APP_SECRET"); ok {
			c.Lark.AppSecret = strings.TrimSpace(value)
		}
	}
	c.Lark.Domain = strings.TrimSpace(c.Lark.Domain)
	if c.Lark.Domain == "" {
		if value, ok := os.LookupEnv("LARK_DOMAIN"); ok {
			c.Lark.Domain = strings.TrimSpace(value)
		}
	}
	if c.Lark.Domain == "" {
		c.Lark.Domain = defaultLarkDomain
	}
	var err error
	if strings.TrimSpace(c.Lark.TokenPath) == "" {
		c.Lark.TokenPath = defaultLarkTokenPath
	}
	if c.Lark.TokenPath, err = expandPath(c.Lark.TokenPath); err != nil {
		return fmt.Errorf("lark.token_path: %w", err)
	}
	if c.Lark.RequestTimeout <= 0 {
		c.Lark.RequestTimeout = defaultLarkRequestTimeout
	}
	if c.Lark.DownloadTimeout <= 0 {
		c.Lark.DownloadTimeout = defaultLarkDownloadTimeout
	}
	return nil
}

func (c *Config) normalizeGemini() {
	if c.Gemini.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Gemini.APIKey = strings.TrimSpace(value)
		}
	}
	c.Gemini.BaseURL = strings.TrimSpace(c.Gemini.BaseURL)
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaultGeminiBaseURL
	}
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
	c.Gemini.TagModel = strings.TrimSpace(c.Gemini.TagModel)
	if c.Gemini.TagModel == "" {
		c.Gemini.TagModel = defaultGeminiTagModel
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeoutSeconds
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.SegmentSeconds <= 0 {
		c.Pipeline.SegmentSeconds = defaultSegmentSeconds
	}
	c.Pipeline.ReprocessPolicy = strings.ToLower(strings.TrimSpace(c.Pipeline.ReprocessPolicy))
	if c.Pipeline.ReprocessPolicy == "" {
		c.Pipeline.ReprocessPolicy = defaultReprocessPolicy
	}
	if c.Pipeline.TagMaxAttempts <= 0 {
		c.Pipeline.TagMaxAttempts = defaultTagMaxAttempts
	}
	if c.Pipeline.TagRetryDelaySeconds <= 0 {
		c.Pipeline.TagRetryDelaySeconds = defaultTagRetryDelaySeconds
	}
	c.Pipeline.FFmpegBinary = strings.TrimSpace(c.Pipeline.FFmpegBinary)
	if c.Pipeline.FFmpegBinary == "" {
		c.Pipeline.FFmpegBinary = defaultFFmpegBinary
	}
	c.Pipeline.FFprobeBinary = strings.TrimSpace(c.Pipeline.FFprobeBinary)
	if c.Pipeline.FFprobeBinary == "" {
		c.Pipeline.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
