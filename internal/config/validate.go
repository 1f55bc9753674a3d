package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownloader(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		return errors.New("paths.base_dir must be set")
	}
	if strings.TrimSpace(c.Paths.WorkspaceRoot) == "" {
		return errors.New("paths.workspace_root must be set")
	}
	return nil
}

func (c *Config) validateDownloader() error {
	if c.Downloader.MetadataTimeoutSeconds <= 0 {
		return errors.New("downloader.metadata_timeout_seconds must be positive")
	}
	return nil
}

// ValidImageFormat reports whether format is one the slide writer supports.
func ValidImageFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpg", "jpeg", "png":
		return true
	default:
		return false
	}
}

func (c *Config) validateExtraction() error {
	ex := c.Extraction
	if ex.SimilarityThreshold < 0 || ex.SimilarityThreshold > 1 {
		return errors.New("extraction.similarity_threshold must be between 0 and 1")
	}
	if ex.MinIntervalSeconds < 0 {
		return errors.New("extraction.min_interval_seconds must be >= 0")
	}
	if ex.SkipFirstSeconds < 0 {
		return errors.New("extraction.skip_first_seconds must be >= 0")
	}
	if !ValidImageFormat(ex.ImageFormat) {
		return fmt.Errorf("extraction.image_format: unsupported value %q (expected jpg, jpeg, or png)", ex.ImageFormat)
	}
	if ex.ImageQuality < 10 || ex.ImageQuality > 100 {
		return errors.New("extraction.image_quality must be between 10 and 100")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
