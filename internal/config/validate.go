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
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateRename(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CacheDB) == "" {
		return errors.New("paths.cache_db must be set")
	}
	return nil
}

func (c *Config) validateScan() error {
	switch c.Scan.ExtensionFilter {
	case ExtensionFilterDisabled, ExtensionFilterWhitelist, ExtensionFilterBlacklist:
	default:
		return fmt.Errorf("scan.extension_filter: unsupported value %q (want disabled, whitelist or blacklist)", c.Scan.ExtensionFilter)
	}
	for _, bundle := range c.Scan.ExtensionBundles {
		if bundle != "image" && bundle != "video" {
			return fmt.Errorf("scan.extension_bundles: unknown bundle %q (want image or video)", bundle)
		}
	}
	if c.Scan.Similarity < 0 || c.Scan.Similarity > 100 {
		return errors.New("scan.similarity must be between 0 and 100")
	}
	if c.Scan.Workers < 1 {
		return errors.New("scan.workers must be positive")
	}
	return nil
}

func (c *Config) validateRename() error {
	switch c.Rename.OnMissingField {
	case OnMissingSubstitute, OnMissingSkip, OnMissingAbort:
	default:
		return fmt.Errorf("rename.on_missing_field: unsupported value %q (want substitute, skip or abort)", c.Rename.OnMissingField)
	}
	switch c.Rename.OnNameExists {
	case OnExistsAppendIndex, OnExistsSkip, OnExistsAbort:
	default:
		return fmt.Errorf("rename.on_name_exists: unsupported value %q (want append_index, skip or abort)", c.Rename.OnNameExists)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
