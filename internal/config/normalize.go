package config

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeScan(); err != nil {
		return err
	}
	c.normalizeMetadata()
	c.normalizeRename()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDB) == "" {
		c.Paths.CacheDB = defaultCacheDB
	}
	if c.Paths.CacheDB, err = expandPath(c.Paths.CacheDB); err != nil {
		return fmt.Errorf("paths.cache_db: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.RemapDir, err = expandPath(c.Paths.RemapDir); err != nil {
		return fmt.Errorf("paths.remap_dir: %w", err)
	}
	if c.Paths.QuarantineDir, err = expandPath(c.Paths.QuarantineDir); err != nil {
		return fmt.Errorf("paths.quarantine_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() error {
	blacklist := make([]string, 0, len(c.Scan.Blacklist))
	for _, dir := range c.Scan.Blacklist {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(dir))
		if err != nil {
			return fmt.Errorf("scan.blacklist: %w", err)
		}
		blacklist = append(blacklist, expanded)
	}
	c.Scan.Blacklist = blacklist

	c.Scan.ExtensionFilter = strings.ToLower(strings.TrimSpace(c.Scan.ExtensionFilter))
	if c.Scan.ExtensionFilter == "" {
		c.Scan.ExtensionFilter = defaultExtensionFilter
	}
	c.Scan.Extensions = normalizeExtensions(c.Scan.Extensions)
	bundles := make([]string, 0, len(c.Scan.ExtensionBundles))
	for _, b := range c.Scan.ExtensionBundles {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			bundles = append(bundles, b)
		}
	}
	c.Scan.ExtensionBundles = bundles

	if c.Scan.Workers <= 0 {
		c.Scan.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Scan.ThumbnailSize <= 0 {
		c.Scan.ThumbnailSize = defaultThumbnailSize
	}
	return nil
}

func (c *Config) normalizeMetadata() {
	c.Metadata.ExiftoolBinary = strings.TrimSpace(c.Metadata.ExiftoolBinary)
	c.Metadata.FFmpegBinary = strings.TrimSpace(c.Metadata.FFmpegBinary)
	if c.Metadata.EmptyValues == nil {
		c.Metadata.EmptyValues = DefaultEmptyValues()
	}
}

func (c *Config) normalizeRename() {
	c.Rename.OnMissingField = strings.ToLower(strings.TrimSpace(c.Rename.OnMissingField))
	if c.Rename.OnMissingField == "" {
		c.Rename.OnMissingField = defaultOnMissingField
	}
	c.Rename.OnNameExists = strings.ToLower(strings.TrimSpace(c.Rename.OnNameExists))
	if c.Rename.OnNameExists == "" {
		c.Rename.OnNameExists = defaultOnNameExists
	}
	if strings.TrimSpace(c.Rename.Template) == "" {
		c.Rename.Template = defaultRenameTemplate
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

// normalizeExtensions lower-cases, strips leading dots, and de-duplicates.
func normalizeExtensions(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), ".")
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
