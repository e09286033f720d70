package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"deduper/internal/config"
	"deduper/internal/logging"
	"deduper/internal/metrics"
	"deduper/internal/scan"
)

type globalFlags struct {
	config      string
	logLevel    string
	output      string
	metricsFile string
	noProgress  bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	metrics *metrics.Metrics
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{
		flags:   flags,
		metrics: metrics.New(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			cfg.Logging.Level = level
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) outputFormat() outputFormat {
	format, _ := parseOutputFormat(c.flags.output)
	return format
}

// openService builds a scan service; progress bars are attached when stderr
// is a terminal.
func (c *commandContext) openService(cmd *cobra.Command) (*scan.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	opts := []scan.Option{
		scan.WithLogger(logger),
		scan.WithMetrics(c.metrics),
	}
	if !c.flags.noProgress {
		if progress := newProgressReporter(cmd.ErrOrStderr()); progress != nil {
			opts = append(opts, scan.WithProgress(progress.update))
		}
	}
	return scan.New(cfg, opts...)
}

func (c *commandContext) withService(cmd *cobra.Command, fn func(*scan.Service) error) error {
	svc, err := c.openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

// finish writes the metrics textfile when one is configured.
func (c *commandContext) finish() error {
	path := strings.TrimSpace(c.flags.metricsFile)
	if path == "" && c.config != nil {
		path = strings.TrimSpace(c.config.Metrics.Textfile)
	}
	if path == "" {
		return nil
	}
	if err := c.metrics.WriteTextfile(path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func humanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div := int64(unit)
	exp := 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	value := float64(v) / float64(div)
	return fmt.Sprintf("%.1f %ciB", value, "KMGTPEZY"[exp])
}
