package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"deduper/internal/contentcache"
	"deduper/internal/deps"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check configuration, cache, and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			configLabel := ctx.configPath
			if configLabel == "" {
				configLabel = "defaults"
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configLabel, colorize))
			fmt.Fprintln(out, renderStatusLine("Use exiftool", statusInfo, yesNo(cfg.Metadata.UseExiftool), colorize))

			cacheKind, cacheDetail := statusOK, cfg.Paths.CacheDB
			if err := ctx.withCache(func(store *contentcache.Store) error {
				_, err := store.Stats(cmd.Context())
				return err
			}); err != nil {
				cacheKind, cacheDetail = statusError, err.Error()
			}
			fmt.Fprintln(out, renderStatusLine("Cache", cacheKind, cacheDetail, colorize))

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			statuses := deps.Check(cfg)
			for _, line := range dependencyLines(statuses, colorize) {
				fmt.Fprintln(out, line)
			}

			if cacheKind == statusError {
				return errors.New("content cache unavailable")
			}
			for _, s := range statuses {
				if !s.Available && !s.Optional {
					return fmt.Errorf("required dependency %s missing", s.Name)
				}
			}
			return nil
		},
	}
}
