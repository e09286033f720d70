package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"deduper/internal/contentcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the content cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

type cacheStatsView struct {
	Path      string             `json:"path" yaml:"path"`
	SizeBytes int64              `json:"size_bytes" yaml:"size_bytes"`
	Rows      contentcache.Stats `json:"rows" yaml:"rows"`
}

func (c *commandContext) withCache(fn func(*contentcache.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := contentcache.Open(cfg.Paths.CacheDB, contentcache.WithLogger(logger), contentcache.WithMetrics(c.metrics))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cached row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(store *contentcache.Store) error {
				rows, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				view := cacheStatsView{Path: store.Path(), Rows: rows}
				if info, err := os.Stat(store.Path()); err == nil {
					view.SizeBytes = info.Size()
				}
				return emit(cmd, ctx.outputFormat(), view, func() error {
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Cache:      %s (%s)\n", view.Path, humanBytes(view.SizeBytes))
					fmt.Fprintf(out, "Hashes:     %d\n", rows.Hashes)
					fmt.Fprintf(out, "Metadata:   %d\n", rows.Metadata)
					fmt.Fprintf(out, "Thumbnails: %d\n", rows.Thumbnails)
					return nil
				})
			})
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop cache rows for files that no longer exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(store *contentcache.Store) error {
				removed, err := store.Prune(cmd.Context(), contentcache.FileExists)
				if err != nil {
					return err
				}
				if removed == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No cache entries pruned")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d stale paths\n", removed)
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the content cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", cfg.Paths.CacheDB)
			}
			if err := contentcache.Reset(cfg.Paths.CacheDB); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache at %s\n", cfg.Paths.CacheDB)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}
