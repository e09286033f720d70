package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"deduper/internal/logs"
)

func newLogCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		scanID string
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the end of the deduper log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := logs.TailOptions{Limit: lines}
			if scanID != "" {
				opts.Match = scanID
			}
			path := filepath.Join(cfg.Paths.LogDir, logs.FileName)
			tail, err := logs.Tail(nil, path, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tail) == 0 {
				fmt.Fprintf(out, "No log lines in %s\n", path)
				return nil
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&scanID, "scan", "", "Only show lines from this scan id")
	return cmd
}
