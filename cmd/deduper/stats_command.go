package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"deduper/internal/metadata"
	"deduper/internal/scan"
	"deduper/internal/stats"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "stats <root>...",
		Short: "Show how metadata values are distributed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := resolveFields(fields)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(svc *scan.Service) error {
				entries, err := svc.WalkWithMetadata(cmd.Context(), args)
				if err != nil {
					return err
				}
				tables := stats.ComputeAll(entries, names)
				return emit(cmd, ctx.outputFormat(), tables, func() error {
					printStatsTables(cmd, tables)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringSliceVarP(&fields, "field", "f", nil, "Field to report (repeatable; default all fields)")
	return cmd
}

// resolveFields maps user spellings to canonical field names.
func resolveFields(names []string) ([]string, error) {
	vocab := metadata.Default()
	if len(names) == 0 {
		return vocab.Fields(), nil
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		canonical, ok := vocab.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q (known: %s)", name, strings.Join(vocab.Fields(), ", "))
		}
		out = append(out, canonical)
	}
	return out, nil
}

func printStatsTables(cmd *cobra.Command, tables []stats.Table) {
	out := cmd.OutOrStdout()
	for _, t := range tables {
		fmt.Fprintf(out, "%s (%d files, %s)\n", t.Field, t.TotalCount, humanBytes(t.TotalBytes))
		rows := make([][]string, 0, len(t.Rows))
		for _, r := range t.Rows {
			rows = append(rows, []string{
				r.Value,
				strconv.Itoa(r.Count),
				humanBytes(r.Bytes),
				fmt.Sprintf("%.1f%%", r.CountPct),
				fmt.Sprintf("%.1f%%", r.SizePct),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Value", "Files", "Size", "Files %", "Size %"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
	}
}
