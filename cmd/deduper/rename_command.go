package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"deduper/internal/fileops"
	"deduper/internal/metadata"
	"deduper/internal/renamer"
	"deduper/internal/scan"
)

func newRenameCommand(ctx *commandContext) *cobra.Command {
	var (
		template  string
		onMissing string
		onExists  string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "rename <root>...",
		Short: "Rename files from a metadata template",
		Long: `Rename every file under the roots using a template such as
"[Camera manufacturer]_[Creation date]". Field names are matched without
regard to case; the original extension is kept.

Fields: ` + strings.Join(metadata.Fields(), ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format, err := buildFormat(
				firstNonEmpty(template, cfg.Rename.Template),
				firstNonEmpty(onMissing, cfg.Rename.OnMissingField),
				firstNonEmpty(onExists, cfg.Rename.OnNameExists),
			)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(svc *scan.Service) error {
				entries, err := svc.WalkWithMetadata(cmd.Context(), args)
				if err != nil {
					return err
				}
				var (
					plan   renamer.Plan
					report fileops.Report
				)
				if dryRun {
					plan, err = renamer.BuildPlan(entries, format)
				} else {
					plan, report, err = svc.Renamer().Run(cmd.Context(), entries, format, nil)
				}
				view := newRenameView(format, plan, report, !dryRun)
				if err != nil {
					return err
				}
				return emit(cmd, ctx.outputFormat(), view, func() error {
					printRenameView(cmd, view)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "Rename template (default from config)")
	cmd.Flags().StringVar(&onMissing, "on-missing", "", "When a field is empty: substitute, skip, or abort")
	cmd.Flags().StringVar(&onExists, "on-exists", "", "When the new name exists: append_index, skip, or abort")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the renames without applying them")
	return cmd
}

func buildFormat(template, onMissing, onExists string) (*renamer.Format, error) {
	format, err := renamer.Parse(template, metadata.Default())
	if err != nil {
		return nil, err
	}
	if format.OnMissing, err = renamer.ParseMissingPolicy(onMissing); err != nil {
		return nil, err
	}
	if format.OnExists, err = fileops.ParseConflictPolicy(onExists); err != nil {
		return nil, err
	}
	return format, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type renameItemView struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

type renameView struct {
	Template string           `json:"template" yaml:"template"`
	Pattern  string           `json:"pattern" yaml:"pattern"`
	Applied  bool             `json:"applied" yaml:"applied"`
	Renames  []renameItemView `json:"renames" yaml:"renames"`
	Skipped  []string         `json:"skipped" yaml:"skipped"`
}

func newRenameView(format *renamer.Format, plan renamer.Plan, report fileops.Report, applied bool) renameView {
	view := renameView{
		Template: format.Raw,
		Pattern:  format.Pattern,
		Applied:  applied,
		Renames:  make([]renameItemView, 0, len(plan.Items)),
		Skipped:  make([]string, 0, len(plan.Skipped)),
	}
	for _, item := range plan.Items {
		to := item.Target
		if applied {
			target, ok := report.Targets[item.Source()]
			if !ok {
				view.Skipped = append(view.Skipped, item.Source())
				continue
			}
			to = target
		}
		view.Renames = append(view.Renames, renameItemView{From: item.Source(), To: to})
	}
	for _, e := range plan.Skipped {
		view.Skipped = append(view.Skipped, e.Path)
	}
	return view
}

func printRenameView(cmd *cobra.Command, view renameView) {
	out := cmd.OutOrStdout()
	if len(view.Renames) == 0 {
		fmt.Fprintf(out, "Nothing to rename (%d files skipped)\n", len(view.Skipped))
		return
	}
	rows := make([][]string, 0, len(view.Renames))
	for _, r := range view.Renames {
		rows = append(rows, []string{r.From, filepath.Base(r.To)})
	}
	fmt.Fprintln(out, renderTable([]string{"File", "New name"}, rows, nil))
	verb := "Would rename"
	if view.Applied {
		verb = "Renamed"
	}
	fmt.Fprintf(out, "%s %d files, skipped %d\n", verb, len(view.Renames), len(view.Skipped))
}
