package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deduper/internal/fileops"
	"deduper/internal/reconcile"
	"deduper/internal/scan"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var (
		master     string
		modeFlag   string
		quarantine string
		onExists   string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile --master <dir> <slave>...",
		Short: "Remove files from slave trees that already exist in a master tree",
		Long: `Match every file under the slave roots against the master root by content.

In move mode matched slave files go to the quarantine directory, keeping
their path relative to the slave root. In rename mode they are renamed in
place with the _DELETED_ marker. Nothing changes without --yes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := reconcile.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			policy, err := fileops.ParseConflictPolicy(onExists)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(svc *scan.Service) error {
				plan, err := svc.PlanReconcile(cmd.Context(), scan.ReconcileRequest{
					Master:        master,
					Slaves:        args,
					Mode:          mode,
					QuarantineDir: quarantine,
				})
				if err != nil {
					return err
				}
				view := newReconcileView(plan)
				if yes && len(plan.Items) > 0 {
					report, execErr := reconcile.New(svc.Hasher(), logger).Execute(cmd.Context(), plan, svc.Executor(policy), nil)
					view.Applied = true
					view.Completed = report.Completed
					view.Skipped = report.Skipped
					for i := range view.Matches {
						if target, ok := report.Targets[view.Matches[i].Slave]; ok {
							view.Matches[i].Target = target
						}
					}
					if execErr != nil {
						return execErr
					}
				}
				return emit(cmd, ctx.outputFormat(), view, func() error {
					printReconcileView(cmd, view)
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVarP(&master, "master", "m", "", "Master root whose files are kept")
	cmd.Flags().StringVar(&modeFlag, "mode", string(reconcile.Quarantine), "What to do with matched slave files: move or rename")
	cmd.Flags().StringVarP(&quarantine, "quarantine", "q", "", "Quarantine root for move mode (default from config)")
	cmd.Flags().StringVar(&onExists, "on-exists", string(fileops.AppendIndex), "When a target exists: append_index, skip, or abort")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Apply the plan instead of printing it")
	_ = cmd.MarkFlagRequired("master")
	return cmd
}

type matchView struct {
	Slave  string `json:"slave" yaml:"slave"`
	Master string `json:"master" yaml:"master"`
	Target string `json:"target" yaml:"target"`
}

type reconcileView struct {
	Mode                  string      `json:"mode" yaml:"mode"`
	MasterFiles           int         `json:"master_files" yaml:"master_files"`
	SlaveFiles            int         `json:"slave_files" yaml:"slave_files"`
	MastersWithDuplicates int         `json:"masters_with_duplicates" yaml:"masters_with_duplicates"`
	Matches               []matchView `json:"matches" yaml:"matches"`
	Applied               bool        `json:"applied" yaml:"applied"`
	Completed             int         `json:"completed" yaml:"completed"`
	Skipped               int         `json:"skipped" yaml:"skipped"`
}

func newReconcileView(plan reconcile.Plan) reconcileView {
	view := reconcileView{
		Mode:                  string(plan.Mode),
		MasterFiles:           plan.MasterFiles,
		SlaveFiles:            plan.SlaveFiles,
		MastersWithDuplicates: plan.MastersWithDuplicates,
		Matches:               make([]matchView, 0, len(plan.Matches)),
	}
	for i, m := range plan.Matches {
		mv := matchView{Slave: m.Slave.Path, Master: m.Master.Path}
		if i < len(plan.Items) {
			mv.Target = plan.Items[i].Target
		}
		view.Matches = append(view.Matches, mv)
	}
	return view
}

func printReconcileView(cmd *cobra.Command, view reconcileView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Master files: %d, slave files: %d\n", view.MasterFiles, view.SlaveFiles)
	if len(view.Matches) == 0 {
		fmt.Fprintln(out, "No slave file duplicates the master")
		return
	}
	rows := make([][]string, 0, len(view.Matches))
	for _, m := range view.Matches {
		rows = append(rows, []string{m.Slave, m.Master, m.Target})
	}
	fmt.Fprintln(out, renderTable([]string{"Slave", "Master", "Target"}, rows, nil))
	fmt.Fprintf(out, "%d slave files duplicate %d master files\n", len(view.Matches), view.MastersWithDuplicates)
	if view.Applied {
		fmt.Fprintf(out, "Applied %s: %d done, %d skipped\n", view.Mode, view.Completed, view.Skipped)
	} else {
		fmt.Fprintln(out, "Dry run; rerun with --yes to apply")
	}
}
