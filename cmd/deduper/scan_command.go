package main

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"deduper/internal/catalog"
	"deduper/internal/correlate"
	"deduper/internal/fileops"
	"deduper/internal/grouping"
	"deduper/internal/scan"
	"deduper/internal/selection"
	"deduper/internal/tally"
)

type scanOptions struct {
	threshold    int
	thumbnails   bool
	deleteExcept int
	safe         bool
	yes          bool
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan <hash|name|phash> <root>...",
		Short: "Find duplicate files under one or more roots",
		Long: `Find duplicate files by content hash, file name, or perceptual image hash.

Groups whose members live in the same directories are correlated into sets,
one column per directory tree. --delete-except N keeps the files under the
Nth root (1-based, in argument order) and removes their duplicates elsewhere.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := grouping.ParseField(args[0])
			if err != nil {
				return err
			}
			roots := args[1:]
			var keepRoot string
			if cmd.Flags().Changed("delete-except") {
				if opts.deleteExcept < 1 || opts.deleteExcept > len(roots) {
					return fmt.Errorf("--delete-except must be between 1 and %d", len(roots))
				}
				keepRoot = catalog.AbsPath(roots[opts.deleteExcept-1])
			}

			var threshold *int
			if cmd.Flags().Changed("threshold") {
				threshold = &opts.threshold
			}

			return ctx.withService(cmd, func(svc *scan.Service) error {
				res, err := svc.Scan(cmd.Context(), scan.Request{
					Roots:      roots,
					Field:      field,
					Threshold:  threshold,
					Thumbnails: opts.thumbnails,
				})
				if err != nil {
					return err
				}
				view := newScanView(res)
				if keepRoot != "" {
					removal, err := removeExcept(cmd, svc, res.Sets, keepRoot, opts)
					if err != nil {
						return err
					}
					view.Removal = removal
				}
				return emit(cmd, ctx.outputFormat(), view, func() error {
					printScanView(cmd, view)
					return nil
				})
			})
		},
	}

	cmd.Flags().IntVar(&opts.threshold, "threshold", 0, "Perceptual similarity threshold in percent (default from config)")
	cmd.Flags().BoolVar(&opts.thumbnails, "thumbnails", false, "Generate cached thumbnails for duplicate images")
	cmd.Flags().IntVar(&opts.deleteExcept, "delete-except", 0, "Keep duplicates under this root (1-based) and remove the others")
	cmd.Flags().BoolVar(&opts.safe, "safe", false, "Rename removed files with the _DELETED_ marker instead of deleting them")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Apply the removal instead of printing it")
	return cmd
}

type groupView struct {
	Key   string   `json:"key" yaml:"key"`
	Size  int64    `json:"size_bytes" yaml:"size_bytes"`
	Files []string `json:"files" yaml:"files"`
	// Thumbnails maps a file to its base64 JPEG preview when --thumbnails is set.
	Thumbnails map[string]string `json:"thumbnails,omitempty" yaml:"thumbnails,omitempty"`
}

type setView struct {
	Fingerprint string     `json:"fingerprint" yaml:"fingerprint"`
	Groups      int        `json:"groups" yaml:"groups"`
	Columns     [][]string `json:"columns" yaml:"columns"`
	Dropped     int        `json:"dropped" yaml:"dropped"`
}

type removalView struct {
	KeptRoot  string   `json:"kept_root" yaml:"kept_root"`
	Mode      string   `json:"mode" yaml:"mode"`
	Applied   bool     `json:"applied" yaml:"applied"`
	Files     []string `json:"files" yaml:"files"`
	Completed int      `json:"completed" yaml:"completed"`
	Skipped   int      `json:"skipped" yaml:"skipped"`
}

type scanView struct {
	ScanID  string         `json:"scan_id" yaml:"scan_id"`
	Field   string         `json:"field" yaml:"field"`
	Roots   []string       `json:"roots" yaml:"roots"`
	Files   int            `json:"files" yaml:"files"`
	Skipped int            `json:"skipped" yaml:"skipped"`
	Elapsed string         `json:"elapsed" yaml:"elapsed"`
	Tally   tally.Snapshot `json:"tally" yaml:"tally"`
	Groups  []groupView    `json:"groups" yaml:"groups"`
	Sets    []setView      `json:"sets" yaml:"sets"`
	Removal *removalView   `json:"removal,omitempty" yaml:"removal,omitempty"`
}

func newScanView(res *scan.Result) scanView {
	view := scanView{
		ScanID:  res.ID,
		Field:   string(res.Field),
		Roots:   res.Roots,
		Files:   res.Files,
		Skipped: res.Skipped,
		Elapsed: res.Elapsed.Round(time.Millisecond).String(),
		Tally:   res.Tally,
		Groups:  make([]groupView, 0, len(res.Groups)),
		Sets:    make([]setView, 0, len(res.Sets)),
	}
	for _, g := range res.Groups {
		gv := groupView{Key: g.Key, Files: paths(g.Entries)}
		if len(g.Entries) > 0 {
			gv.Size = g.Entries[0].Size
		}
		for _, e := range g.Entries {
			if len(e.Thumbnail) == 0 {
				continue
			}
			if gv.Thumbnails == nil {
				gv.Thumbnails = make(map[string]string, len(g.Entries))
			}
			gv.Thumbnails[e.Path] = base64.StdEncoding.EncodeToString(e.Thumbnail)
		}
		view.Groups = append(view.Groups, gv)
	}
	for _, s := range res.Sets {
		sv := setView{Fingerprint: s.Fingerprint, Groups: len(s.Groups), Dropped: s.Dropped}
		for _, col := range s.Columns {
			sv.Columns = append(sv.Columns, columnDirs(col))
		}
		view.Sets = append(view.Sets, sv)
	}
	return view
}

func printScanView(cmd *cobra.Command, view scanView) {
	out := cmd.OutOrStdout()
	if len(view.Groups) == 0 {
		fmt.Fprintf(out, "No duplicates among %d files\n", view.Files)
		return
	}

	rows := make([][]string, 0, len(view.Groups)*2)
	for i, g := range view.Groups {
		for j, file := range g.Files {
			label, size := "", ""
			if j == 0 {
				label = strconv.Itoa(i + 1)
				size = humanBytes(g.Size)
			}
			rows = append(rows, []string{label, size, file})
		}
	}
	fmt.Fprintln(out, renderTable([]string{"Group", "Size", "Path"}, rows, []columnAlignment{alignRight, alignRight, alignLeft}))

	if len(view.Sets) > 0 {
		setRows := make([][]string, 0, len(view.Sets))
		for i, s := range view.Sets {
			cols := make([]string, 0, len(s.Columns))
			for _, dirs := range s.Columns {
				cols = append(cols, strings.Join(dirs, ", "))
			}
			setRows = append(setRows, []string{
				strconv.Itoa(i + 1),
				strconv.Itoa(s.Groups),
				strings.Join(cols, "\n"),
				strconv.Itoa(s.Dropped),
			})
		}
		fmt.Fprintln(out, renderTable([]string{"Set", "Groups", "Directories", "Dropped"}, setRows, []columnAlignment{alignRight, alignRight, alignLeft, alignRight}))
	}

	fmt.Fprintf(out, "%d files scanned, %d duplicate groups, %d redundant files (%s)\n",
		view.Files, len(view.Groups), view.Tally.Duplicate, view.Elapsed)

	if r := view.Removal; r != nil {
		switch {
		case len(r.Files) == 0:
			fmt.Fprintf(out, "Nothing to remove outside %s\n", r.KeptRoot)
		case !r.Applied:
			fmt.Fprintf(out, "Would %s %d files (keeping %s); rerun with --yes to apply:\n", r.Mode, len(r.Files), r.KeptRoot)
			for _, f := range r.Files {
				fmt.Fprintf(out, "  %s\n", f)
			}
		default:
			fmt.Fprintf(out, "Removed %d files (%s), skipped %d\n", r.Completed, r.Mode, r.Skipped)
		}
	}
}

func removeExcept(cmd *cobra.Command, svc *scan.Service, sets []*correlate.Set, keepRoot string, opts scanOptions) (*removalView, error) {
	var doomed []*catalog.Entry
	for _, set := range sets {
		col, ok := selection.ColumnForRoot(set, keepRoot)
		if !ok {
			continue
		}
		entries, err := selection.ExceptColumn(set, col)
		if err != nil {
			return nil, err
		}
		doomed = append(doomed, entries...)
	}
	items, mode := selection.Items(doomed, opts.safe)
	view := &removalView{KeptRoot: keepRoot, Mode: string(mode), Files: paths(doomed)}
	if !opts.yes || len(items) == 0 {
		return view, nil
	}
	report, err := svc.Executor(fileops.AppendIndex).ExecuteBatch(cmd.Context(), items, mode, nil)
	view.Applied = true
	view.Completed = report.Completed
	view.Skipped = report.Skipped
	return view, err
}

func paths(entries []*catalog.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func columnDirs(col []*catalog.Entry) []string {
	seen := make(map[string]struct{}, len(col))
	var dirs []string
	for _, e := range col {
		if _, ok := seen[e.Dir]; ok {
			continue
		}
		seen[e.Dir] = struct{}{}
		dirs = append(dirs, e.Dir)
	}
	sort.Strings(dirs)
	return dirs
}
