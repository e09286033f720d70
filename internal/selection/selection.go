// Package selection turns a choice of files to keep into a removal batch.
//
// Selection never removes every copy: a duplicate group with no kept member
// is left untouched.
package selection

import (
	"fmt"

	"deduper/internal/catalog"
	"deduper/internal/correlate"
	"deduper/internal/fileops"
)

// ColumnForRoot returns the column of set whose members all live under root.
func ColumnForRoot(set *correlate.Set, root string) (int, bool) {
	for i, col := range set.Columns {
		match := len(col) > 0
		for _, e := range col {
			if e.Root != root {
				match = false
				break
			}
		}
		if match {
			return i, true
		}
	}
	return 0, false
}

// ExceptColumn keeps column col of set and returns every other member of
// its groups, including members beyond the shortest group.
func ExceptColumn(set *correlate.Set, col int) ([]*catalog.Entry, error) {
	if col < 0 || col >= set.Width() {
		return nil, fmt.Errorf("column %d out of range (set has %d)", col, set.Width())
	}
	keep := make(map[string]struct{}, len(set.Columns[col]))
	for _, e := range set.Columns[col] {
		keep[e.Path] = struct{}{}
	}
	return ExceptSelected(set.Groups, func(e *catalog.Entry) bool {
		_, ok := keep[e.Path]
		return ok
	}), nil
}

// ExceptSelected returns the unkept members of every group that has at least
// one kept member, in group order.
func ExceptSelected(groups [][]*catalog.Entry, keep func(*catalog.Entry) bool) []*catalog.Entry {
	var out []*catalog.Entry
	for _, group := range groups {
		kept := false
		for _, e := range group {
			if keep(e) {
				kept = true
				break
			}
		}
		if !kept {
			continue
		}
		for _, e := range group {
			if !keep(e) {
				out = append(out, e)
			}
		}
	}
	return out
}

// Items builds the batch for entries. safe renames each file with the
// deleted marker instead of removing it.
func Items(entries []*catalog.Entry, safe bool) ([]fileops.Item, fileops.Mode) {
	items := make([]fileops.Item, 0, len(entries))
	for _, e := range entries {
		item := fileops.Item{Entry: e}
		if safe {
			item.Target = fileops.MarkedPath(e.Path)
		}
		items = append(items, item)
	}
	if safe {
		return items, fileops.Rename
	}
	return items, fileops.Delete
}
