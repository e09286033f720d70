package selection

import (
	"testing"

	"deduper/internal/catalog"
	"deduper/internal/correlate"
	"deduper/internal/fileops"
	"deduper/internal/grouping"
)

func rooted(root, rel string) *catalog.Entry {
	return catalog.NewEntry(root+"/"+rel, 1, root)
}

func TestExceptColumnKeepsOneRoot(t *testing.T) {
	groups := []*grouping.Group{
		{Entries: []*catalog.Entry{rooted("/t2", "d/1"), rooted("/t1", "d/1")}},
		{Entries: []*catalog.Entry{rooted("/t1", "d/2"), rooted("/t2", "d/2")}},
	}
	sets := correlate.Correlate(groups)
	if len(sets) != 1 {
		t.Fatalf("sets = %d", len(sets))
	}
	col, ok := ColumnForRoot(sets[0], "/t2")
	if !ok || col != 1 {
		t.Fatalf("column for /t2 = %d %v", col, ok)
	}
	doomed, err := ExceptColumn(sets[0], col)
	if err != nil {
		t.Fatal(err)
	}
	if len(doomed) != 2 {
		t.Fatalf("doomed = %d", len(doomed))
	}
	for _, e := range doomed {
		if e.Root != "/t1" {
			t.Fatalf("kept root scheduled for removal: %s", e.Path)
		}
	}
	if _, err := ExceptColumn(sets[0], 5); err == nil {
		t.Fatal("expected range error")
	}
	if _, ok := ColumnForRoot(sets[0], "/elsewhere"); ok {
		t.Fatal("unknown root must not match")
	}
}

func TestExceptSelectedLeavesUnselectedGroups(t *testing.T) {
	a1, a2 := rooted("/r", "a1"), rooted("/r", "a2")
	b1, b2 := rooted("/r", "b1"), rooted("/r", "b2")
	keep := map[*catalog.Entry]bool{a1: true}
	out := ExceptSelected([][]*catalog.Entry{{a1, a2}, {b1, b2}}, func(e *catalog.Entry) bool { return keep[e] })
	if len(out) != 1 || out[0] != a2 {
		t.Fatalf("unexpected removal list %v", out)
	}
}

func TestItems(t *testing.T) {
	e := rooted("/r", "x.jpg")
	items, mode := Items([]*catalog.Entry{e}, true)
	if mode != fileops.Rename || items[0].Target != "/r/x.jpg_DELETED_" {
		t.Fatalf("safe items = %+v %s", items, mode)
	}
	items, mode = Items([]*catalog.Entry{e}, false)
	if mode != fileops.Delete || items[0].Target != "" {
		t.Fatalf("delete items = %+v %s", items, mode)
	}
}
