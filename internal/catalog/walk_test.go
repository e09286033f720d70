package catalog_test

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/spf13/afero"

	"deduper/internal/catalog"
)

func writeFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", path, err)
		}
		if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

func paths(entries []*catalog.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func TestWalkAppliesBlacklistAndFilter(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/photos/a.JPG":           "a",
		"/photos/sub/b.png":       "bb",
		"/photos/sub/notes.txt":   "text",
		"/photos/skip/c.jpg":      "c",
		"/photos/skip/deep/d.jpg": "d",
		"/video/e.mp4":            "e",
	})

	filter := catalog.NewExtensionFilter(catalog.FilterWhitelist, nil, []string{"image"})
	entries, err := catalog.Walk(fsys, []string{"/photos", "/video"}, catalog.WalkOptions{
		Blacklist: []string{"/photos/skip"},
		Filter:    filter,
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{"/photos/a.JPG", "/photos/sub/b.png"}
	if got := paths(entries); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected entries: got %v want %v", got, want)
	}

	first := entries[0]
	if first.Extension != "jpg" || first.Name != "a.JPG" || first.Dir != "/photos/" || first.Size != 1 {
		t.Fatalf("unexpected entry fields: %+v", first)
	}
	if entries[1].RelPath() != filepath.Join("sub", "b.png") {
		t.Fatalf("unexpected rel path: %q", entries[1].RelPath())
	}
}

func TestWalkBlacklistFilter(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/r/a.jpg": "a",
		"/r/b.txt": "b",
	})
	filter := catalog.NewExtensionFilter(catalog.FilterBlacklist, []string{".TXT"}, nil)
	entries, err := catalog.Walk(fsys, []string{"/r"}, catalog.WalkOptions{Filter: filter})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if got := paths(entries); !reflect.DeepEqual(got, []string{"/r/a.jpg"}) {
		t.Fatalf("unexpected entries: %v", got)
	}
}

func TestWalkRejectsMissingRoot(t *testing.T) {
	if _, err := catalog.Walk(afero.NewMemMapFs(), []string{"/nope"}, catalog.WalkOptions{}); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestNormalizeRootsFoldsNested(t *testing.T) {
	got := catalog.NormalizeRoots([]string{"/b", "/a/x", "/a", "/b/", "", "/ab"})
	want := []string{"/a", "/ab", "/b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeRoots = %v, want %v", got, want)
	}
}

func TestEntryHelpers(t *testing.T) {
	e := catalog.NewEntry("/data/photos/IMG_1.jpeg", 10, "/data")
	if e.Stem() != "IMG_1" {
		t.Fatalf("unexpected stem %q", e.Stem())
	}
	if e.MetadataLoaded() {
		t.Fatal("metadata should not be loaded yet")
	}
	e.SetMetadata(map[string]string{"Camera model": "X100"})
	if !e.MetadataLoaded() || e.Field("Camera model") != "X100" || e.Field("Album") != "" {
		t.Fatalf("unexpected metadata state: %+v", e.Metadata)
	}
	if !catalog.IsVideo("MOV") || catalog.IsVideo("jpg") {
		t.Fatal("unexpected IsVideo result")
	}
}

func TestNormalizeRootsMakesRelativeRootsAbsolute(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	got := catalog.NormalizeRoots([]string{"photos", "./photos/sub", "../other"})
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(filepath.Dir(wd), "other"), filepath.Join(wd, "photos")}
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeRoots = %v, want %v", got, want)
	}
}
