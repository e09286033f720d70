package scan

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"deduper/internal/config"
	"deduper/internal/grouping"
	"deduper/internal/metadata"
	"deduper/internal/reconcile"
	"deduper/internal/services"
	"deduper/internal/services/ffmpeg"
	"deduper/internal/testsupport"
)

func newService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	store := testsupport.MustOpenCache(t, cfg)
	svc, err := New(cfg, WithCache(store), WithFrames(ffmpeg.New(filepath.Join(t.TempDir(), "no-ffmpeg"))))
	if err != nil {
		t.Fatalf("scan.New: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestScanHashCorrelatesMirroredTrees(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	one := filepath.Join(base, "one")
	two := filepath.Join(base, "two")
	testsupport.WriteBytes(t, filepath.Join(one, "d", "a.bin"), []byte("alpha"))
	testsupport.WriteBytes(t, filepath.Join(two, "d", "a.bin"), []byte("alpha"))
	testsupport.WriteBytes(t, filepath.Join(one, "d", "b.bin"), []byte("bravo"))
	testsupport.WriteBytes(t, filepath.Join(two, "d", "b.bin"), []byte("bravo"))
	testsupport.WriteBytes(t, filepath.Join(one, "u.bin"), []byte("unique content"))

	svc := newService(t, cfg)
	res, err := svc.Scan(context.Background(), Request{Roots: []string{two, one}, Field: grouping.ByHash})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.ID == "" || res.Files != 5 {
		t.Fatalf("id=%q files=%d", res.ID, res.Files)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(res.Groups))
	}
	if len(res.Sets) != 1 || res.Sets[0].Width() != 2 || res.Sets[0].Rows() != 2 {
		t.Fatalf("unexpected correlation %+v", res.Sets)
	}
	if res.Tally.Duplicate != 2 || res.Tally.Unique != 2 {
		t.Fatalf("tally = %+v", res.Tally)
	}
	if svc.Cache().InScan() {
		t.Fatal("cache transaction left open")
	}

	again, err := svc.Scan(context.Background(), Request{Roots: []string{one, two}, Field: grouping.ByHash})
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if again.Tally.Preloaded == 0 {
		t.Fatal("second scan should be answered from the cache")
	}
	if len(again.Groups) != 2 {
		t.Fatalf("second scan groups = %d", len(again.Groups))
	}
}

func TestScanByName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	testsupport.WriteBytes(t, filepath.Join(base, "a", "Photo.JPG"), []byte("1"))
	testsupport.WriteBytes(t, filepath.Join(base, "b", "photo.jpg"), []byte("22"))

	svc := newService(t, cfg)
	res, err := svc.Scan(context.Background(), Request{
		Roots: []string{filepath.Join(base, "a"), filepath.Join(base, "b")},
		Field: grouping.ByName,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Groups) != 1 || res.Groups[0].Size() != 2 {
		t.Fatalf("name groups = %+v", res.Groups)
	}
}

func TestScanPerceptualWithThumbnails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: uint8((x * y) % 256), A: 255})
		}
	}
	testsupport.WriteImage(t, filepath.Join(base, "pics", "a.png"), img)
	testsupport.WriteImage(t, filepath.Join(base, "pics", "copy", "a.png"), img)
	testsupport.WriteBytes(t, filepath.Join(base, "pics", "notes.txt"), []byte("not an image"))

	svc := newService(t, cfg)
	res, err := svc.Scan(context.Background(), Request{
		Roots:      []string{filepath.Join(base, "pics")},
		Field:      grouping.ByPerceptual,
		Thumbnails: true,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Groups) != 1 || res.Groups[0].Size() != 2 {
		t.Fatalf("perceptual groups = %+v", res.Groups)
	}
	if res.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", res.Skipped)
	}
	for _, e := range res.Groups[0].Entries {
		if len(e.Thumbnail) == 0 {
			t.Fatalf("missing thumbnail for %s", e.Path)
		}
	}
}

func TestScanRejectsMissingRoots(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := newService(t, cfg)
	if _, err := svc.Scan(context.Background(), Request{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	missing := filepath.Join(testsupport.BaseDir(cfg), "missing")
	if _, err := svc.Scan(context.Background(), Request{Roots: []string{missing}}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestLoadMetadataNative(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	testsupport.WriteImage(t, filepath.Join(base, "m", "x.png"), image.NewGray(image.Rect(0, 0, 3, 2)))

	svc := newService(t, cfg)
	entries, err := svc.WalkWithMetadata(context.Background(), []string{filepath.Join(base, "m")})
	if err != nil {
		t.Fatalf("WalkWithMetadata: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if got := e.Field(metadata.FieldMediaType); got != "image/png" {
		t.Fatalf("media type = %q", got)
	}
	if got := e.Field(metadata.FieldWidth); got != "3" {
		t.Fatalf("width = %q", got)
	}
}

func TestPlanReconcile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	master := filepath.Join(base, "master")
	slave := filepath.Join(base, "slave")
	testsupport.WriteBytes(t, filepath.Join(master, "keep.bin"), []byte("shared"))
	testsupport.WriteBytes(t, filepath.Join(slave, "x", "copy.bin"), []byte("shared"))
	testsupport.WriteBytes(t, filepath.Join(slave, "y", "own.bin"), []byte("slave only"))

	svc := newService(t, cfg)
	plan, err := svc.PlanReconcile(context.Background(), ReconcileRequest{
		Master: master,
		Slaves: []string{slave},
		Mode:   reconcile.Quarantine,
	})
	if err != nil {
		t.Fatalf("PlanReconcile: %v", err)
	}
	if len(plan.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(plan.Items))
	}
	want := filepath.Join(cfg.Paths.QuarantineDir, "slave", "x", "copy.bin")
	if plan.Items[0].Target != want {
		t.Fatalf("target = %q, want %q", plan.Items[0].Target, want)
	}

	_, err = svc.PlanReconcile(context.Background(), ReconcileRequest{
		Master: master,
		Slaves: []string{filepath.Join(master, "inner")},
		Mode:   reconcile.MarkRename,
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected overlap validation error, got %v", err)
	}
}

func TestScanRelativeRootKeysCacheByAbsolutePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	first := filepath.Join(base, "w1")
	second := filepath.Join(base, "w2")
	testsupport.WriteBytes(t, filepath.Join(first, "photos", "f.bin"), []byte("AAAA"))
	testsupport.WriteBytes(t, filepath.Join(first, "photos", "g.bin"), []byte("AAAA"))
	testsupport.WriteBytes(t, filepath.Join(second, "photos", "f.bin"), []byte("BBBB"))
	testsupport.WriteBytes(t, filepath.Join(second, "photos", "g.bin"), []byte("CCCC"))

	svc := newService(t, cfg)

	t.Chdir(first)
	res, err := svc.Scan(context.Background(), Request{Roots: []string{"photos"}, Field: grouping.ByHash})
	if err != nil {
		t.Fatalf("Scan in first dir: %v", err)
	}
	if len(res.Groups) != 1 {
		t.Fatalf("first dir groups = %d, want 1", len(res.Groups))
	}
	for _, e := range res.Groups[0].Entries {
		if !filepath.IsAbs(e.Path) || !filepath.IsAbs(e.Root) {
			t.Fatalf("entry not absolute: path=%q root=%q", e.Path, e.Root)
		}
	}

	t.Chdir(second)
	res, err = svc.Scan(context.Background(), Request{Roots: []string{"photos"}, Field: grouping.ByHash})
	if err != nil {
		t.Fatalf("Scan in second dir: %v", err)
	}
	if len(res.Groups) != 0 {
		t.Fatalf("distinct files grouped from stale cache rows: %+v", res.Groups[0].Entries)
	}
	if res.Tally.Preloaded != 0 {
		t.Fatalf("preloaded = %d, want 0 for files never scanned", res.Tally.Preloaded)
	}
}

func TestScanThresholdZeroOverridesConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	inverted := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			c := color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: uint8((x * y) % 256), A: 255}
			img.Set(x, y, c)
			inverted.Set(x, y, color.RGBA{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: 255})
		}
	}
	root := filepath.Join(base, "pics")
	testsupport.WriteImage(t, filepath.Join(root, "a.png"), img)
	testsupport.WriteImage(t, filepath.Join(root, "b.png"), inverted)

	svc := newService(t, cfg)
	res, err := svc.Scan(context.Background(), Request{Roots: []string{root}, Field: grouping.ByPerceptual})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Groups) != 0 {
		t.Fatalf("configured threshold grouped inverted images: %+v", res.Groups)
	}

	zero := 0
	res, err = svc.Scan(context.Background(), Request{Roots: []string{root}, Field: grouping.ByPerceptual, Threshold: &zero})
	if err != nil {
		t.Fatalf("Scan at threshold 0: %v", err)
	}
	if len(res.Groups) != 1 || res.Groups[0].Size() != 2 {
		t.Fatalf("threshold 0 must match every signature, got %+v", res.Groups)
	}

	tooHigh := 101
	_, err = svc.Scan(context.Background(), Request{Roots: []string{root}, Field: grouping.ByPerceptual, Threshold: &tooHigh})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
