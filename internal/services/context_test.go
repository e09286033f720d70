package services_test

import (
	"context"
	"testing"

	"deduper/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithScanID(ctx, "scan-123")
	ctx = services.WithStage(ctx, "hashing")

	if id, ok := services.ScanIDFromContext(ctx); !ok || id != "scan-123" {
		t.Fatalf("unexpected scan id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "hashing" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithScanID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.ScanIDFromContext(ctx); ok {
		t.Fatal("expected no scan id value")
	}
}
