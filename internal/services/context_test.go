package services_test

import (
	"context"
	"testing"

	"narrator/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithVideoID(ctx, "vid-9")
	ctx = services.WithStage(ctx, "rendering")
	ctx = services.WithSegment(ctx, 3)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.VideoIDFromContext(ctx); !ok || id != "vid-9" {
		t.Fatalf("unexpected video id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "rendering" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if idx, ok := services.SegmentFromContext(ctx); !ok || idx != 3 {
		t.Fatalf("unexpected segment: %v %v", idx, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.SegmentFromContext(ctx); ok {
		t.Fatal("expected no segment value")
	}
}
