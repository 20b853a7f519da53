package services_test

import (
	"context"
	"testing"

	"openbst/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithKind(ctx, "raw_decoding")
	ctx = services.WithNode(ctx, "00__raw_decoding__abc")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if kind, ok := services.KindFromContext(ctx); !ok || kind != "raw_decoding" {
		t.Fatalf("unexpected kind: %v %v", kind, ok)
	}
	if node, ok := services.NodeFromContext(ctx); !ok || node != "00__raw_decoding__abc" {
		t.Fatalf("unexpected node: %v %v", node, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithKind(ctx, "")
	ctx = services.WithNode(ctx, "")
	if _, ok := services.KindFromContext(ctx); ok {
		t.Fatal("expected no kind value")
	}
	if _, ok := services.NodeFromContext(ctx); ok {
		t.Fatal("expected no node value")
	}
}
