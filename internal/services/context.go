package services

import "context"

type contextKey string

const (
	runIDKey contextKey = "run_id"
	kindKey  contextKey = "kind"
	nodeKey  contextKey = "node"
)

// WithRunID annotates context with the identifier of the current processing run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

// WithKind annotates context with the processing kind being requested.
func WithKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, kindKey, kind)
}

// KindFromContext returns the processing kind if present.
func KindFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, kindKey)
}

// WithNode annotates context with the provenance node being computed.
func WithNode(ctx context.Context, node string) context.Context {
	if node == "" {
		return ctx
	}
	return context.WithValue(ctx, nodeKey, node)
}

// NodeFromContext returns the provenance node name if present.
func NodeFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, nodeKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if str, ok := ctx.Value(key).(string); ok && str != "" {
		return str, true
	}
	return "", false
}
