// Package logging carries correlation IDs (repository, ref, task run)
// through context so log lines from a build can be tied together.
package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	repoKey ctxKey = iota
	refKey
	runIDKey
)

// WithRepo returns a context with the repository URL set.
func WithRepo(ctx context.Context, repo string) context.Context {
	return context.WithValue(ctx, repoKey, repo)
}

// WithRef returns a context with the git ref set.
func WithRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, refKey, ref)
}

// WithRunID returns a context with the task run ID set.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// Repo extracts the repository from the context, or "" if absent.
func Repo(ctx context.Context) string {
	v, _ := ctx.Value(repoKey).(string)
	return v
}

// Ref extracts the git ref from the context, or "" if absent.
func Ref(ctx context.Context) string {
	v, _ := ctx.Value(refKey).(string)
	return v
}

// RunID extracts the task run ID from the context, or "" if absent.
func RunID(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey).(string)
	return v
}

// CorrelationHandler wraps an slog.Handler, injecting correlation IDs
// from the context into every record. Use with
// slog.New(NewCorrelationHandler(inner)) so callers can log with
// InfoContext and the IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic
// correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := Repo(ctx); v != "" {
		r.AddAttrs(slog.String("repo", v))
	}
	if v := Ref(ctx); v != "" {
		r.AddAttrs(slog.String("ref", v))
	}
	if v := RunID(ctx); v != "" {
		r.AddAttrs(slog.String("run_id", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
