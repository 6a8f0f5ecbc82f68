package tracing

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this SDK's instrumentation scope.
const tracerName = "opensearch-genai-go"

// scope is the shared span-scoped execution primitive behind every calling
// convention adapter. It owns exactly one span and guarantees it is closed
// exactly once on every exit path.
type scope struct {
	span trace.Span
	kind Kind
	done bool
}

// start opens a span as a child of whatever span is active in ctx (or as a
// root when none is) and records the start-time attributes. A serialisation
// failure never aborts the call: it is logged and the attribute omitted.
func start(ctx context.Context, kind Kind, cfg config, input any) (context.Context, *scope) {
	ctx, span := tracerFor(ctx).Start(ctx, kind.spanName(cfg.name))

	attrs, err := startAttributes(kind, cfg, input)
	if err != nil {
		clog.FromContext(ctx).Debugf("dropping input capture for %s: %v", cfg.name, err)
	}
	span.SetAttributes(attrs...)

	return ctx, &scope{span: span, kind: kind}
}

// tracerFor prefers the provider that owns the active span, falling back to
// the process-wide provider. Nested wrapped calls therefore stay on the
// provider of their root, which also lets tests run against an isolated
// provider per test.
func tracerFor(ctx context.Context) trace.Tracer {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return span.TracerProvider().Tracer(tracerName)
	}
	return otel.Tracer(tracerName)
}

// close ends the span once. A nil err records the output capture attribute;
// a context cancellation records a cancelled event and error status without
// an exception event; any other error records exactly one exception event.
func (s *scope) close(ctx context.Context, output any, err error) {
	if s.done {
		return
	}
	s.done = true

	switch {
	case err == nil:
		attr, merr := outputAttribute(s.kind, output)
		if merr != nil {
			clog.FromContext(ctx).Debugf("dropping output capture: %v", merr)
		} else if attr.Valid() {
			s.span.SetAttributes(attr)
		}
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		s.span.AddEvent("cancelled")
		s.span.SetStatus(codes.Error, err.Error())
	default:
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

// abort ends the span for a panic unwinding through the wrapper. The panic
// value continues up the stack unchanged.
func (s *scope) abort(r any) {
	if s.done {
		return
	}
	s.done = true
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", r)
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	s.span.End()
}

// Wrap returns a function with the identical signature and behaviour as fn
// that additionally records one span per invocation. The error returned by
// fn passes through unchanged.
func Wrap[I, O any](kind Kind, fn func(context.Context, I) (O, error), opts ...Option) func(context.Context, I) (O, error) {
	cfg := newConfig(fn, opts)
	return func(ctx context.Context, in I) (O, error) {
		ctx, sc := start(ctx, kind, cfg, in)
		defer func() {
			if r := recover(); r != nil {
				sc.abort(r)
				panic(r)
			}
		}()
		out, err := fn(ctx, in)
		sc.close(ctx, out, err)
		return out, err
	}
}

// Workflow wraps a top-level orchestration function.
func Workflow[I, O any](fn func(context.Context, I) (O, error), opts ...Option) func(context.Context, I) (O, error) {
	return Wrap(KindWorkflow, fn, opts...)
}

// Task wraps an individual unit of work within a workflow.
func Task[I, O any](fn func(context.Context, I) (O, error), opts ...Option) func(context.Context, I) (O, error) {
	return Wrap(KindTask, fn, opts...)
}

// Agent wraps autonomous agent logic that makes decisions and invokes tools.
func Agent[I, O any](fn func(context.Context, I) (O, error), opts ...Option) func(context.Context, I) (O, error) {
	return Wrap(KindAgent, fn, opts...)
}

// Tool wraps a tool/function call invoked by agents.
func Tool[I, O any](fn func(context.Context, I) (O, error), opts ...Option) func(context.Context, I) (O, error) {
	return Wrap(KindTool, fn, opts...)
}
