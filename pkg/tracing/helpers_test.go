// Shared fixtures for wrapper tests: an in-memory exporter and a root span
// that scopes wrapped calls to the test's own provider.
package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestProvider(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp
}

// rootContext opens a root span on tp so wrapped calls inside it resolve
// their tracer from the test's provider, keeping parallel tests isolated.
func rootContext(t *testing.T, tp *sdktrace.TracerProvider) context.Context {
	t.Helper()

	ctx, root := tp.Tracer("test").Start(context.Background(), "test-root")
	t.Cleanup(func() { root.End() })
	return ctx
}

func attrValue(stub tracetest.SpanStub, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range stub.Attributes {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func countEvents(stub tracetest.SpanStub, name string) int {
	n := 0
	for _, ev := range stub.Events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

// findSpan returns the exported span with the given name.
func findSpan(t *testing.T, spans tracetest.SpanStubs, name string) tracetest.SpanStub {
	t.Helper()

	for _, s := range spans {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("span %q not found among %d spans", name, len(spans))
	return tracetest.SpanStub{}
}
