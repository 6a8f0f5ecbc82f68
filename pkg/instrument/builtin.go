package instrument

import (
	"context"
	"net/http"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/stats"
)

func init() {
	Register(&httpClientInstrumentor{})
	Register(grpcInstrumentor)
}

// httpClientInstrumentor wraps http.DefaultTransport with otelhttp so
// outbound HTTP calls made through the default client (most LLM provider
// SDKs) produce client spans on the installed provider.
type httpClientInstrumentor struct {
	mu   sync.Mutex
	base http.RoundTripper // original transport, kept for re-activation
}

func (h *httpClientInstrumentor) Name() string { return "net/http" }

// Installed is always true: the target is the standard library.
func (h *httpClientInstrumentor) Installed() bool { return true }

func (h *httpClientInstrumentor) Instrument(_ context.Context, tp trace.TracerProvider) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.base == nil {
		h.base = http.DefaultTransport
	}
	// Re-activation (pipeline replaced) re-wraps the original transport
	// rather than stacking wrappers.
	http.DefaultTransport = otelhttp.NewTransport(h.base, otelhttp.WithTracerProvider(tp))
	return nil
}

// grpcClientInstrumentor prepares otelgrpc client instrumentation. gRPC has
// no process-wide default connection to patch, so activation publishes dial
// options that callers attach when dialing LLM/vector-store backends.
type grpcClientInstrumentor struct {
	mu      sync.Mutex
	handler stats.Handler
}

var grpcInstrumentor = &grpcClientInstrumentor{}

func (g *grpcClientInstrumentor) Name() string { return "grpc" }

func (g *grpcClientInstrumentor) Installed() bool { return true }

func (g *grpcClientInstrumentor) Instrument(_ context.Context, tp trace.TracerProvider) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = otelgrpc.NewClientHandler(otelgrpc.WithTracerProvider(tp))
	return nil
}

// GRPCDialOptions returns the dial options that trace outbound gRPC calls on
// the installed provider. Empty until the grpc instrumentor has activated.
func GRPCDialOptions() []grpc.DialOption {
	grpcInstrumentor.mu.Lock()
	defer grpcInstrumentor.mu.Unlock()
	if grpcInstrumentor.handler == nil {
		return nil
	}
	return []grpc.DialOption{grpc.WithStatsHandler(grpcInstrumentor.handler)}
}
