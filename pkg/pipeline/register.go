package pipeline

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"

	"github.com/opensearch-project/opensearch-genai-go/pkg/instrument"
	"github.com/opensearch-project/opensearch-genai-go/pkg/sigv4"
)

// Pipeline is the installed tracing pipeline. At most one is active per
// process; Register swaps it atomically.
type Pipeline struct {
	provider    *sdktrace.TracerProvider
	report      instrument.Report
	endpoint    string
	serviceName string
}

// active is the process-wide pipeline handle. Wrapped calls and the score
// emitter read it; only Register and Shutdown write it.
var active atomic.Pointer[Pipeline]

// Active returns the installed pipeline, or nil when Register has not run.
func Active() *Pipeline { return active.Load() }

// Register builds the tracing pipeline from cfg and installs it as the
// process-wide provider. A second call replaces the previous pipeline
// atomically and shuts the old one down, so concurrently-running wrapped
// calls always observe exactly one live provider. Not safe to call twice
// concurrently without external synchronisation.
func Register(ctx context.Context, cfg Config) (*Pipeline, error) {
	env := loadEnvDefaults(ctx)
	endpoint := firstNonEmpty(cfg.Endpoint, env.Endpoint, DefaultEndpoint)
	serviceName := firstNonEmpty(cfg.ServiceName, env.ServiceName, env.Project, "default")

	exporter := cfg.Exporter
	if exporter == nil {
		var err error
		exporter, err = newExporter(ctx, endpoint, cfg, env)
		if err != nil {
			return nil, err
		}
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.Batch {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	} else {
		opts = append(opts, sdktrace.WithSyncer(exporter))
	}

	p := &Pipeline{
		provider:    sdktrace.NewTracerProvider(opts...),
		endpoint:    endpoint,
		serviceName: serviceName,
	}

	otel.SetTracerProvider(p.provider)
	if old := active.Swap(p); old != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := old.provider.Shutdown(shutdownCtx); err != nil {
			clog.FromContext(ctx).Warnf("shutting down replaced pipeline: %v", err)
		}
	}

	if cfg.AutoInstrument {
		p.report = instrument.Activate(ctx, p.provider)
	}

	clog.FromContext(ctx).Infof("tracing initialized: endpoint=%s service=%s", endpoint, serviceName)
	return p, nil
}

// newExporter selects the OTLP transport from the endpoint scheme.
func newExporter(ctx context.Context, endpoint string, cfg Config, env envDefaults) (sdktrace.SpanExporter, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidEndpoint, endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q: missing scheme or host", ErrInvalidEndpoint, endpoint)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return newHTTPExporter(ctx, endpoint, cfg, env)
	case "grpc":
		return newGRPCExporter(ctx, u, cfg, false)
	case "grpcs":
		return newGRPCExporter(ctx, u, cfg, true)
	default:
		return nil, fmt.Errorf("%w: scheme %q (supported: http, https, grpc, grpcs)", ErrUnsupportedTransport, u.Scheme)
	}
}

func newHTTPExporter(ctx context.Context, endpoint string, cfg Config, env envDefaults) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	if cfg.Auth == AuthSigV4 {
		transport, err := sigv4.NewTransport(ctx, sigv4.Options{
			Region:  firstNonEmpty(cfg.Region, env.Region),
			Service: cfg.SigningService,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring SigV4 signing: %w", err)
		}
		opts = append(opts, otlptracehttp.WithHTTPClient(&http.Client{Transport: transport}))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP/HTTP exporter: %w", err)
	}
	return exporter, nil
}

func newGRPCExporter(ctx context.Context, u *url.URL, cfg Config, useTLS bool) (sdktrace.SpanExporter, error) {
	if cfg.Auth == AuthSigV4 {
		clog.FromContext(ctx).Warnf("SigV4 + gRPC is not supported; exporting unsigned. Use an http/https endpoint for AWS.")
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(u.Host)}
	if useTLS {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	} else {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP/gRPC exporter: %w", err)
	}
	return exporter, nil
}

// TracerProvider exposes the pipeline's provider for instrumentors and
// advanced callers.
func (p *Pipeline) TracerProvider() trace.TracerProvider { return p.provider }

// Tracer returns a tracer from this pipeline's provider.
func (p *Pipeline) Tracer(name string) trace.Tracer { return p.provider.Tracer(name) }

// InstrumentReport returns the discovery report from registration. Empty
// when AutoInstrument was off.
func (p *Pipeline) InstrumentReport() instrument.Report { return p.report }

// ServiceName returns the resolved service.name attached to spans.
func (p *Pipeline) ServiceName() string { return p.serviceName }

// Endpoint returns the resolved export endpoint.
func (p *Pipeline) Endpoint() string { return p.endpoint }

// ForceFlush drains pending spans, blocking until export completes or ctx
// expires. Guarantees no silent loss of already-ended spans within the
// deadline.
func (p *Pipeline) ForceFlush(ctx context.Context) error {
	return p.provider.ForceFlush(ctx)
}

// Shutdown flushes and stops the pipeline. If this pipeline is the active
// one it is uninstalled, so later score emissions fail loudly instead of
// dropping silently.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	active.CompareAndSwap(p, nil)
	return p.provider.Shutdown(ctx)
}
