// Package pipeline assembles and installs the process-wide tracing pipeline:
// tracer provider, resource, span processor, and OTLP exporter transport,
// with optional SigV4 signing for AWS-hosted endpoints. Register is the
// single entry point; everything else in this SDK produces spans through the
// pipeline it installs.
package pipeline

import (
	"context"
	"errors"

	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultEndpoint is the local Data Prepper OTLP/HTTP endpoint used when no
// endpoint is configured anywhere.
const DefaultEndpoint = "http://localhost:21890/opentelemetry/v1/traces"

// Configuration failures surfaced by Register. Matched with errors.Is.
var (
	// ErrInvalidEndpoint marks an endpoint that does not parse as a URI.
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	// ErrUnsupportedTransport marks a URI scheme with no OTLP transport.
	ErrUnsupportedTransport = errors.New("unsupported transport")
)

// Auth selects how export requests authenticate to the endpoint.
type Auth int

const (
	// AuthAuto is equivalent to AuthNone. Endpoint sniffing to auto-enable
	// signing was deliberately removed; signing is explicit opt-in.
	AuthAuto Auth = iota
	// AuthNone sends export requests unsigned.
	AuthNone
	// AuthSigV4 signs every export request with AWS Signature Version 4.
	AuthSigV4
)

// Config is consumed once by Register. Explicit fields always win over the
// environment fallbacks (OPENSEARCH_OTEL_ENDPOINT, OTEL_SERVICE_NAME,
// OPENSEARCH_PROJECT, AWS_REGION).
type Config struct {
	// Endpoint is the OTLP endpoint URI. The scheme selects the transport:
	// http/https for OTLP/HTTP, grpc for insecure gRPC, grpcs for TLS gRPC.
	Endpoint string
	// ServiceName is attached to every span as service.name.
	ServiceName string
	// Auth selects export authentication.
	Auth Auth
	// Region is the AWS region for SigV4 signing. Resolved from the AWS
	// config chain when empty.
	Region string
	// SigningService is the AWS service name for SigV4. Defaults to "osis".
	SigningService string
	// Batch selects the asynchronous batching processor. False installs a
	// synchronous processor that exports each span before the originating
	// call returns, useful for tests and debugging.
	Batch bool
	// AutoInstrument activates registered instrumentor plugins after the
	// provider is installed.
	AutoInstrument bool
	// Headers adds extra headers to every export request.
	Headers map[string]string
	// Exporter bypasses transport selection entirely when set.
	Exporter sdktrace.SpanExporter
}

// DefaultConfig returns the defaults for a bare Register call: batching on,
// auto-instrumentation on, no signing.
func DefaultConfig() Config {
	return Config{Batch: true, AutoInstrument: true}
}

// envDefaults are the environment fallbacks consumed when the corresponding
// Config field is empty.
type envDefaults struct {
	Endpoint    string `env:"OPENSEARCH_OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME"`
	Project     string `env:"OPENSEARCH_PROJECT"`
	Region      string `env:"AWS_REGION"`
}

func loadEnvDefaults(ctx context.Context) envDefaults {
	var env envDefaults
	if err := envconfig.Process(ctx, &env); err != nil {
		clog.FromContext(ctx).Warnf("reading environment defaults: %v", err)
	}
	return env
}

// firstNonEmpty returns the first non-empty value, establishing precedence
// chains like explicit > env > default.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
