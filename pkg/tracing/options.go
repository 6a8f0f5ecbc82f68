package tracing

import (
	"reflect"
	"runtime"
	"strings"
)

// config holds the immutable per-wrapper settings. It is bound to the
// wrapped function when the wrapper is created and never changes afterwards.
type config struct {
	name        string
	version     string
	description string
}

// Option configures a wrapped function.
type Option func(*config)

// WithName overrides the span name. Defaults to the wrapped function's name.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithVersion attaches a version to the agent or tool, for tracking changes
// to the wrapped function over time.
func WithVersion(version string) Option {
	return func(c *config) { c.version = version }
}

// WithDescription attaches a human-readable description. Only recorded on
// tool spans, as gen_ai.tool.description.
func WithDescription(desc string) Option {
	return func(c *config) { c.description = desc }
}

// newConfig applies options over the function's default name.
func newConfig(fn any, opts []Option) config {
	cfg := config{name: functionName(fn)}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// functionName derives a qualified name like "pkg.doWork" from a function
// value. Method values carry a "-fm" suffix from the runtime; strip it.
func functionName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "anonymous"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
