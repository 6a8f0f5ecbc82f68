// Package instrument discovers and activates instrumentor plugins against
// the installed tracer provider. Go has no runtime package enumeration, so
// discovery works like database/sql drivers: instrumentors register
// themselves at compile time (built-ins here, third parties via Register),
// and activation walks the catalog once. One broken instrumentor never
// prevents the others from activating, and never reaches the host
// application as an error.
package instrument

import (
	"context"
	"fmt"
	"sync"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentor is the activation contract for one plugin. Installed reports
// whether the plugin's target is present in this process; Instrument wires
// the plugin to the given provider.
type Instrumentor interface {
	Name() string
	Installed() bool
	Instrument(ctx context.Context, tp trace.TracerProvider) error
}

var (
	mu      sync.Mutex
	catalog []Instrumentor
	byName  = map[string]bool{}
)

// Register adds an instrumentor to the catalog. Registering the same name
// twice is a no-op, so a plugin appearing through two paths is only
// activated once.
func Register(i Instrumentor) {
	mu.Lock()
	defer mu.Unlock()
	if byName[i.Name()] {
		return
	}
	byName[i.Name()] = true
	catalog = append(catalog, i)
}

// Entry records the outcome for one catalog entry.
type Entry struct {
	Name      string
	Installed bool
	Activated bool
	Err       error
}

// Report lists the per-plugin outcome of one activation pass.
type Report struct {
	Entries []Entry
}

// Activated counts plugins that activated successfully.
func (r Report) Activated() int {
	n := 0
	for _, e := range r.Entries {
		if e.Activated {
			n++
		}
	}
	return n
}

// Failed counts plugins whose target was present but activation failed.
func (r Report) Failed() int {
	n := 0
	for _, e := range r.Entries {
		if e.Err != nil {
			n++
		}
	}
	return n
}

// Activate walks the catalog and activates every installed instrumentor
// against tp. Absent targets are skipped (not an error). Failures, including
// panics inside a plugin, are captured per entry. No ordering between
// plugins is guaranteed.
func Activate(ctx context.Context, tp trace.TracerProvider) Report {
	mu.Lock()
	plugins := make([]Instrumentor, len(catalog))
	copy(plugins, catalog)
	mu.Unlock()

	log := clog.FromContext(ctx)
	var report Report
	for _, p := range plugins {
		entry := Entry{Name: p.Name()}
		if !p.Installed() {
			report.Entries = append(report.Entries, entry)
			continue
		}
		entry.Installed = true

		if err := instrumentSafely(ctx, p, tp); err != nil {
			entry.Err = err
			log.Warnf("skipped instrumentor %s: %v", p.Name(), err)
		} else {
			entry.Activated = true
			log.Debugf("instrumented: %s", p.Name())
		}
		report.Entries = append(report.Entries, entry)
	}

	if report.Activated() == 0 {
		log.Infof("no instrumentors activated; register instrumentors to auto-trace LLM calls")
	} else {
		log.Infof("auto-instrumented %d plugins", report.Activated())
	}
	return report
}

// instrumentSafely converts a plugin panic into an error so it stays inside
// the report.
func instrumentSafely(ctx context.Context, p Instrumentor, tp trace.TracerProvider) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("instrumentor panicked: %v", r)
		}
	}()
	return p.Instrument(ctx, tp)
}
