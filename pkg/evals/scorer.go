// Package evals runs a task function across a dataset, applies scorers to
// each output, records the whole run as a span tree, and emits each score
// through the registered pipeline so it lands next to the traces it judges.
package evals

import "context"

// Sample is one scored data point: the task input, the task output, and the
// expected output when the dataset provides one.
type Sample struct {
	Input    any
	Output   any
	Expected any
}

// Result is one scorer's verdict on a sample.
type Result struct {
	Name        string
	Value       float64
	Label       string
	Explanation string
	Metadata    map[string]any
}

// Scorer judges samples. Implementations must be safe for concurrent use;
// Evaluate calls them from multiple goroutines.
type Scorer interface {
	Name() string
	Score(ctx context.Context, s Sample) (Result, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc struct {
	ScorerName string
	Fn         func(ctx context.Context, s Sample) (Result, error)
}

// Name returns the scorer name.
func (f ScorerFunc) Name() string { return f.ScorerName }

// Score invokes the wrapped function.
func (f ScorerFunc) Score(ctx context.Context, s Sample) (Result, error) {
	return f.Fn(ctx, s)
}
