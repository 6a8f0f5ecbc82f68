package evals

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/opensearch-project/opensearch-genai-go/pkg/pipeline"
	"github.com/opensearch-project/opensearch-genai-go/pkg/semconv"
)

// These tests install a process-wide provider, so none run in parallel.

func installProvider(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func upcase(_ context.Context, input any) (any, error) {
	return strings.ToUpper(input.(string)), nil
}

func exactMatch() Scorer {
	return ScorerFunc{
		ScorerName: "exact_match",
		Fn: func(_ context.Context, s Sample) (Result, error) {
			if s.Output == s.Expected {
				return Result{Value: 1, Label: "match"}, nil
			}
			return Result{Value: 0, Label: "mismatch"}, nil
		},
	}
}

func TestEvaluateAverages(t *testing.T) {
	installProvider(t)

	summary, err := Evaluate(context.Background(), Eval{
		Name: "upcase",
		Data: []Datum{
			{Input: "a", Expected: "A"},
			{Input: "b", Expected: "B"},
			{Input: "c", Expected: "wrong"},
			{Input: "d", Expected: "D"},
		},
		Task:    upcase,
		Scorers: []Scorer{exactMatch()},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 0, summary.Errors)
	assert.NotEmpty(t, summary.RunID)
	assert.InDelta(t, 0.75, summary.Averages["exact_match"], 1e-9)

	// Results keep dataset order regardless of completion order.
	require.Len(t, summary.Results, 4)
	assert.Equal(t, "a", summary.Results[0].Input)
	assert.Equal(t, "D", summary.Results[3].Output)
}

func TestEvaluateTaskErrorContinuesRun(t *testing.T) {
	exporter := installProvider(t)

	boom := errors.New("model unavailable")
	flaky := func(_ context.Context, input any) (any, error) {
		if input == "bad" {
			return nil, boom
		}
		return input, nil
	}

	summary, err := Evaluate(context.Background(), Eval{
		Name:    "flaky",
		Data:    []Datum{{Input: "ok", Expected: "ok"}, {Input: "bad"}, {Input: "ok2", Expected: "ok2"}},
		Task:    flaky,
		Scorers: []Scorer{exactMatch()},
	})
	require.NoError(t, err, "a task failure is an item outcome, not a run failure")

	assert.Equal(t, 1, summary.Errors)
	assert.Same(t, boom, summary.Results[1].Err)
	assert.InDelta(t, 1.0, summary.Averages["exact_match"], 1e-9, "failed items are excluded from averages")

	spans := exporter.GetSpans()
	taskSpans := 0
	for _, s := range spans {
		if s.Name == "eval_task" {
			taskSpans++
		}
	}
	assert.Equal(t, 3, taskSpans, "the failed task still gets its span")
}

func TestEvaluateScorerFailureSkipsScore(t *testing.T) {
	installProvider(t)

	broken := ScorerFunc{
		ScorerName: "broken",
		Fn: func(context.Context, Sample) (Result, error) {
			return Result{}, errors.New("judge timeout")
		},
	}

	summary, err := Evaluate(context.Background(), Eval{
		Name:    "partial",
		Data:    []Datum{{Input: "a", Expected: "A"}},
		Task:    upcase,
		Scorers: []Scorer{broken, exactMatch()},
	})
	require.NoError(t, err)

	scores := summary.Results[0].Scores
	assert.NotContains(t, scores, "broken")
	assert.Contains(t, scores, "exact_match", "the other scorers still run")
	assert.NotContains(t, summary.Averages, "broken")
}

func TestEvaluateParallelism(t *testing.T) {
	installProvider(t)

	var inFlight, peak atomic.Int32
	slow := func(ctx context.Context, input any) (any, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		return input, nil
	}

	data := make([]Datum, 16)
	for i := range data {
		data[i] = Datum{Input: i, Expected: i}
	}
	_, err := Evaluate(context.Background(), Eval{
		Name:        "bounded",
		Data:        data,
		Task:        slow,
		Parallelism: 4,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestEvaluateSpanTree(t *testing.T) {
	exporter := installProvider(t)

	_, err := Evaluate(context.Background(), Eval{
		Name:    "tree",
		Data:    []Datum{{Input: "a", Expected: "A"}},
		Task:    upcase,
		Scorers: []Scorer{exactMatch()},
	})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	byName := map[string]tracetest.SpanStub{}
	for _, s := range spans {
		byName[s.Name] = s
	}
	run, ok := byName["evaluate"]
	require.True(t, ok)
	item, ok := byName["eval_item"]
	require.True(t, ok)
	task, ok := byName["eval_task"]
	require.True(t, ok)
	scored, ok := byName["eval_score.exact_match"]
	require.True(t, ok)

	assert.Equal(t, run.SpanContext.SpanID(), item.Parent.SpanID())
	assert.Equal(t, item.SpanContext.SpanID(), task.Parent.SpanID())
	assert.Equal(t, item.SpanContext.SpanID(), scored.Parent.SpanID())
}

func TestEvaluateEmitScores(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	cfg := pipeline.DefaultConfig()
	cfg.Exporter = exporter
	cfg.Batch = false
	cfg.AutoInstrument = false

	p, err := pipeline.Register(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	_, err = Evaluate(context.Background(), Eval{
		Name:       "emitting",
		Data:       []Datum{{Input: "a", Expected: "A"}},
		Task:       upcase,
		Scorers:    []Scorer{exactMatch()},
		EmitScores: true,
	})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	var scoreSpan, itemSpan *tracetest.SpanStub
	for i := range spans {
		switch spans[i].Name {
		case semconv.EvaluationSpanName:
			scoreSpan = &spans[i]
		case "eval_item":
			itemSpan = &spans[i]
		}
	}
	require.NotNil(t, scoreSpan, "EmitScores must produce an evaluation span")
	require.NotNil(t, itemSpan)

	// The score correlates to the item span it judges.
	attrs := map[string]string{}
	for _, kv := range scoreSpan.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, itemSpan.SpanContext.TraceID().String(), attrs[string(semconv.EvaluationTraceID)])
	assert.Equal(t, itemSpan.SpanContext.SpanID().String(), attrs[string(semconv.EvaluationSpanID)])
	assert.Equal(t, "eval", attrs[string(semconv.EvaluationSource)])
}

func TestSummaryString(t *testing.T) {
	s := &Summary{Name: "upcase", Total: 4, Errors: 1, Averages: map[string]float64{"exact_match": 0.75}}
	out := s.String()
	assert.Contains(t, out, "Eval: upcase (4 samples, 1 errors)")
	assert.Contains(t, out, "exact_match: 0.750")
}

func TestCapString(t *testing.T) {
	assert.Equal(t, "short", capString("short"))
	long := strings.Repeat("é", 600) // 1200 bytes
	got := capString(long)
	assert.LessOrEqual(t, len(got), 1000)
	assert.NotContains(t, got, "�")
}
