package evals

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/opensearch-project/opensearch-genai-go/pkg/score"
)

const tracerName = "opensearch-genai-go/evals"

// Task produces an output for one dataset input.
type Task func(ctx context.Context, input any) (any, error)

// Datum is one dataset entry.
type Datum struct {
	Input    any
	Expected any
}

// Eval describes one evaluation run.
type Eval struct {
	// Name identifies the run.
	Name string
	// Data is the dataset to evaluate over.
	Data []Datum
	// Task produces an output per datum.
	Task Task
	// Scorers are applied to every task output.
	Scorers []Scorer
	// Parallelism bounds concurrent items. Zero or one runs sequentially.
	Parallelism int
	// EmitScores sends each score through the pipeline, correlated to the
	// item's trace and span.
	EmitScores bool
}

// ItemResult is the outcome for a single data point.
type ItemResult struct {
	Input    any
	Output   any
	Expected any
	Scores   map[string]Result
	Err      error
}

// Summary aggregates a run: per-item results and per-scorer averages.
type Summary struct {
	Name     string
	RunID    string
	Results  []ItemResult
	Averages map[string]float64
	Total    int
	Errors   int
}

// String renders the summary in the one-line-per-scorer report format.
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Eval: %s (%d samples, %d errors)", s.Name, s.Total, s.Errors)
	for name, avg := range s.Averages {
		fmt.Fprintf(&b, "\n  %s: %.3f", name, avg)
	}
	return b.String()
}

// Evaluate runs dataset → task → scorers under one span tree. Task failures
// are recorded on their item and the run continues; a failing scorer is
// recorded on its scorer span without stopping the other scorers. The only
// error Evaluate itself returns is ctx cancellation.
func Evaluate(ctx context.Context, e Eval) (*Summary, error) {
	tracer := otel.Tracer(tracerName)
	runID := uuid.NewString()

	ctx, runSpan := tracer.Start(ctx, "evaluate")
	defer runSpan.End()
	runSpan.SetAttributes(
		attribute.String("eval.name", e.Name),
		attribute.String("eval.run_id", runID),
		attribute.Int("eval.dataset_size", len(e.Data)),
		attribute.Int("eval.scorer_count", len(e.Scorers)),
	)

	summary := &Summary{
		Name:     e.Name,
		RunID:    runID,
		Results:  make([]ItemResult, len(e.Data)),
		Averages: map[string]float64{},
		Total:    len(e.Data),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Parallelism, 1))
	for i, datum := range e.Data {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summary.Results[i] = evaluateItem(gctx, e, i, datum, runID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Per-scorer averages over items that produced a value.
	counts := map[string]int{}
	for _, r := range summary.Results {
		if r.Err != nil {
			summary.Errors++
			continue
		}
		for name, res := range r.Scores {
			summary.Averages[name] += res.Value
			counts[name]++
		}
	}
	for name, n := range counts {
		summary.Averages[name] /= float64(n)
		runSpan.SetAttributes(attribute.Float64("eval.avg."+name, summary.Averages[name]))
	}
	runSpan.SetAttributes(attribute.Int("eval.errors", summary.Errors))

	return summary, nil
}

// evaluateItem runs the task and all scorers for one datum under an
// eval_item span.
func evaluateItem(ctx context.Context, e Eval, index int, datum Datum, runID string) ItemResult {
	tracer := otel.Tracer(tracerName)
	item := ItemResult{Input: datum.Input, Expected: datum.Expected, Scores: map[string]Result{}}

	ctx, itemSpan := tracer.Start(ctx, "eval_item")
	defer itemSpan.End()
	itemSpan.SetAttributes(
		attribute.Int("eval.item.index", index),
		attribute.String("eval.item.input", capString(fmt.Sprint(datum.Input))),
	)

	output, err := runTask(ctx, tracer, e.Task, datum.Input)
	if err != nil {
		item.Err = err
		return item
	}
	item.Output = output

	sample := Sample{Input: datum.Input, Output: output, Expected: datum.Expected}
	for _, scorer := range e.Scorers {
		name := scorer.Name()
		sctx, scoreSpan := tracer.Start(ctx, "eval_score."+name)
		res, err := scorer.Score(sctx, sample)
		if err != nil {
			clog.FromContext(ctx).Warnf("scorer %s failed on item %d: %v", name, index, err)
			scoreSpan.RecordError(err)
			scoreSpan.SetStatus(codes.Error, err.Error())
			scoreSpan.End()
			continue
		}
		scoreSpan.SetAttributes(
			attribute.Float64("eval.score.value", res.Value),
			attribute.String("eval.score.label", res.Label),
		)
		scoreSpan.End()
		item.Scores[name] = res

		if e.EmitScores {
			sc := itemSpan.SpanContext()
			rec := score.Record{
				Name:        name,
				Value:       res.Value,
				TraceID:     sc.TraceID().String(),
				SpanID:      sc.SpanID().String(),
				Label:       res.Label,
				Explanation: res.Explanation,
				Source:      "eval",
				Metadata:    map[string]any{"eval_name": e.Name, "run_id": runID, "item_index": index},
			}
			if err := score.Emit(ctx, rec); err != nil {
				clog.FromContext(ctx).Warnf("emitting score %s: %v", name, err)
			}
		}
	}
	return item
}

// runTask executes the task under its own span, recording failures.
func runTask(ctx context.Context, tracer trace.Tracer, task Task, input any) (any, error) {
	ctx, span := tracer.Start(ctx, "eval_task")
	defer span.End()

	output, err := task(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("eval.task.output", capString(fmt.Sprint(output))))
	return output, nil
}

// capString bounds free-form dataset values recorded as attributes.
func capString(s string) string {
	const limit = 1000
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
