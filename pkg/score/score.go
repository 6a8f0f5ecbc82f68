// Package score submits evaluation results as OTel spans through the
// registered pipeline. A score is a single self-contained span carrying
// gen_ai.evaluation.* attributes and correlation identifiers pointing at the
// span, trace, or session being scored. Scores travel through the same
// exporter, signing, and pipeline as every other span.
package score

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensearch-project/opensearch-genai-go/pkg/pipeline"
	"github.com/opensearch-project/opensearch-genai-go/pkg/semconv"
)

// Emission failures surfaced by Emit. Matched with errors.Is.
var (
	// ErrMissingCorrelation marks a record with no trace_id, span_id, or
	// conversation_id to attach the score to.
	ErrMissingCorrelation = errors.New("score requires trace_id, span_id, or conversation_id")
	// ErrNotConfigured marks an emission attempted before Register.
	ErrNotConfigured = errors.New("tracing pipeline not configured")
)

// maxExplanationRunes caps the explanation attribute. Truncation is lossy
// and one-directional.
const maxExplanationRunes = 500

// Level is the scoring granularity implied by a record's correlation ids.
type Level int

const (
	// LevelNone means no correlation identifier is present.
	LevelNone Level = iota
	// LevelSpan scores one specific span (trace_id + span_id).
	LevelSpan
	// LevelTrace scores an entire trace (trace_id only).
	LevelTrace
	// LevelSession scores across traces (conversation_id).
	LevelSession
)

// String returns the lower-case level name.
func (l Level) String() string {
	switch l {
	case LevelSpan:
		return "span"
	case LevelTrace:
		return "trace"
	case LevelSession:
		return "session"
	default:
		return "none"
	}
}

// Record is one evaluation result. It exists only for the duration of
// building its span.
type Record struct {
	// Name is the evaluation metric name, e.g. "relevance" or "factuality".
	Name string
	// Value is the numeric score.
	Value float64
	// TraceID correlates the score with a recorded trace. Stored as an
	// attribute; it does not become the emitted span's own trace id.
	TraceID string
	// SpanID correlates the score with a specific span.
	SpanID string
	// ConversationID correlates the score with a session spanning traces.
	ConversationID string
	// Label is an optional categorical label, e.g. "pass" or "relevant".
	Label string
	// Explanation is the evaluator's justification. Truncated to 500
	// characters on emission.
	Explanation string
	// ResponseID correlates with a specific completion.
	ResponseID string
	// Source records who produced the score: "sdk", "human", "llm-judge",
	// "heuristic". Defaults to "sdk".
	Source string
	// Metadata is arbitrary extra data, flattened to string attributes.
	Metadata map[string]any
}

// Level classifies the record's scoring granularity from which correlation
// identifiers are present.
func (r Record) Level() Level {
	switch {
	case r.TraceID != "" && r.SpanID != "":
		return LevelSpan
	case r.SpanID != "":
		return LevelSpan
	case r.TraceID != "":
		return LevelTrace
	case r.ConversationID != "":
		return LevelSession
	default:
		return LevelNone
	}
}

// Emit builds and closes one evaluation-result span for rec. The span is a
// root: it references the scored trace/span by attribute rather than being
// re-parented into it, so scores can arrive long after the original trace
// closed. Fails loudly when no pipeline is registered.
func Emit(ctx context.Context, rec Record) error {
	if rec.Level() == LevelNone {
		return ErrMissingCorrelation
	}
	p := pipeline.Active()
	if p == nil {
		return ErrNotConfigured
	}

	tracer := p.Tracer("opensearch-genai-go/scores")
	_, span := tracer.Start(ctx, semconv.EvaluationSpanName,
		trace.WithNewRoot(),
		trace.WithAttributes(rec.attributes()...),
	)
	span.End()

	clog.FromContext(ctx).Debugf("score emitted: %s=%v level=%s", rec.Name, rec.Value, rec.Level())
	return nil
}

// attributes maps every present field to its gen_ai.evaluation.* attribute.
func (r Record) attributes() []attribute.KeyValue {
	source := r.Source
	if source == "" {
		source = "sdk"
	}

	attrs := []attribute.KeyValue{
		semconv.EvaluationName.String(r.Name),
		semconv.EvaluationSource.String(source),
		semconv.EvaluationScoreValue.Float64(r.Value),
	}
	if r.TraceID != "" {
		attrs = append(attrs, semconv.EvaluationTraceID.String(r.TraceID))
	}
	if r.SpanID != "" {
		attrs = append(attrs, semconv.EvaluationSpanID.String(r.SpanID))
	}
	if r.ConversationID != "" {
		attrs = append(attrs, semconv.ConversationID.String(r.ConversationID))
	}
	if r.Label != "" {
		attrs = append(attrs, semconv.EvaluationScoreLabel.String(r.Label))
	}
	if r.Explanation != "" {
		attrs = append(attrs, semconv.EvaluationExplanation.String(truncate(r.Explanation, maxExplanationRunes)))
	}
	if r.ResponseID != "" {
		attrs = append(attrs, semconv.ResponseID.String(r.ResponseID))
	}
	for k, v := range r.Metadata {
		attrs = append(attrs, semconv.EvaluationMetadata(k).String(fmt.Sprint(v)))
	}
	return attrs
}

// truncate cuts s to at most max characters, never splitting a multi-byte
// character. Strings at or under the limit pass through untouched.
func truncate(s string, max int) string {
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
