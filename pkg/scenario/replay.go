package scenario

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/opensearch-project/opensearch-genai-go/pkg/score"
	"github.com/opensearch-project/opensearch-genai-go/pkg/tracing"
)

// Stats summarises one replayed session.
type Stats struct {
	Steps    int `json:"steps"`
	Failures int `json:"failures"`
	Scores   int `json:"scores"`
}

// Replay executes the scenario through the span wrappers: one agent span
// with one child span per step, then the scripted scores correlated to the
// session's trace. Step failures are recorded on their spans and counted,
// not propagated; the session always runs to completion.
func Replay(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	stats := &Stats{}
	var traceID string

	session := tracing.Agent(func(ctx context.Context, input string) (string, error) {
		traceID = trace.SpanFromContext(ctx).SpanContext().TraceID().String()
		for _, step := range cfg.Steps {
			stats.Steps++
			if err := runStep(ctx, step); err != nil {
				stats.Failures++
			}
		}
		return fmt.Sprintf("%d steps", stats.Steps), nil
	}, tracing.WithName(cfg.Agent), tracing.WithVersion(cfg.Version))

	if _, err := session(ctx, cfg.Agent); err != nil {
		return nil, err
	}

	for _, sc := range cfg.Scores {
		rec := score.Record{
			Name:           sc.Name,
			Value:          sc.Value,
			TraceID:        traceID,
			ConversationID: cfg.Conversation,
			Label:          sc.Label,
			Explanation:    sc.Explanation,
			Source:         sc.Source,
		}
		if err := score.Emit(ctx, rec); err != nil {
			return nil, fmt.Errorf("emitting score %q: %w", sc.Name, err)
		}
		stats.Scores++
	}
	return stats, nil
}

// runStep executes one scripted step through the wrapper matching its kind.
func runStep(ctx context.Context, step StepConfig) error {
	work := stepDuration(step)

	switch step.Kind {
	case "tool":
		call := tracing.Tool(func(ctx context.Context, input string) (string, error) {
			time.Sleep(work)
			if step.Fail {
				return "", fmt.Errorf("scripted failure in %s", step.Name)
			}
			return "ok", nil
		}, tracing.WithName(step.Name))
		_, err := call(ctx, step.Input)
		return err

	case "stream":
		produce := tracing.WrapSeq(tracing.KindTask, func(ctx context.Context, input string) iter.Seq[string] {
			return func(yield func(string) bool) {
				for i := range step.Items {
					time.Sleep(work)
					if !yield(fmt.Sprintf("chunk-%d", i)) {
						return
					}
				}
			}
		}, tracing.WithName(step.Name))

		consumed := 0
		for range produce(ctx, step.Input) {
			consumed++
			if step.AbandonAfter > 0 && consumed >= step.AbandonAfter {
				break
			}
		}
		return nil

	default: // task
		run := tracing.Task(func(ctx context.Context, input string) (string, error) {
			time.Sleep(work)
			if step.Fail {
				return "", fmt.Errorf("scripted failure in %s", step.Name)
			}
			return "done", nil
		}, tracing.WithName(step.Name))
		_, err := run(ctx, step.Input)
		return err
	}
}

func stepDuration(step StepConfig) time.Duration {
	if step.Duration == "" {
		return 0
	}
	d, _ := time.ParseDuration(step.Duration) // validated by Validate
	return d
}
