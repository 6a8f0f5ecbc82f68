package tracing

import (
	"encoding/json"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/opensearch-project/opensearch-genai-go/pkg/semconv"
)

// maxCaptureBytes caps serialised input/output attribute values so a single
// span cannot carry an unbounded payload.
const maxCaptureBytes = 10_000

// startAttributes maps a wrapper config and call input to the attributes set
// when the span starts. Pure: no state, no side effects. Serialisation
// failures surface as the returned error; the attribute is simply absent.
func startAttributes(kind Kind, cfg config, input any) ([]attribute.KeyValue, error) {
	attrs := make([]attribute.KeyValue, 0, 6)
	attrs = append(attrs, semconv.OperationName.String(kind.operationName()))

	if kind == KindTool {
		attrs = append(attrs, semconv.ToolName.String(cfg.name))
		attrs = append(attrs, semconv.ToolType.String("function"))
		if cfg.description != "" {
			attrs = append(attrs, semconv.ToolDescription.String(cfg.description))
		}
		if cfg.version != "" {
			attrs = append(attrs, semconv.ToolVersion.String(cfg.version))
		}
	} else {
		attrs = append(attrs, semconv.AgentName.String(cfg.name))
		if cfg.version != "" {
			attrs = append(attrs, semconv.AgentVersion.String(cfg.version))
		}
	}

	serialised, err := marshalCapped(input)
	if err != nil {
		return attrs, err
	}
	if serialised != "" {
		key := semconv.InputMessages
		if kind == KindTool {
			key = semconv.ToolCallArguments
		}
		attrs = append(attrs, key.String(serialised))
	}
	return attrs, nil
}

// outputAttribute maps a call result to its capture attribute. The zero
// KeyValue means there is nothing to record (nil output or serialisation
// failure).
func outputAttribute(kind Kind, output any) (attribute.KeyValue, error) {
	serialised, err := marshalCapped(output)
	if err != nil || serialised == "" {
		return attribute.KeyValue{}, err
	}
	key := semconv.OutputMessages
	if kind == KindTool {
		key = semconv.ToolCallResult
	}
	return key.String(serialised), nil
}

// streamOutput is the aggregate representation recorded for lazy sequences:
// the element count and the last element seen, never the full stream.
type streamOutput struct {
	Count int `json:"count"`
	Last  any `json:"last,omitempty"`
}

// marshalCapped JSON-encodes v, truncating oversized payloads. Returns ""
// for nil values.
func marshalCapped(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if len(data) > maxCaptureBytes {
		return truncateBytes(string(data), maxCaptureBytes) + "...(truncated)", nil
	}
	return string(data), nil
}

// truncateBytes cuts s to at most max bytes without splitting a rune.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
