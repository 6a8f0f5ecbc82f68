// Package semconv defines the gen_ai.* semantic convention attribute keys
// emitted by this SDK. Downstream storage and analysis match on these keys
// exactly, so they are centralised here rather than scattered as literals.
package semconv

import "go.opentelemetry.io/otel/attribute"

// Operation names recorded under OperationName.
const (
	OperationInvokeAgent = "invoke_agent"
	OperationExecuteTool = "execute_tool"
)

// Span attributes set by the function wrappers.
var (
	OperationName = attribute.Key("gen_ai.operation.name")

	AgentName    = attribute.Key("gen_ai.agent.name")
	AgentVersion = attribute.Key("gen_ai.agent.version")

	InputMessages  = attribute.Key("gen_ai.input.messages")
	OutputMessages = attribute.Key("gen_ai.output.messages")

	ToolName          = attribute.Key("gen_ai.tool.name")
	ToolVersion       = attribute.Key("gen_ai.tool.version")
	ToolType          = attribute.Key("gen_ai.tool.type")
	ToolDescription   = attribute.Key("gen_ai.tool.description")
	ToolCallArguments = attribute.Key("gen_ai.tool.call.arguments")
	ToolCallResult    = attribute.Key("gen_ai.tool.call.result")
)

// Evaluation attributes set by the score emitter.
var (
	EvaluationName        = attribute.Key("gen_ai.evaluation.name")
	EvaluationSource      = attribute.Key("gen_ai.evaluation.source")
	EvaluationScoreValue  = attribute.Key("gen_ai.evaluation.score.value")
	EvaluationScoreLabel  = attribute.Key("gen_ai.evaluation.score.label")
	EvaluationExplanation = attribute.Key("gen_ai.evaluation.explanation")
	EvaluationTraceID     = attribute.Key("gen_ai.evaluation.trace_id")
	EvaluationSpanID      = attribute.Key("gen_ai.evaluation.span_id")
	ConversationID        = attribute.Key("gen_ai.conversation.id")
	ResponseID            = attribute.Key("gen_ai.response.id")
)

// EvaluationMetadata returns the attribute key for one metadata entry of an
// evaluation result.
func EvaluationMetadata(field string) attribute.Key {
	return attribute.Key("gen_ai.evaluation.metadata." + field)
}

// EvaluationSpanName is the span name used for self-contained evaluation
// result spans.
const EvaluationSpanName = "gen_ai.evaluation.result"
