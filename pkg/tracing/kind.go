// Package tracing wraps application functions as OTel spans shaped for AI
// workflows. A wrapped function keeps its exact calling shape and behaviour;
// the only side effect is one span per invocation, carrying gen_ai.*
// semantic convention attributes. Remove the wrapping and the application
// behaves identically.
package tracing

import "github.com/opensearch-project/opensearch-genai-go/pkg/semconv"

// Kind classifies a wrapped function as a semantic unit of an AI workflow.
// It determines the span's operation name and display name.
type Kind int

const (
	// KindWorkflow marks top-level orchestration functions.
	KindWorkflow Kind = iota
	// KindTask marks individual units of work within a workflow.
	KindTask
	// KindAgent marks autonomous agent logic that decides and invokes tools.
	KindAgent
	// KindTool marks tool/function calls invoked by agents.
	KindTool
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindWorkflow:
		return "workflow"
	case KindTask:
		return "task"
	case KindAgent:
		return "agent"
	case KindTool:
		return "tool"
	default:
		return "unknown"
	}
}

// operationName returns the gen_ai.operation.name value for the kind.
func (k Kind) operationName() string {
	if k == KindTool {
		return semconv.OperationExecuteTool
	}
	return semconv.OperationInvokeAgent
}

// spanName returns the span display name for the kind. Workflow and task
// spans use the bare name; agent and tool spans prefix it with the
// operation name.
func (k Kind) spanName(name string) string {
	switch k {
	case KindAgent:
		return semconv.OperationInvokeAgent + " " + name
	case KindTool:
		return semconv.OperationExecuteTool + " " + name
	default:
		return name
	}
}
