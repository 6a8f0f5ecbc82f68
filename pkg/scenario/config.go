// Package scenario replays YAML-scripted agent sessions through the span
// wrappers. A scenario declares an agent and its steps (tasks, tool calls,
// streams) with durations and failure flags; replaying one exercises the
// full pipeline end to end, which is how the demo command produces
// realistic-looking traces without a live LLM.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML scenario.
type Config struct {
	Agent        string        `yaml:"agent"`
	Version      string        `yaml:"version,omitempty"`
	Conversation string        `yaml:"conversation,omitempty"`
	Steps        []StepConfig  `yaml:"steps"`
	Scores       []ScoreConfig `yaml:"scores,omitempty"`
}

// StepConfig is one scripted step of the session.
type StepConfig struct {
	// Name is the step's span name.
	Name string `yaml:"name"`
	// Kind is task, tool, or stream.
	Kind string `yaml:"kind"`
	// Input is the scripted input captured on the span.
	Input string `yaml:"input,omitempty"`
	// Duration is how long the step pretends to work, e.g. "20ms".
	Duration string `yaml:"duration,omitempty"`
	// Fail makes the step return an error.
	Fail bool `yaml:"fail,omitempty"`
	// Items is the element count for stream steps.
	Items int `yaml:"items,omitempty"`
	// AbandonAfter stops consuming a stream step early after this many
	// elements. Zero consumes the whole stream.
	AbandonAfter int `yaml:"abandon_after,omitempty"`
}

// ScoreConfig is an evaluation result emitted after the session, correlated
// to the session's trace.
type ScoreConfig struct {
	Name        string  `yaml:"name"`
	Value       float64 `yaml:"value"`
	Label       string  `yaml:"label,omitempty"`
	Explanation string  `yaml:"explanation,omitempty"`
	Source      string  `yaml:"source,omitempty"`
}

var stepKinds = map[string]bool{"task": true, "tool": true, "stream": true}

// Load reads and parses a YAML scenario file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied scenario path is expected
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &cfg, nil
}

// Validate checks a scenario for structural correctness.
func Validate(cfg *Config) error {
	if cfg.Agent == "" {
		return fmt.Errorf("agent name is required")
	}
	if len(cfg.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range cfg.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d: name is required", i)
		}
		if !stepKinds[step.Kind] {
			return fmt.Errorf("step %q: kind must be task, tool, or stream, got %q", step.Name, step.Kind)
		}
		if step.Duration != "" {
			if _, err := time.ParseDuration(step.Duration); err != nil {
				return fmt.Errorf("step %q: invalid duration: %w", step.Name, err)
			}
		}
		if step.Kind == "stream" && step.Items <= 0 {
			return fmt.Errorf("step %q: stream steps need items > 0", step.Name)
		}
		if step.AbandonAfter < 0 || (step.Kind != "stream" && step.AbandonAfter != 0) {
			return fmt.Errorf("step %q: abandon_after only applies to stream steps", step.Name)
		}
	}
	for _, sc := range cfg.Scores {
		if sc.Name == "" {
			return fmt.Errorf("score entries need a name")
		}
	}
	return nil
}
