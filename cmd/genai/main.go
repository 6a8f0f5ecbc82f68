// CLI for the OpenSearch GenAI tracing SDK
// Replays scripted agent scenarios through the span pipeline and submits scores
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"

	"github.com/opensearch-project/opensearch-genai-go/pkg/pipeline"
	"github.com/opensearch-project/opensearch-genai-go/pkg/scenario"
	"github.com/opensearch-project/opensearch-genai-go/pkg/score"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "genai",
		Short:        "OpenSearch GenAI tracing and scoring",
		SilenceUsage: true,
	}

	root.AddCommand(demoCmd())
	root.AddCommand(scoreCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(versionCmd())

	return root
}

// pipelineFlags are the Register knobs shared by demo and score.
type pipelineFlags struct {
	endpoint string
	service  string
	auth     string
	region   string
	batch    bool
	stdout   bool
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "OTLP endpoint URI (http, https, grpc, or grpcs scheme)")
	cmd.Flags().StringVar(&f.service, "service", "", "service.name attached to all spans")
	cmd.Flags().StringVar(&f.auth, "auth", "none", "export authentication (none, sigv4, auto)")
	cmd.Flags().StringVar(&f.region, "region", "", "AWS region for SigV4 signing")
	cmd.Flags().BoolVar(&f.batch, "batch", true, "use the batching span processor")
	cmd.Flags().BoolVar(&f.stdout, "stdout", false, "emit spans to stdout as JSON instead of exporting")
}

func (f *pipelineFlags) config() (pipeline.Config, error) {
	cfg := pipeline.Config{
		Endpoint:       f.endpoint,
		ServiceName:    f.service,
		Region:         f.region,
		Batch:          f.batch,
		AutoInstrument: true,
	}
	switch f.auth {
	case "none":
		cfg.Auth = pipeline.AuthNone
	case "sigv4":
		cfg.Auth = pipeline.AuthSigV4
	case "auto", "":
		cfg.Auth = pipeline.AuthAuto
	default:
		return pipeline.Config{}, fmt.Errorf("unsupported auth %q, supported: none, sigv4, auto", f.auth)
	}
	if f.stdout {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
		if err != nil {
			return pipeline.Config{}, err
		}
		cfg.Exporter = exporter
	}
	return cfg, nil
}

func demoCmd() *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "demo <scenario.yaml>",
		Short: "Replay a scripted agent scenario through the tracing pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), args[0], &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runDemo(ctx context.Context, path string, flags *pipelineFlags) error {
	cfg, err := scenario.Load(path)
	if err != nil {
		return err
	}
	if err := scenario.Validate(cfg); err != nil {
		return err
	}

	pcfg, err := flags.config()
	if err != nil {
		return err
	}
	p, err := pipeline.Register(ctx, pcfg)
	if err != nil {
		return err
	}
	defer shutdown(p)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := scenario.Replay(ctx, cfg)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stderr).Encode(stats)
}

func scoreCmd() *cobra.Command {
	var (
		flags pipelineFlags
		rec   score.Record
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Submit an evaluation score for a recorded span, trace, or session",
		RunE: func(cmd *cobra.Command, args []string) error {
			pcfg, err := flags.config()
			if err != nil {
				return err
			}
			// Scores should reach the backend before the command exits.
			pcfg.Batch = false
			p, err := pipeline.Register(cmd.Context(), pcfg)
			if err != nil {
				return err
			}
			defer shutdown(p)

			return score.Emit(cmd.Context(), rec)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&rec.Name, "name", "", "evaluation metric name")
	cmd.Flags().Float64Var(&rec.Value, "value", 0, "numeric score value")
	cmd.Flags().StringVar(&rec.TraceID, "trace-id", "", "trace being scored")
	cmd.Flags().StringVar(&rec.SpanID, "span-id", "", "span being scored")
	cmd.Flags().StringVar(&rec.ConversationID, "conversation-id", "", "session being scored")
	cmd.Flags().StringVar(&rec.Label, "label", "", "categorical label")
	cmd.Flags().StringVar(&rec.Explanation, "explanation", "", "evaluator justification")
	cmd.Flags().StringVar(&rec.Source, "source", "human", "who produced the score")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Parse and validate a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			if err := scenario.Validate(cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Scenario valid: agent %q, %d steps, %d scores\n",
				cfg.Agent, len(cfg.Steps), len(cfg.Scores))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "genai %s (commit: %s, built: %s)\n", version, commit, buildTime)
		},
	}
}

func shutdown(p *pipeline.Pipeline) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error shutting down pipeline: %v\n", err)
	}
}
