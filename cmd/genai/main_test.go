package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensearch-project/opensearch-genai-go/pkg/pipeline"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "genai dev")
	assert.Contains(t, out, "commit: unknown")
}

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent: support-bot
steps:
  - name: classify
    kind: task
`), 0o600))

	out, err := runCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Scenario valid: agent "support-bot", 1 steps, 0 scores`)
}

func TestValidateCommandRejectsBadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent: a\nsteps: []\n"), 0o600))

	_, err := runCommand(t, "validate", path)
	assert.ErrorContains(t, err, "at least one step")
}

func TestValidateCommandMissingFile(t *testing.T) {
	_, err := runCommand(t, "validate", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPipelineFlagsAuth(t *testing.T) {
	cases := []struct {
		flag string
		want pipeline.Auth
	}{
		{"none", pipeline.AuthNone},
		{"sigv4", pipeline.AuthSigV4},
		{"auto", pipeline.AuthAuto},
		{"", pipeline.AuthAuto},
	}
	for _, tc := range cases {
		flags := pipelineFlags{auth: tc.flag, batch: true}
		cfg, err := flags.config()
		require.NoError(t, err, tc.flag)
		assert.Equal(t, tc.want, cfg.Auth, tc.flag)
	}

	flags := pipelineFlags{auth: "kerberos"}
	_, err := flags.config()
	assert.ErrorContains(t, err, `unsupported auth "kerberos"`)
}

func TestDemoRequiresScenarioArg(t *testing.T) {
	_, err := runCommand(t, "demo")
	assert.Error(t, err)
}
