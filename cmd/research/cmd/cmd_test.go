package cmd

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/config"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/events"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/testutil"
)

func TestReadDecision(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  core.Decision
	}{
		{"enter approves", "\n", core.Approve()},
		{"whitespace approves", "   \n", core.Approve()},
		{"feedback regenerates", "add an economist\n", core.Regenerate("add an economist")},
		{"cancel", "Cancel\n", core.Cancel()},
		{"quit", "quit\n", core.Cancel()},
		{"eof cancels", "", core.Cancel()},
		{"last line without newline", "more policy focus", core.Regenerate("more policy focus")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := readDecision(bufio.NewReader(strings.NewReader(tt.input)), &out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Feedback")
		})
	}
}

func TestDecisionFromFlags(t *testing.T) {
	assert.Equal(t, core.Approve(), decisionFromFlags(true, "", false))
	assert.Equal(t, core.Cancel(), decisionFromFlags(false, "", true))
	assert.Equal(t, core.Regenerate("more"), decisionFromFlags(false, "more", false))
}

func TestProgressMessage(t *testing.T) {
	tests := []struct {
		event events.Event
		want  string
	}{
		{events.NewRunStartedEvent("r", "LLM agents", 3), `Assembling a research team of 3 for "LLM agents"...`},
		{events.NewAnalystsGeneratedEvent("r", []string{"a", "b"}, 1, ""), "Team generated with 2 analysts"},
		{events.NewAnalystsGeneratedEvent("r", []string{"a"}, 2, "fewer"), "Team regenerated with 1 analysts"},
		{events.NewRunResumedEvent("r", "approve", ""), "Conducting comprehensive multi-agent research..."},
		{events.NewRunResumedEvent("r", "cancel", ""), ""},
		{events.NewInterviewStartedEvent("r", "Ada", 0), "Conducting expert interviews... (Ada)"},
		{events.NewInterviewAbortedEvent("r", "Ada", 0, errors.New("timeout")), "Interview with Ada aborted: timeout"},
		{events.NewSynthesisStartedEvent("r", 2), "Synthesizing findings from 2 interviews..."},
		{events.NewRunFailedEvent("r", "write_report", errors.New("boom")), "Research failed during write_report: boom"},
		{events.NewRunAbandonedEvent("r", "human_feedback"), "Research cancelled"},
		{events.NewAwaitingFeedbackEvent("r"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.event.EventType(), func(t *testing.T) {
			assert.Equal(t, tt.want, progressMessage(tt.event))
		})
	}
}

func TestRenderAnalysts(t *testing.T) {
	analysts := testutil.TestAnalysts(2)

	plain := renderAnalysts(analysts, false)
	assert.Contains(t, plain, "1. Analyst A - Researcher, Test Lab")
	assert.Contains(t, plain, "2. Analyst B")

	styled := renderAnalysts(analysts, true)
	assert.Contains(t, styled, "Research team")
	assert.Contains(t, styled, "Analyst B")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestOutputStructured(t *testing.T) {
	cp := testutil.NewTestCheckpoint()

	var buf bytes.Buffer
	ok, err := outputStructured(&buf, "yaml", cp)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "run_id: "+cp.RunID)
	assert.Contains(t, buf.String(), "status: awaiting_feedback")

	buf.Reset()
	ok, err = outputStructured(&buf, "json", cp)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"stage": "human_feedback"`)

	ok, _ = outputStructured(&buf, "text", cp)
	assert.False(t, ok)
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	path, err := writeDefaultConfig(dir, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".research", "config.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfigYAML, string(data))
	assert.DirExists(t, filepath.Join(dir, ".research", "state"))

	_, err = writeDefaultConfig(dir, false)
	assert.ErrorContains(t, err, "already exists")

	_, err = writeDefaultConfig(dir, true)
	assert.NoError(t, err)
}

func TestDefaultConfigLoads(t *testing.T) {
	dir := t.TempDir()
	path, err := writeDefaultConfig(dir, false)
	require.NoError(t, err)

	loaded, err := config.NewLoader().WithConfigFile(path).WithEnvFiles().Load()
	require.NoError(t, err)
	require.NoError(t, config.ValidateConfig(loaded))
	assert.Equal(t, "sqlite", loaded.State.Backend)
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "research 1.2.3")
	assert.Contains(t, out.String(), "commit: abc123")
}
