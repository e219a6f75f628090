package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-research/internal/testutil"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "CRLF to LF", input: "line1\r\nline2\r\n", want: "line1\nline2"},
		{name: "trailing whitespace", input: "line1   \nline2\t\n", want: "line1\nline2"},
		{name: "trailing newlines", input: "line1\nline2\n\n\n", want: "line1\nline2"},
		{name: "empty string", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testutil.Normalize(tt.input))
		})
	}
}

func TestGolden_AssertString(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.golden"), []byte("## Introduction\r\n\nbody  \n"), 0o600))

	testutil.NewGolden(t, dir).AssertString("report", "## Introduction\n\nbody")
}

func TestNewTestCheckpoint(t *testing.T) {
	cp := testutil.NewTestCheckpoint()
	assert.Equal(t, core.StageHumanFeedback, cp.Stage)
	assert.Equal(t, core.RunStatusAwaitingFeedback, cp.Status)
	require.Len(t, cp.State.Analysts, 2)
	for _, a := range cp.State.Analysts {
		assert.NoError(t, a.Validate())
	}

	cp = testutil.NewTestCheckpoint(func(cp *core.Checkpoint) {
		cp.State.Topic = "custom topic"
	})
	assert.Equal(t, "custom topic", cp.State.Topic)
}
