package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var update = flag.Bool("update", false, "rewrite golden files with the current output")

// Golden compares rendered text with files named <name>.golden.
type Golden struct {
	t   testing.TB
	dir string
}

// NewGolden creates a golden file helper. An empty dir means "testdata".
func NewGolden(t testing.TB, dir string) *Golden {
	if dir == "" {
		dir = "testdata"
	}
	return &Golden{t: t, dir: dir}
}

// AssertString fails the test when actual differs from the golden file,
// ignoring line endings and trailing whitespace. With -update the file is
// rewritten instead.
func (g *Golden) AssertString(name, actual string) {
	g.t.Helper()
	path := filepath.Join(g.dir, name+".golden")

	if *update {
		require.NoError(g.t, os.MkdirAll(g.dir, 0o750))
		require.NoError(g.t, os.WriteFile(path, []byte(actual), 0o600))
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	require.NoError(g.t, err, "reading golden file %s", path)
	require.Equal(g.t, Normalize(string(expected)), Normalize(actual), "output mismatch for %s", name)
}

// Normalize converts CRLF line endings, strips trailing whitespace on every
// line and drops trailing newlines.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
