package clip

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

var errNoClipboard = errors.New("no clipboard")

func TestWriteAll_Native(t *testing.T) {
	var got string
	c := New(WithNative(func(s string) error { got = s; return nil }))

	res, err := c.WriteAll("report")
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if res.Method != MethodNative || got != "report" {
		t.Fatalf("unexpected result %+v, copied %q", res, got)
	}
}

func TestWriteAll_OSC52Fallback(t *testing.T) {
	var term bytes.Buffer
	c := New(
		WithNative(func(string) error { return errNoClipboard }),
		WithTerminal(&term, func() bool { return true }),
	)
	c.env = func(string) string { return "" }

	res, err := c.WriteAll("report")
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if res.Method != MethodOSC52 {
		t.Fatalf("expected osc52, got %s", res.Method)
	}
	if !strings.HasPrefix(term.String(), "\x1b]52;c;") {
		t.Fatalf("unexpected sequence %q", term.String())
	}
}

func TestWriteAll_OSC52InsideTmux(t *testing.T) {
	var term bytes.Buffer
	c := New(
		WithNative(func(string) error { return errNoClipboard }),
		WithTerminal(&term, func() bool { return true }),
	)
	c.env = func(key string) string {
		if key == "TMUX" {
			return "/tmp/tmux-1000/default,1,0"
		}
		return ""
	}

	if _, err := c.WriteAll("report"); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if !strings.HasPrefix(term.String(), "\x1bPtmux;") {
		t.Fatalf("expected tmux passthrough, got %q", term.String())
	}
}

func TestWriteAll_FileFallback(t *testing.T) {
	dir := t.TempDir()
	c := New(
		WithNative(func(string) error { return errNoClipboard }),
		WithTerminal(&bytes.Buffer{}, func() bool { return false }),
		WithTempDir(dir),
	)

	res, err := c.WriteAll("# Report")
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if res.Method != MethodFile || !strings.HasPrefix(res.FilePath, dir) {
		t.Fatalf("unexpected result %+v", res)
	}
	data, err := os.ReadFile(res.FilePath)
	if err != nil {
		t.Fatalf("reading fallback: %v", err)
	}
	if string(data) != "# Report" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestWriteAll_LargeTextSkipsOSC52(t *testing.T) {
	var term bytes.Buffer
	c := New(
		WithNative(func(string) error { return errNoClipboard }),
		WithTerminal(&term, func() bool { return true }),
		WithTempDir(t.TempDir()),
	)

	res, err := c.WriteAll(strings.Repeat("x", osc52LimitBytes+1))
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if res.Method != MethodFile || term.Len() != 0 {
		t.Fatalf("expected file fallback without OSC52 output, got %+v", res)
	}
}

func TestWriteAll_Empty(t *testing.T) {
	if _, err := New().WriteAll(""); err == nil {
		t.Fatal("expected error for empty text")
	}
}
