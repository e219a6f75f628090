// Package clip copies report text to the clipboard with fallbacks for
// headless and remote terminals.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method represents the mechanism used to make content copyable.
//
// MethodFile means the clipboard was unreachable and the content was
// written to a temp file instead.
type Method string

const (
	MethodNative Method = "native" // OS clipboard via github.com/atotto/clipboard
	MethodOSC52  Method = "osc52"  // Terminal clipboard via OSC52 escape sequence
	MethodFile   Method = "file"   // Temp file fallback
)

// Result reports how the text was made available.
type Result struct {
	Method   Method
	FilePath string // only set when Method == MethodFile
}

// Terminals can have strict OSC52 limits.
const osc52LimitBytes = 100_000

// Copier tries the native clipboard, then OSC52, then a temp file.
type Copier struct {
	native   func(string) error
	terminal io.Writer
	isTTY    func() bool
	env      func(string) string
	tempDir  string
}

// Option configures a Copier.
type Option func(*Copier)

// WithNative replaces the native clipboard writer.
func WithNative(fn func(string) error) Option {
	return func(c *Copier) { c.native = fn }
}

// WithTerminal sends OSC52 sequences to w, treated as a terminal when isTTY
// reports true.
func WithTerminal(w io.Writer, isTTY func() bool) Option {
	return func(c *Copier) {
		c.terminal = w
		c.isTTY = isTTY
	}
}

// WithTempDir sets where the file fallback is written.
func WithTempDir(dir string) Option {
	return func(c *Copier) { c.tempDir = dir }
}

// New creates a copier using the process clipboard and stderr.
func New(opts ...Option) *Copier {
	c := &Copier{
		native:   atotto.WriteAll,
		terminal: os.Stderr,
		isTTY:    func() bool { return term.IsTerminal(int(os.Stderr.Fd())) },
		env:      os.Getenv,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WriteAll copies text with the default copier.
func WriteAll(text string) (Result, error) {
	return New().WriteAll(text)
}

// WriteAll tries, in order, the native clipboard, the OSC52 terminal
// clipboard (works over SSH and in WSL) and a temp file.
func (c *Copier) WriteAll(text string) (Result, error) {
	if text == "" {
		return Result{}, errors.New("nothing to copy")
	}
	if err := c.native(text); err == nil {
		return Result{Method: MethodNative}, nil
	}
	if err := c.writeOSC52(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := c.writeTempFile(text)
	if err != nil {
		return Result{}, err
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

func (c *Copier) writeOSC52(text string) error {
	if c.terminal == nil || !c.isTTY() {
		return errors.New("no terminal for OSC52")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}

	seq := osc52.New(text).Limit(osc52LimitBytes)
	if c.env("TMUX") != "" {
		seq = seq.Tmux()
	} else if c.env("STY") != "" {
		seq = seq.Screen()
	}
	_, err := seq.WriteTo(c.terminal)
	return err
}

func (c *Copier) writeTempFile(text string) (path string, err error) {
	f, err := os.CreateTemp(c.tempDir, "research-report-*.md")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		_ = f.Close()
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}
