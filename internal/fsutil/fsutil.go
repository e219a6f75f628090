// Package fsutil holds the file helpers shared by the checkpoint and report
// writers.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxReadBytes caps ReadFileScoped. Checkpoints and reports stay far below.
const MaxReadBytes int64 = 64 << 20

// ReadFileScoped reads the file at path through an os.Root opened at its
// directory, so a crafted base name cannot escape that directory. Files
// larger than MaxReadBytes are rejected.
func ReadFileScoped(path string) ([]byte, error) {
	dir, name := filepath.Split(filepath.Clean(path))
	if name == "" || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid file path: %q", path)
	}
	if dir == "" {
		dir = "."
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxReadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxReadBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, MaxReadBytes)
	}
	return data, nil
}
