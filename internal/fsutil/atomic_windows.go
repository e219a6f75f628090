//go:build windows

package fsutil

import (
	"os"
)

// WriteFileAtomic writes to a sibling temp file and renames it over path.
// renameio does not support Windows.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return err
	}
	return nil
}
