package file

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile atomically writes data to dest, creating its directory if needed.
func WriteFile(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return writeAtomic(dir, dest, data)
}

// Destination picks where a downloaded artifact is saved.
// An empty out means the suggested name next to source; an existing directory
// receives the suggested name inside it; anything else is used as-is.
func Destination(out, source, suggested string) string {
	if out == "" {
		return filepath.Join(filepath.Dir(source), suggested)
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, suggested)
	}
	return out
}
