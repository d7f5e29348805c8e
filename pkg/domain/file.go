package domain

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileRef is a user-chosen source document.
// Open is nil for references that only carry metadata (e.g. in a cloned snapshot used
// for display); the format client refuses to submit such a reference.
type FileRef struct {
	Name string                        `json:"name"`
	Size int64                         `json:"size"`
	Open func() (io.ReadCloser, error) `json:"-"`
}

// BytesFile wraps an in-memory document.
func BytesFile(name string, data []byte) FileRef {
	return FileRef{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// LocalFile builds a FileRef for a file on disk. The file is opened lazily on submit.
func LocalFile(path string) (FileRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileRef{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return FileRef{}, fmt.Errorf("%s is a directory", path)
	}
	return FileRef{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FormatFileSize renders a byte count the way the upload preview shows it:
// bytes below 1 KB, kilobytes with one decimal below 1 MB, megabytes with one decimal above.
func FormatFileSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
