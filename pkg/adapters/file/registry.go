package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/google/uuid"
)

const metaSuffix = ".meta.json"

// Registry implements ports.ArtifactRegistry on the local filesystem.
// Each artifact is a data file named after its handle plus a JSON sidecar with its metadata.
type Registry struct {
	BasePath string
	mu       sync.Mutex
}

type meta struct {
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a Registry rooted at basePath.
// If basePath is empty, it defaults to a tracescribe directory under the OS temp dir.
func New(basePath string) *Registry {
	if basePath == "" {
		basePath = filepath.Join(os.TempDir(), "tracescribe", "artifacts")
	}
	return &Registry{BasePath: basePath}
}

// Create writes data and its metadata atomically and returns the new handle.
func (r *Registry) Create(ctx context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(r.BasePath, 0o700); err != nil {
		return "", fmt.Errorf("failed to ensure artifact directory: %w", err)
	}

	handle := uuid.NewString()
	m, err := json.Marshal(meta{Name: name, Size: len(data), CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifact metadata: %w", err)
	}

	// Data first: a sidecar only exists for complete artifacts.
	if err := writeAtomic(r.BasePath, r.dataPath(handle), data); err != nil {
		return "", err
	}
	if err := writeAtomic(r.BasePath, r.metaPath(handle), m); err != nil {
		_ = os.Remove(r.dataPath(handle))
		return "", err
	}
	return handle, nil
}

// Open reads the artifact back.
func (r *Registry) Open(ctx context.Context, handle string) (*domain.ArtifactBlob, error) {
	if !validHandle(handle) {
		return nil, domain.ErrArtifactNotFound
	}

	raw, err := os.ReadFile(r.metaPath(handle))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to read artifact metadata: %w", err)
	}
	var m meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact metadata: %w", err)
	}

	data, err := os.ReadFile(r.dataPath(handle))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return &domain.ArtifactBlob{Name: m.Name, Data: data}, nil
}

// Revoke removes the artifact files.
func (r *Registry) Revoke(ctx context.Context, handle string) error {
	if !validHandle(handle) {
		return domain.ErrArtifactNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.metaPath(handle))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrArtifactNotFound
		}
		return fmt.Errorf("failed to remove artifact metadata: %w", err)
	}
	if err := os.Remove(r.dataPath(handle)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove artifact: %w", err)
	}
	return nil
}

// List returns the handles that have metadata on disk.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	handles := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metaSuffix) {
			continue
		}
		handles = append(handles, strings.TrimSuffix(e.Name(), metaSuffix))
	}
	return handles, nil
}

func (r *Registry) dataPath(handle string) string {
	return filepath.Join(r.BasePath, handle+".bin")
}

func (r *Registry) metaPath(handle string) string {
	return filepath.Join(r.BasePath, handle+metaSuffix)
}

func validHandle(handle string) bool {
	_, err := uuid.Parse(handle)
	return err == nil
}

// writeAtomic writes to a temp file in dir, fsyncs it and renames it over dest.
func writeAtomic(dir, dest string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		_ = tmp.Close()
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
