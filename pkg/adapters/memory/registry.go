package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Registry implements ports.ArtifactRegistry in process memory.
// Safe for concurrent use.
type Registry struct {
	cache *gocache.Cache
	mu    sync.Mutex
	ttl   time.Duration
}

// Option configures the Registry.
type Option func(*Registry)

// WithTTL expires handles that are never revoked. Zero keeps them until Revoke.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

// NewRegistry creates a new in-memory artifact registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}

	expiration := gocache.NoExpiration
	cleanup := time.Duration(0)
	if r.ttl > 0 {
		expiration = r.ttl
		cleanup = r.ttl / 2
	}
	r.cache = gocache.New(expiration, cleanup)
	return r
}

// Create stores a private copy of data under a new handle.
func (r *Registry) Create(ctx context.Context, name string, data []byte) (string, error) {
	handle := uuid.NewString()
	blob := &domain.ArtifactBlob{
		Name: name,
		Data: append([]byte(nil), data...),
	}
	r.cache.Set(handle, blob, gocache.DefaultExpiration)
	return handle, nil
}

// Open returns a copy of the stored document.
func (r *Registry) Open(ctx context.Context, handle string) (*domain.ArtifactBlob, error) {
	v, ok := r.cache.Get(handle)
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	blob := v.(*domain.ArtifactBlob)
	return &domain.ArtifactBlob{
		Name: blob.Name,
		Data: append([]byte(nil), blob.Data...),
	}, nil
}

// Revoke drops the handle. Revoking twice reports ErrArtifactNotFound.
func (r *Registry) Revoke(ctx context.Context, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache.Get(handle); !ok {
		return domain.ErrArtifactNotFound
	}
	r.cache.Delete(handle)
	return nil
}

// List returns the live handles.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	items := r.cache.Items()
	handles := make([]string, 0, len(items))
	for k := range items {
		handles = append(handles, k)
	}
	return handles, nil
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}
