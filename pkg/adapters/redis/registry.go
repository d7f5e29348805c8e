package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "tracescribe:artifact:"

// Registry implements ports.ArtifactRegistry using Redis hashes.
// An index ZSET scored by expiry lets List skip handles Redis has already expired.
type Registry struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Registry)

// WithTTL sets the expiration for artifacts that are never revoked.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

// WithPrefix sets the key prefix for artifacts.
func WithPrefix(prefix string) Option {
	return func(r *Registry) {
		r.prefix = prefix
	}
}

// New creates a registry from a redis:// URL.
func New(url string, opts ...Option) (*Registry, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(o), opts...), nil
}

// NewFromClient creates a registry from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Registry {
	r := &Registry{
		client: client,
		prefix: defaultPrefix,
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) key(handle string) string {
	return r.prefix + handle
}

func (r *Registry) indexKey() string {
	return r.prefix + "index"
}

// Create stores data under a new handle.
func (r *Registry) Create(ctx context.Context, name string, data []byte) (string, error) {
	handle := uuid.NewString()

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key(handle), "name", name, "data", data)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(handle), r.ttl)
	}

	score := float64(time.Now().Add(r.ttl).Unix())
	if r.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, r.indexKey(), backend.Z{Score: score, Member: handle})

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to save artifact to redis: %w", err)
	}
	return handle, nil
}

// Open loads the artifact.
func (r *Registry) Open(ctx context.Context, handle string) (*domain.ArtifactBlob, error) {
	vals, err := r.client.HMGet(ctx, r.key(handle), "name", "data").Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to get artifact from redis: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, domain.ErrArtifactNotFound
	}

	name, _ := vals[0].(string)
	data, _ := vals[1].(string)
	return &domain.ArtifactBlob{Name: name, Data: []byte(data)}, nil
}

// Revoke deletes the artifact. Deleting a missing key reports ErrArtifactNotFound.
func (r *Registry) Revoke(ctx context.Context, handle string) error {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, r.key(handle))
	pipe.ZRem(ctx, r.indexKey(), handle)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to revoke artifact: %w", err)
	}
	if del.Val() == 0 {
		return domain.ErrArtifactNotFound
	}
	return nil
}

// List returns live handles, pruning expired index entries first.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := r.client.ZRemRangeByScore(ctx, r.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired artifacts: %w", err)
	}

	handles, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return handles, nil
}

// Ping checks connectivity.
func (r *Registry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (r *Registry) Close() error {
	return r.client.Close()
}
