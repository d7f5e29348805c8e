// Package cli wires configuration into the components used by the tracescribe commands.
package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/tracescribe"
	"github.com/aretw0/tracescribe/internal/config"
	"github.com/aretw0/tracescribe/internal/logging"
	"github.com/aretw0/tracescribe/pkg/adapters/file"
	"github.com/aretw0/tracescribe/pkg/adapters/memory"
	"github.com/aretw0/tracescribe/pkg/adapters/redis"
	"github.com/aretw0/tracescribe/pkg/client"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/observability"
	"github.com/aretw0/tracescribe/pkg/persistence/middleware"
	"github.com/aretw0/tracescribe/pkg/ports"
	"github.com/aretw0/tracescribe/pkg/workflow"
	"github.com/prometheus/client_golang/prometheus"
)

// Runtime holds the shared components built from a Config.
type Runtime struct {
	Config   config.Config
	Logger   *slog.Logger
	Client   *client.Client
	Registry ports.ArtifactRegistry
	Metrics  *observability.Metrics
	Hooks    domain.LifecycleHooks

	closers []func() error
}

// RuntimeOption configures NewRuntime.
type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	logger         *slog.Logger
	registerer     prometheus.Registerer
	expireArtifact bool
}

// WithLogger overrides the logger derived from the configured level.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(o *runtimeOptions) {
		o.logger = logger
	}
}

// WithMetrics enables Prometheus metrics registered with reg.
func WithMetrics(reg prometheus.Registerer) RuntimeOption {
	return func(o *runtimeOptions) {
		o.registerer = reg
	}
}

// WithArtifactExpiry applies artifacts.ttl to the memory and redis registries.
// Without it handles live until the workflow revokes them.
func WithArtifactExpiry() RuntimeOption {
	return func(o *runtimeOptions) {
		o.expireArtifact = true
	}
}

// NewRuntime builds the client, the artifact registry and the lifecycle hooks.
func NewRuntime(cfg config.Config, opts ...RuntimeOption) (*Runtime, error) {
	var o runtimeOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logger = logging.New(level)
	}

	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		Client: client.New(cfg.APIURL,
			client.WithLogger(logger),
			client.WithUserAgent("tracescribe/"+strings.TrimSpace(tracescribe.Version)),
		),
	}

	var ttl time.Duration
	if o.expireArtifact {
		ttl = cfg.Artifacts.TTL
	}
	registry, closer, err := newRegistry(cfg.Artifacts, ttl)
	if err != nil {
		return nil, err
	}
	if cfg.Artifacts.EncryptionKey != "" {
		keys, err := middleware.ParseKeys(cfg.Artifacts.EncryptionKey, cfg.Artifacts.FallbackKeys)
		if err != nil {
			if closer != nil {
				_ = closer()
			}
			return nil, err
		}
		registry = middleware.NewEncryptionMiddleware(keys)(registry)
	}
	rt.Registry = registry
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}

	hooks := []domain.LifecycleHooks{observability.LoggingHooks(logger)}
	if o.registerer != nil {
		rt.Metrics = observability.NewMetrics(o.registerer)
		hooks = append(hooks, rt.Metrics.Hooks())
	}
	rt.Hooks = observability.Compose(hooks...)

	logger.Debug("Runtime initialized",
		"api_url", rt.Client.BaseURL(),
		"artifacts", cfg.Artifacts.Backend,
	)
	return rt, nil
}

// NewOrchestrator creates an orchestrator sharing the runtime's registry and hooks.
func (rt *Runtime) NewOrchestrator() *workflow.Orchestrator {
	return workflow.New(
		workflow.WithRegistry(rt.Registry),
		workflow.WithHooks(rt.Hooks),
		workflow.WithLogger(rt.Logger),
	)
}

// Close releases backend connections.
func (rt *Runtime) Close() error {
	var firstErr error
	for _, c := range rt.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func newRegistry(cfg config.Artifacts, ttl time.Duration) (ports.ArtifactRegistry, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memory.NewRegistry(memory.WithTTL(ttl)), nil, nil
	case config.BackendFile:
		return file.New(cfg.Dir), nil, nil
	case config.BackendRedis:
		r, err := redis.New(cfg.RedisURL, redis.WithTTL(ttl))
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown artifacts backend %q", cfg.Backend)
}
