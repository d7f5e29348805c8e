package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tracescribe/pkg/domain"
)

// LoggingHooks logs every lifecycle event at debug level, failures at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "transition",
				"intent", e.Intent,
				"from", e.From,
				"to", e.To,
				"generation", e.Generation,
			)
		},
		OnRequestStart: func(ctx context.Context, e *domain.RequestEvent) {
			logger.DebugContext(ctx, "request_start",
				"template", e.Template,
				"file", e.FileName,
				"size", e.FileSize,
				"generation", e.Generation,
			)
		},
		OnRequestDone: func(ctx context.Context, e *domain.RequestEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "request_done",
					"template", e.Template,
					"duration", e.Duration,
					"error", e.Err,
				)
				return
			}
			logger.DebugContext(ctx, "request_done", "template", e.Template, "duration", e.Duration)
		},
		OnStaleResponse: func(ctx context.Context, e *domain.RequestEvent) {
			logger.DebugContext(ctx, "stale_response",
				"template", e.Template,
				"generation", e.Generation,
				"duration", e.Duration,
			)
		},
		OnArtifactCreated: func(ctx context.Context, e *domain.ArtifactEvent) {
			logger.DebugContext(ctx, "artifact_created", "handle", e.Handle, "size", e.Size)
		},
		OnArtifactRevoked: func(ctx context.Context, e *domain.ArtifactEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "artifact_revoked", "handle", e.Handle, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "artifact_revoked", "handle", e.Handle)
		},
	}
}

// Compose merges hook sets. Callbacks run in argument order.
func Compose(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnTransition = chain(out.OnTransition, h.OnTransition)
		out.OnRequestStart = chain(out.OnRequestStart, h.OnRequestStart)
		out.OnRequestDone = chain(out.OnRequestDone, h.OnRequestDone)
		out.OnStaleResponse = chain(out.OnStaleResponse, h.OnStaleResponse)
		out.OnArtifactCreated = chain(out.OnArtifactCreated, h.OnArtifactCreated)
		out.OnArtifactRevoked = chain(out.OnArtifactRevoked, h.OnArtifactRevoked)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
