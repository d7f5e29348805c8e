// Package middleware decorates artifact registries.
package middleware

import "github.com/aretw0/tracescribe/pkg/ports"

// Middleware allows wrapping an ArtifactRegistry to add behavior.
type Middleware func(ports.ArtifactRegistry) ports.ArtifactRegistry

// Chain applies mws so that the first one is the outermost.
func Chain(r ports.ArtifactRegistry, mws ...Middleware) ports.ArtifactRegistry {
	for i := len(mws) - 1; i >= 0; i-- {
		r = mws[i](r)
	}
	return r
}
