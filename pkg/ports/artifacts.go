package ports

import (
	"context"

	"github.com/aretw0/tracescribe/pkg/domain"
)

// ArtifactRegistry owns the transient resources behind downloadable artifacts.
// A handle is valid from Create until Revoke (or backend expiry). Implementations must be
// safe for concurrent use.
type ArtifactRegistry interface {
	// Create stores data under a new unique handle.
	Create(ctx context.Context, name string, data []byte) (string, error)

	// Open returns the stored document.
	// Returns domain.ErrArtifactNotFound if the handle is unknown, expired or revoked.
	Open(ctx context.Context, handle string) (*domain.ArtifactBlob, error)

	// Revoke releases the handle.
	// Returns domain.ErrArtifactNotFound if the handle is not live.
	Revoke(ctx context.Context, handle string) error

	// List returns the live handles.
	List(ctx context.Context) ([]string, error)
}

// Formatter submits a document to the formatting service and returns the formatted bytes.
type Formatter interface {
	Submit(ctx context.Context, file domain.FileRef, template domain.TemplateID) ([]byte, error)
}
